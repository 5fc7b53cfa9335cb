package book

import "github.com/emberex/matchengine/internal/domain"

// side bundles the per-direction pieces of the shared matching loop
// (spec.md §4.2.2/§4.2.3): which slice the incoming order matches against,
// how crossing is tested, and how to rest a leftover quantity.
type side struct {
	opposite *[]*domain.Order
	crosses  func(incomingPrice, counterPrice float64) bool
	restSelf func(*domain.Order)
	sentinel float64
}

func (b *OrderBook) sideFor(incoming domain.Side) side {
	if incoming == domain.Buy {
		return side{
			opposite: &b.offers,
			crosses:  func(ip, cp float64) bool { return ip >= cp },
			restSelf: b.restOnBids,
			sentinel: domain.MarketOfferSentinel,
		}
	}
	return side{
		opposite: &b.bids,
		crosses:  func(ip, cp float64) bool { return ip <= cp },
		restSelf: b.restOnOffers,
		sentinel: domain.MarketBidSentinel,
	}
}

func front(s []*domain.Order) *domain.Order {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}

func dropFront(s *[]*domain.Order) {
	if len(*s) > 0 {
		*s = (*s)[1:]
	}
}

// stepMatch fills order and counter by the crossable quantity, records the
// trade, and removes counter from the book unless it only partially filled
// and is not IOC (in which case it stays resting at the front, already
// mutated in place). done reports whether the incoming order is now fully
// filled, i.e. whether the caller's loop should stop.
func (b *OrderBook) stepMatch(order, counter *domain.Order, counterSlice *[]*domain.Order) (pnl float64, done bool) {
	orderRemaining := order.Remaining()
	counterRemaining := counter.Remaining()
	qty := min(orderRemaining, counterRemaining)

	pnl = b.recordTrade(order, counter, qty, counter.Price)
	order.Fill(qty)
	counter.Fill(qty)

	switch {
	case orderRemaining < counterRemaining:
		if counter.OrderType == domain.IOC {
			dropFront(counterSlice)
		}
		return pnl, true
	case orderRemaining > counterRemaining:
		dropFront(counterSlice)
		return pnl, false
	default:
		dropFront(counterSlice)
		return pnl, true
	}
}

// handleLimit implements the LIMIT crossing test, sweeping the opposite side
// while it crosses, until the incoming order is filled or the book no
// longer crosses (spec.md §4.2.3). Any remainder rests on its own side.
func (b *OrderBook) handleLimit(order *domain.Order) float64 {
	s := b.sideFor(order.Side)
	var pnl float64

	for {
		counter := front(*s.opposite)
		if counter == nil {
			break
		}
		// Defensive: a resting IOC is always removed the instant it is
		// touched (below), so this branch is unreachable in practice; kept
		// because spec.md §4.2.2 step 1 documents it explicitly.
		if counter.OrderType == domain.IOC && counter.IsExecuted {
			dropFront(s.opposite)
			continue
		}
		if counter.OrderType == domain.Market {
			counter.Price = order.Price
		}
		if !s.crosses(order.Price, counter.Price) {
			break
		}
		if counter.OrderType == domain.IOC {
			counter.IsExecuted = true
		}

		delta, done := b.stepMatch(order, counter, s.opposite)
		pnl += delta
		if done {
			break
		}
	}

	if !order.IsFulfilled() {
		s.restSelf(order)
	}
	return pnl
}

// handleIOC evaluates the crossing test exactly once against the current top
// of book (spec.md §4.2.3/§9 OQ2: this engine does not sweep past the first
// counter-order even if quantity remains).
func (b *OrderBook) handleIOC(order *domain.Order) float64 {
	s := b.sideFor(order.Side)
	var pnl float64

	counter := front(*s.opposite)
	if counter != nil {
		if counter.OrderType == domain.Market {
			counter.Price = order.Price
		}
		if s.crosses(order.Price, counter.Price) {
			order.IsExecuted = true
			if counter.OrderType == domain.IOC {
				if counter.IsExecuted {
					dropFront(s.opposite) // see handleLimit: unreachable in practice
				} else {
					counter.IsExecuted = true
				}
			}
			delta, _ := b.stepMatch(order, counter, s.opposite)
			pnl += delta
		}
	}

	if !order.IsExecuted {
		s.restSelf(order)
	}
	return pnl
}

// resolveMarketHead looks past a MARKET-priced head order for the next
// order with a real price, stashing any intermediate MARKET orders found
// along the way. It mutates the head's price in place and drops the scanned
// range (head kept, stash removed) on success.
func resolveMarketHead(opposite *[]*domain.Order, sentinel float64) (stash []*domain.Order, resolved bool) {
	head := (*opposite)[0]
	for i := 1; i < len(*opposite); i++ {
		next := (*opposite)[i]
		if next.Price == sentinel {
			stash = append(stash, next)
			continue
		}
		head.Price = next.Price
		*opposite = append([]*domain.Order{head}, (*opposite)[i:]...)
		return stash, true
	}
	return nil, false
}

// handleMarket implements the MARKET price-discovery sweep (spec.md §4.2.3):
// if the top of the opposite side has no real price, scan forward for the
// next priced order, give the MARKET head that price (the head stays at the
// front), and stash the MARKET orders skipped over for restoration once this
// order's matching attempt ends.
func (b *OrderBook) handleMarket(order *domain.Order) float64 {
	s := b.sideFor(order.Side)
	var pnl float64
	var stashed []*domain.Order

	for {
		counter := front(*s.opposite)
		if counter == nil {
			break
		}
		if counter.Price == s.sentinel {
			found, resolved := resolveMarketHead(s.opposite, s.sentinel)
			if !resolved {
				break
			}
			stashed = append(stashed, found...)
			counter = front(*s.opposite)
		}

		if counter.OrderType == domain.IOC && counter.IsExecuted {
			dropFront(s.opposite)
			continue
		}
		if counter.OrderType == domain.IOC {
			counter.IsExecuted = true
		}

		delta, done := b.stepMatch(order, counter, s.opposite)
		pnl += delta
		if done {
			break
		}
	}

	if !order.IsFulfilled() {
		s.restSelf(order)
	}
	if len(stashed) > 0 {
		*s.opposite = append(append([]*domain.Order{}, stashed...), *s.opposite...)
	}
	return pnl
}
