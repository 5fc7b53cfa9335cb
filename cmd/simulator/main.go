// Command simulator drives a configurable number of synthetic traders
// against a running matchengine server, grounded on
// original_source/ExchangeSimulator.py's Trader class: each trader
// repeatedly submits a random order, waits, and has a chance to amend or
// cancel it while it rests, tracking its own running balance from signed
// trade cash.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emberex/matchengine/internal/domain"
	"github.com/emberex/matchengine/internal/wire"
)

var tradedTickers = []string{"FB", "GOOG", "AAPL"}

const (
	priceLimit    = 1000.0
	quantityLimit = 100
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9999", "address of the matching engine")
	traders := flag.Int("traders", 20, "number of simulated traders")
	rounds := flag.Int("rounds", 5, "orders each trader submits before exiting")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	var wg sync.WaitGroup
	for i := 0; i < *traders; i++ {
		traderID := fmt.Sprintf("sim-%s", uuid.NewString())
		traderSeed := rng.Int63()
		wg.Add(1)
		go func(id string, seed int64) {
			defer wg.Done()
			runTrader(*serverAddr, id, *rounds, rand.New(rand.NewSource(seed)))
		}(traderID, traderSeed)
	}
	wg.Wait()
}

func runTrader(serverAddr, traderID string, rounds int, rng *rand.Rand) {
	conn, err := net.Dial("tcp", serverAddr)
	if err != nil {
		log.Printf("trader %s: dial failed: %v", traderID, err)
		return
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	balance := 1_000_000.0

	for round := 0; round < rounds; round++ {
		cmd := randomSubmit(traderID, rng)
		if err := enc.Encode(cmd); err != nil {
			log.Printf("trader %s: submit failed: %v", traderID, err)
			return
		}

		if !scanner.Scan() {
			return
		}
		var resp wire.Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			log.Printf("trader %s: malformed response: %v", traderID, err)
			continue
		}
		// Success is false for an order that rests unfilled, so only a
		// rejection (an error) or a missing order skips this round.
		if resp.Error != "" || resp.Order == nil {
			continue
		}
		orderID := resp.Order.OrderID
		balance += signedCashOf(resp.Order.Trades)

		time.Sleep(time.Duration(50+rng.Intn(200)) * time.Millisecond)

		switch rng.Intn(5) {
		case 0:
			// amend to a new random quantity; amend never re-matches, so it
			// cannot move balance (spec.md §6: AMEND's response carries no order).
			amend := wire.Command{RequestType: domain.Amend, TraderID: traderID, OrderID: orderID, Quantity: uint64(1 + rng.Intn(quantityLimit))}
			_ = enc.Encode(amend)
			scanner.Scan()
		case 1:
			cancel := wire.Command{RequestType: domain.Cancel, TraderID: traderID, OrderID: orderID}
			_ = enc.Encode(cancel)
			scanner.Scan()
		}

		log.Printf("trader %s: round %d balance=%.2f", traderID, round, balance)
	}
}

// signedCashOf sums the signed cash movement of a set of fills: negative for
// a buy's own cash outlay, positive for a sell's proceeds (spec.md §4.3).
func signedCashOf(trades []wire.TradeDTO) float64 {
	var total float64
	for _, t := range trades {
		total += t.SignedCash
	}
	return total
}

func randomSubmit(traderID string, rng *rand.Rand) wire.Command {
	orderType := domain.OrderType(rng.Intn(3))
	side := domain.Side(rng.Intn(2))
	ticker := tradedTickers[rng.Intn(len(tradedTickers))]
	qty := uint64(1 + rng.Intn(quantityLimit))
	price := float64(1 + rng.Intn(priceLimit))

	cmd := wire.Command{
		RequestType: domain.Submit,
		TraderID:    traderID,
		Ticker:      ticker,
		OrderSide:   side,
		OrderType:   orderType,
		Quantity:    qty,
	}
	if orderType != domain.Market {
		cmd.Price = &price
	}
	return cmd
}
