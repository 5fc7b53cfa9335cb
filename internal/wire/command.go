// Package wire defines the Command/Response envelopes exchanged over a
// session connection, one JSON object per newline-terminated line
// (spec.md §6, framing choice resolved in SPEC_FULL.md §6).
package wire

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/emberex/matchengine/internal/domain"
)

var validate = validator.New()

// Command is one trader request. TraderID, OrderID, OrderType, OrderSide,
// Ticker, Quantity and Price are optional depending on RequestType; Validate
// enforces the request-type-conditional requirements spec.md §6 documents,
// which static struct tags alone cannot express.
type Command struct {
	RequestType domain.RequestType `json:"request_type" validate:"required"`
	TraderID    string             `json:"trader_id"`
	OrderID     string             `json:"order_id,omitempty"`
	OrderType   domain.OrderType   `json:"order_type,omitempty"`
	OrderSide   domain.Side        `json:"order_side,omitempty"`
	Ticker      string             `json:"ticker,omitempty"`
	Quantity    uint64             `json:"quantity,omitempty"`
	Price       *float64           `json:"price,omitempty"`
}

// Validate checks the struct tags, then the request-type-conditional rules
// from spec.md §6:
//
//	SUBMIT: trader_id, order_type, order_side, ticker, quantity;
//	        price required iff order_type ∈ {LIMIT, IOC}.
//	AMEND:  trader_id, order_id, quantity.
//	CANCEL: trader_id, order_id.
//	GET:    order_id.
func (c Command) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrBadInput, err)
	}
	if c.RequestType != domain.Get && c.TraderID == "" {
		return fmt.Errorf("%w: %s requires trader_id", domain.ErrBadInput, c.RequestType)
	}

	switch c.RequestType {
	case domain.Submit:
		if c.Ticker == "" || c.Quantity == 0 {
			return fmt.Errorf("%w: submit requires ticker and quantity", domain.ErrBadInput)
		}
		needsPrice := c.OrderType == domain.Limit || c.OrderType == domain.IOC
		if needsPrice && c.Price == nil {
			return fmt.Errorf("%w: %s order requires price", domain.ErrBadInput, c.OrderType)
		}
		if !needsPrice && c.Price != nil {
			return fmt.Errorf("%w: MARKET order must not specify price", domain.ErrBadInput)
		}
	case domain.Amend:
		if c.OrderID == "" || c.Quantity == 0 {
			return fmt.Errorf("%w: amend requires order_id and quantity", domain.ErrBadInput)
		}
	case domain.Cancel:
		if c.OrderID == "" {
			return fmt.Errorf("%w: cancel requires order_id", domain.ErrBadInput)
		}
	case domain.Get:
		if c.OrderID == "" {
			return fmt.Errorf("%w: get requires order_id", domain.ErrBadInput)
		}
	}
	return nil
}

// TradeDTO is the session-boundary projection of a domain.Trade: one fill
// step attributed to the order carrying it, including the signed cash
// movement a trader-side balance tracker needs (spec.md §4.3).
type TradeDTO struct {
	CounterpartyOrderID string  `json:"counterparty_order_id"`
	SignedCash          float64 `json:"signed_cash"`
	Quantity            uint64  `json:"quantity"`
	Price               float64 `json:"price"`
}

// OrderDTO is the session-boundary projection of a domain.Order: never the
// live pointer itself (spec.md §9, "never expose raw references to internal
// containers").
type OrderDTO struct {
	OrderID    string           `json:"order_id"`
	TraderID   string           `json:"trader_id"`
	Ticker     string           `json:"ticker"`
	Side       domain.Side      `json:"side"`
	OrderType  domain.OrderType `json:"order_type"`
	Price      float64          `json:"price"`
	Quantity   uint64           `json:"quantity"`
	Filled     uint64           `json:"filled"`
	IsExecuted bool             `json:"is_executed"`
	Trades     []TradeDTO       `json:"trades,omitempty"`
}

// ToOrderDTO projects a domain.Order for the wire, after the caller has
// already Clone()'d it if concurrent mutation is a concern.
func ToOrderDTO(o *domain.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		OrderID:    o.OrderID,
		TraderID:   o.TraderID,
		Ticker:     o.Ticker,
		Side:       o.Side,
		OrderType:  o.OrderType,
		Price:      o.Price,
		Quantity:   o.Quantity,
		Filled:     o.Filled,
		IsExecuted: o.IsExecuted,
	}
	if len(o.Trades) > 0 {
		dto.Trades = make([]TradeDTO, len(o.Trades))
		for i, t := range o.Trades {
			dto.Trades[i] = TradeDTO{
				CounterpartyOrderID: t.CounterpartyOrderID,
				SignedCash:          t.SignedCash,
				Quantity:            t.Quantity,
				Price:               t.Price,
			}
		}
	}
	return dto
}

// Response is what the session sends back for every Command. SUBMIT returns
// the assigned order whether or not it fully filled; AMEND and CANCEL
// return Order = nil; GET returns the order when found (spec.md §6).
type Response struct {
	Success bool      `json:"success"`
	Order   *OrderDTO `json:"order,omitempty"`
	Error   string    `json:"error,omitempty"`
}
