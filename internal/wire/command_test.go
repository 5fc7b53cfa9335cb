package wire

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberex/matchengine/internal/domain"
)

func TestCommand_ValidateSubmitRequiresPriceForLimit(t *testing.T) {
	cmd := Command{
		RequestType: domain.Submit,
		TraderID:    "1",
		Ticker:      "FB",
		OrderType:   domain.Limit,
		OrderSide:   domain.Buy,
		Quantity:    5,
	}
	assert.ErrorIs(t, cmd.Validate(), domain.ErrBadInput)

	price := 100.0
	cmd.Price = &price
	assert.NoError(t, cmd.Validate())
}

func TestCommand_ValidateMarketRejectsPrice(t *testing.T) {
	price := 100.0
	cmd := Command{
		RequestType: domain.Submit,
		TraderID:    "1",
		Ticker:      "FB",
		OrderType:   domain.Market,
		OrderSide:   domain.Buy,
		Quantity:    5,
		Price:       &price,
	}
	assert.ErrorIs(t, cmd.Validate(), domain.ErrBadInput)
}

func TestCommand_ValidateCancelRequiresOrderID(t *testing.T) {
	cmd := Command{RequestType: domain.Cancel, TraderID: "1"}
	assert.ErrorIs(t, cmd.Validate(), domain.ErrBadInput)

	cmd.OrderID = "abc"
	assert.NoError(t, cmd.Validate())
}

func TestCommand_JSONRoundTrip(t *testing.T) {
	price := 42.5
	original := Command{
		RequestType: domain.Submit,
		TraderID:    "trader-1",
		OrderType:   domain.Limit,
		OrderSide:   domain.Sell,
		Ticker:      "FB",
		Quantity:    10,
		Price:       &price,
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(Response{Success: true, Order: &OrderDTO{OrderID: "x"}}))

	line, err := json.Marshal(original)
	require.NoError(t, err)

	dec := NewDecoder(bytes.NewReader(line))
	decoded, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}
