package router

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rickgao/pairs-data/internal/model"
)

// ParseTrade converts one trade frame to a Tick.
//
// The event time E falls back to receivedAt when absent or zero. The symbol
// falls back to the stream name prefix when s is absent, and is lowercased.
// Prices must be > 0 and quantities >= 0.
func ParseTrade(data []byte, receivedAt time.Time) (model.Tick, error) {
	var frame combinedWire
	if err := json.Unmarshal(data, &frame); err != nil {
		return model.Tick{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	wire := frame.tradeWire
	if frame.Data != nil {
		wire = *frame.Data
	}

	symbol := wire.Symbol
	if symbol == "" && frame.Stream != "" {
		symbol, _, _ = strings.Cut(frame.Stream, "@")
	}
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.Tick{}, fmt.Errorf("%w: missing symbol", ErrParse)
	}

	if !wire.Price.IsPositive() {
		return model.Tick{}, fmt.Errorf("%w: %s price %s must be > 0", ErrParse, symbol, wire.Price)
	}
	if wire.Quantity.IsNegative() {
		return model.Tick{}, fmt.Errorf("%w: %s quantity %s must be >= 0", ErrParse, symbol, wire.Quantity)
	}

	ts := receivedAt
	if wire.EventTime > 0 {
		ts = time.UnixMilli(wire.EventTime)
	}

	price, _ := wire.Price.Float64()
	size, _ := wire.Quantity.Float64()

	tick := model.Tick{
		TS:     ts.Truncate(time.Millisecond).UTC(),
		Symbol: symbol,
		Price:  price,
		Size:   size,
	}
	if err := tick.Validate(); err != nil {
		return model.Tick{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return tick, nil
}
