package router

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rickgao/pairs-data/internal/model"
)

// ErrParse marks a frame that could not be turned into a valid tick.
var ErrParse = errors.New("parse trade")

// TickSink receives every parsed tick. Implementations must be safe to call from
// the stream goroutine and should not block for long.
type TickSink interface {
	HandleTick(ctx context.Context, tick model.Tick) error
}

// TickSinkFunc adapts a function to TickSink.
type TickSinkFunc func(ctx context.Context, tick model.Tick) error

func (f TickSinkFunc) HandleTick(ctx context.Context, tick model.Tick) error {
	return f(ctx, tick)
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64
	TicksRouted      int64
	ParseErrors      int64
	SinkErrors       int64
	SinkPanics       int64
}

// Wire types for JSON parsing

// combinedWire is a combined-stream frame: {"stream":"btcusdt@trade","data":{...}}.
// Raw single-stream frames carry the trade fields at the top level instead.
type combinedWire struct {
	Stream string     `json:"stream"`
	Data   *tradeWire `json:"data"`
	tradeWire
}

// tradeWire is the wire format for trade events. Prices and quantities are
// decimal strings; E is the event time in epoch milliseconds.
//
// Every key of the payload has its own field. encoding/json falls back to
// case-insensitive matching, so an unclaimed "e" would land in EventTime and
// an unclaimed "t" in TradeTime.
type tradeWire struct {
	EventType    string          `json:"e"`
	EventTime    int64           `json:"E"`
	Symbol       string          `json:"s"`
	TradeID      int64           `json:"t"`
	Price        decimal.Decimal `json:"p"`
	Quantity     decimal.Decimal `json:"q"`
	TradeTime    int64           `json:"T"`
	IsBuyerMaker bool            `json:"m"`
	Ignore       bool            `json:"M"`
}
