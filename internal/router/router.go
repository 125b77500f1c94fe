package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rickgao/pairs-data/internal/connection"
	"github.com/rickgao/pairs-data/internal/model"
)

// TickRouter parses raw stream frames and fans each tick out to its sinks.
// It implements connection.MessageHandler.
type TickRouter struct {
	sinks  []TickSink
	logger *slog.Logger

	received    atomic.Int64
	routed      atomic.Int64
	parseErrors atomic.Int64
	sinkErrors  atomic.Int64
	sinkPanics  atomic.Int64
}

var _ connection.MessageHandler = (*TickRouter)(nil)

// NewTickRouter creates a router delivering to sinks in order.
func NewTickRouter(logger *slog.Logger, sinks ...TickSink) *TickRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TickRouter{
		sinks:  sinks,
		logger: logger,
	}
}

// HandleMessage parses one frame. Unparseable frames are counted and dropped.
func (r *TickRouter) HandleMessage(ctx context.Context, msg connection.TimestampedMessage) {
	r.received.Add(1)

	tick, err := ParseTrade(msg.Data, msg.ReceivedAt)
	if err != nil {
		r.parseErrors.Add(1)
		r.logger.Warn("failed to parse trade", "error", err)
		return
	}
	r.Route(ctx, tick)
}

// Route delivers tick to every sink. A failing or panicking sink does not
// prevent delivery to the others.
func (r *TickRouter) Route(ctx context.Context, tick model.Tick) {
	for _, sink := range r.sinks {
		if err := r.deliver(ctx, sink, tick); err != nil {
			r.sinkErrors.Add(1)
			r.logger.Warn("tick sink failed",
				"sink", fmt.Sprintf("%T", sink),
				"symbol", tick.Symbol,
				"error", err,
			)
		}
	}
	r.routed.Add(1)
}

func (r *TickRouter) deliver(ctx context.Context, sink TickSink, tick model.Tick) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.sinkPanics.Add(1)
			err = fmt.Errorf("sink panic: %v", p)
		}
	}()
	return sink.HandleTick(ctx, tick)
}

// Stats returns current router statistics.
func (r *TickRouter) Stats() RouterStats {
	return RouterStats{
		MessagesReceived: r.received.Load(),
		TicksRouted:      r.routed.Load(),
		ParseErrors:      r.parseErrors.Load(),
		SinkErrors:       r.sinkErrors.Load(),
		SinkPanics:       r.sinkPanics.Load(),
	}
}
