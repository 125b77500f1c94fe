package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/pairs-data/internal/model"
	"github.com/rickgao/pairs-data/internal/router"
	"github.com/rickgao/pairs-data/internal/store"
)

// TickWriter consumes ticks queued by HandleTick and appends them to the store.
type TickWriter struct {
	cfg    Config
	logger *slog.Logger

	// Queue fed by the router
	input *router.GrowableBuffer[model.Tick]

	store store.Store

	// Batching
	batch   []model.Tick
	batchMu sync.Mutex

	// Lifecycle. writeCtx carries ctx values but not its cancellation, so a
	// batch in flight during Stop still reaches the store.
	ctx      context.Context
	writeCtx context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// Metrics
	metrics      Metrics
	lastReported int64
}

// NewTickWriter creates a writer appending to st.
func NewTickWriter(cfg Config, st store.Store, logger *slog.Logger) *TickWriter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &TickWriter{
		cfg:    cfg,
		logger: logger,
		input:  router.NewGrowableBuffer[model.Tick](min(cfg.BufferSize, 1024), cfg.BufferSize),
		store:  st,
		batch:  make([]model.Tick, 0, cfg.BatchSize),
	}
}

// HandleTick enqueues tick. It never blocks; a full queue drops the tick.
func (w *TickWriter) HandleTick(_ context.Context, tick model.Tick) error {
	w.input.Send(tick)
	return nil
}

// Start begins consuming queued ticks and writing to the store.
func (w *TickWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.writeCtx = context.WithoutCancel(ctx)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("tick writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
		"buffer_size", w.cfg.BufferSize,
	)
	return nil
}

// Stop shuts down the loops, then writes whatever is still queued using ctx.
func (w *TickWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping tick writer")

	if w.cancel != nil {
		w.cancel()
	}
	w.input.Close()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("tick writer stop timed out")
		return ctx.Err()
	}

	// Final flush
	for {
		rest := w.input.DrainTo(w.cfg.BatchSize)
		if len(rest) == 0 {
			break
		}
		w.add(ctx, rest)
	}
	w.flush(ctx)

	w.logger.Info("tick writer stopped", "inserts", w.Stats().Inserts)
	return nil
}

// Stats returns current metrics.
func (w *TickWriter) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	m := w.metrics
	m.Dropped = w.input.Stats().Dropped
	m.Pending = len(w.batch) + w.input.Len()
	return m
}

// consumeLoop moves queued ticks into the current batch.
func (w *TickWriter) consumeLoop() {
	defer w.wg.Done()

	for w.input.Wait(w.ctx) {
		if w.ctx.Err() != nil {
			return
		}
		ticks := w.input.DrainTo(w.cfg.BatchSize)
		if len(ticks) > 0 {
			w.add(w.writeCtx, ticks)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *TickWriter) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.writeCtx)
			w.reportDrops()
		}
	}
}

// add appends ticks to the batch and flushes if it is full.
func (w *TickWriter) add(ctx context.Context, ticks []model.Tick) {
	w.batchMu.Lock()
	w.batch = append(w.batch, ticks...)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(ctx)
	}
}

// flush writes the current batch to the store. A failed batch is discarded.
func (w *TickWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]model.Tick, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.store.AppendTicks(ctx, batch); err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed ticks",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// reportDrops logs once per flush interval when the queue has overflowed.
func (w *TickWriter) reportDrops() {
	dropped := w.input.Stats().Dropped

	w.batchMu.Lock()
	delta := dropped - w.lastReported
	w.lastReported = dropped
	w.batchMu.Unlock()

	if delta > 0 {
		w.logger.Warn("tick writer queue full, ticks dropped",
			"dropped", delta,
			"total_dropped", dropped,
		)
	}
}
