package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/pairs-data/internal/bars"
	"github.com/rickgao/pairs-data/internal/model"
	"github.com/rickgao/pairs-data/internal/pairs"
	"github.com/rickgao/pairs-data/internal/stationarity"
	"github.com/rickgao/pairs-data/internal/store"
)

// Default query parameters.
const (
	DefaultBarsLookback = time.Hour
	DefaultPairLookback = 2 * time.Hour
	DefaultPairWindow   = 60
	DefaultADFWindow    = 120
)

// Service computes analytics over a Store.
type Service struct {
	store  store.Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used to resolve lookback windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service reading from st.
func NewService(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  st,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bars aggregates the last lookback of ticks for symbol.
func (s *Service) Bars(ctx context.Context, symbol string, tf model.Timeframe, lookback time.Duration) ([]model.Bar, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("bars: %w: %q", model.ErrUnknownTimeframe, tf)
	}
	return s.bars(ctx, normalize(symbol), tf, s.since(lookback))
}

// Pair computes pairs statistics for a and b over the last lookback.
// The two legs are read concurrently.
func (s *Service) Pair(ctx context.Context, a, b string, tf model.Timeframe, window int, lookback time.Duration) (*model.PairsStats, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("pair: %w: %q", model.ErrUnknownTimeframe, tf)
	}
	a, b = normalize(a), normalize(b)
	since := s.since(lookback)

	var barsA, barsB []model.Bar
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		barsA, err = s.bars(gctx, a, tf, since)
		return err
	})
	g.Go(func() error {
		var err error
		barsB, err = s.bars(gctx, b, tf, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats, err := pairs.Compute(barsA, barsB, window)
	if err != nil {
		return nil, fmt.Errorf("pair %s/%s %s: %w", a, b, tf, err)
	}
	return stats, nil
}

// ADF runs the Augmented Dickey-Fuller test on the pair spread.
func (s *Service) ADF(ctx context.Context, a, b string, tf model.Timeframe, window int, lookback time.Duration) (*stationarity.Result, error) {
	stats, err := s.Pair(ctx, a, b, tf, window, lookback)
	if err != nil {
		return nil, err
	}
	res, err := stationarity.ADF(stats.Spread())
	if err != nil {
		return nil, fmt.Errorf("adf %s/%s %s: %w", normalize(a), normalize(b), tf, err)
	}
	return res, nil
}

// Symbols returns up to limit symbols known to the store.
func (s *Service) Symbols(ctx context.Context, limit int) ([]string, error) {
	return s.store.ListSymbols(ctx, limit)
}

func (s *Service) bars(ctx context.Context, symbol string, tf model.Timeframe, since time.Time) ([]model.Bar, error) {
	ticks, err := s.store.QueryTicks(ctx, symbol, since)
	if err != nil {
		return nil, fmt.Errorf("query ticks %s: %w", symbol, err)
	}
	out, err := bars.Aggregate(ticks, tf)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", symbol, err)
	}
	s.logger.Debug("aggregated bars", "symbol", symbol, "tf", tf, "ticks", len(ticks), "bars", len(out))
	return out, nil
}

func (s *Service) since(lookback time.Duration) time.Time {
	return s.now().Add(-lookback)
}

func normalize(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
