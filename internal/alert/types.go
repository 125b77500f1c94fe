package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/pairs-data/internal/config"
	"github.com/rickgao/pairs-data/internal/model"
)

// PairSource computes pair statistics for a rule.
type PairSource interface {
	Pair(ctx context.Context, a, b string, tf model.Timeframe, window int, lookback time.Duration) (*model.PairsStats, error)
}

// RuleStore lists rules and records events.
type RuleStore interface {
	ListAlertRules(ctx context.Context) ([]model.AlertRule, error)
	AppendAlertEvent(ctx context.Context, event model.AlertEvent) (int64, error)
}

// Config holds evaluator configuration.
type Config struct {
	Interval time.Duration // Time between cycles (default: 1s)
	Lookback time.Duration // Tick history per evaluation (default: 2h)
	Timeout  time.Duration // Per-rule deadline (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: config.DefaultAlertInterval,
		Lookback: config.DefaultAlertLookback,
		Timeout:  10 * time.Second,
	}
}

// ConfigFrom converts the loaded alerts section.
func ConfigFrom(c config.AlertsConfig) Config {
	cfg := DefaultConfig()
	if c.Interval > 0 {
		cfg.Interval = c.Interval.D()
	}
	if c.Lookback > 0 {
		cfg.Lookback = c.Lookback.D()
	}
	return cfg
}

// RuleError is a failure evaluating one rule.
type RuleError struct {
	RuleID   int64
	RuleName string
	Err      error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %d (%s): %v", e.RuleID, e.RuleName, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// CycleResult summarizes one evaluation cycle.
type CycleResult struct {
	Rules     int // Enabled rules seen
	Evaluated int // Rules with a defined z-score
	Skipped   int // Rules without enough data or with an undefined z-score
	Triggered int // Events recorded
	Errors    []error
}

// Stats holds cumulative evaluator counters.
type Stats struct {
	Cycles      int64
	Evaluated   int64
	Skipped     int64
	Triggered   int64
	RuleErrors  int64
	CycleErrors int64
}
