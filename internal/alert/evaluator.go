package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/pairs-data/internal/model"
)

// Evaluator periodically checks alert rules and records triggered events.
type Evaluator struct {
	cfg    Config
	rules  RuleStore
	source PairSource
	now    func() time.Time
	logger *slog.Logger

	cycles      atomic.Int64
	evaluated   atomic.Int64
	skipped     atomic.Int64
	triggered   atomic.Int64
	ruleErrors  atomic.Int64
	cycleErrors atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// New creates a new Evaluator.
func New(cfg Config, rules RuleStore, source PairSource, logger *slog.Logger, opts ...Option) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	e := &Evaluator{
		cfg:    cfg,
		rules:  rules,
		source: source,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins the evaluation loop.
func (e *Evaluator) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go e.run()

	e.logger.Info("alert evaluator started",
		"interval", e.cfg.Interval,
		"lookback", e.cfg.Lookback,
	)
	return nil
}

// Stop gracefully shuts down the evaluator.
func (e *Evaluator) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("alert evaluator stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run evaluates rules every interval until ctx is canceled. It always returns nil.
func (e *Evaluator) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		e.RunCycle(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (e *Evaluator) run() {
	defer e.wg.Done()
	_ = e.Run(e.ctx)
}

// RunCycle evaluates every enabled rule once, in rule order.
func (e *Evaluator) RunCycle(ctx context.Context) CycleResult {
	var res CycleResult
	if ctx.Err() != nil {
		return res
	}
	start := time.Now()
	e.cycles.Add(1)

	rules, err := e.rules.ListAlertRules(ctx)
	if err != nil {
		e.cycleErrors.Add(1)
		e.logger.Error("failed to list alert rules", "error", err)
		res.Errors = append(res.Errors, err)
		return res
	}

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		res.Rules++

		fired, evaluated, err := e.evaluate(ctx, rule)
		switch {
		case err != nil:
			e.ruleErrors.Add(1)
			e.logger.Warn("alert rule failed", "rule_id", rule.ID, "rule", rule.Name, "error", err)
			res.Errors = append(res.Errors, err)
		case !evaluated:
			e.skipped.Add(1)
			res.Skipped++
		default:
			e.evaluated.Add(1)
			res.Evaluated++
			if fired {
				e.triggered.Add(1)
				res.Triggered++
			}
		}
	}

	e.logger.Debug("alert cycle complete",
		"rules", res.Rules,
		"evaluated", res.Evaluated,
		"triggered", res.Triggered,
		"errors", len(res.Errors),
		"duration", time.Since(start),
	)
	return res
}

// Stats returns cumulative counters.
func (e *Evaluator) Stats() Stats {
	return Stats{
		Cycles:      e.cycles.Load(),
		Evaluated:   e.evaluated.Load(),
		Skipped:     e.skipped.Load(),
		Triggered:   e.triggered.Load(),
		RuleErrors:  e.ruleErrors.Load(),
		CycleErrors: e.cycleErrors.Load(),
	}
}

// evaluate checks one rule. evaluated is false when the rule was skipped
// for lack of data or an undefined z-score.
func (e *Evaluator) evaluate(ctx context.Context, rule model.AlertRule) (fired, evaluated bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			fired, evaluated = false, false
			err = &RuleError{RuleID: rule.ID, RuleName: rule.Name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	stats, err := e.source.Pair(ctx, rule.SymbolA, rule.SymbolB, rule.Timeframe, rule.Window, e.cfg.Lookback)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientData) {
			e.logger.Debug("alert rule skipped", "rule_id", rule.ID, "reason", err)
			return false, false, nil
		}
		return false, false, &RuleError{RuleID: rule.ID, RuleName: rule.Name, Err: err}
	}

	z, ok := stats.LatestZ()
	if !ok {
		return false, false, nil
	}
	if !(z > rule.Threshold) {
		return false, true, nil
	}

	event := model.AlertEvent{
		Key:     uuid.New(),
		RuleID:  rule.ID,
		TS:      e.now().Truncate(time.Millisecond).UTC(),
		Message: FormatMessage(rule.Name, z, rule.Threshold),
	}
	id, err := e.rules.AppendAlertEvent(ctx, event)
	if err != nil {
		return false, true, &RuleError{RuleID: rule.ID, RuleName: rule.Name, Err: fmt.Errorf("append event: %w", err)}
	}

	e.logger.Info("alert triggered",
		"rule_id", rule.ID,
		"rule", rule.Name,
		"event_id", id,
		"zscore", z,
		"threshold", rule.Threshold,
	)
	return true, true, nil
}

// FormatMessage renders the event message for a triggered rule.
// The threshold keeps a decimal point even when integral ("2.0").
func FormatMessage(name string, z, threshold float64) string {
	return fmt.Sprintf("ALERT: %s | zscore=%.3f > %s", name, z, formatThreshold(threshold))
}

func formatThreshold(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
