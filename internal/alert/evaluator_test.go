package alert

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/pairs-data/internal/model"
	"github.com/rickgao/pairs-data/internal/store"
)

var now = time.Date(2024, 1, 15, 12, 0, 0, 123_456_789, time.UTC)

// fakeSource returns a fixed result per "a/b" pair.
type fakeSource struct {
	mu       sync.Mutex
	results  map[string]float64 // latest z-score
	errs     map[string]error
	panics   map[string]bool
	lookback time.Duration
	calls    int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		results: make(map[string]float64),
		errs:    make(map[string]error),
		panics:  make(map[string]bool),
	}
}

func (f *fakeSource) Pair(_ context.Context, a, b string, _ model.Timeframe, _ int, lookback time.Duration) (*model.PairsStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lookback = lookback

	key := a + "/" + b
	if f.panics[key] {
		panic("boom")
	}
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	z, ok := f.results[key]
	if !ok {
		return nil, &model.InsufficientDataError{Op: "compute pairs", Have: 0, Need: 30}
	}
	return &model.PairsStats{
		Beta: 1,
		Rows: []model.PairRow{{TS: now, ZScore: z}},
		N:    1,
	}, nil
}

func addRule(t *testing.T, st store.Store, name, a, b string, threshold float64, enabled bool) int64 {
	t.Helper()
	id, err := st.UpsertAlertRule(context.Background(), model.AlertRule{
		Name:      name,
		SymbolA:   a,
		SymbolB:   b,
		Timeframe: model.Timeframe1m,
		Window:    60,
		Threshold: threshold,
		Enabled:   enabled,
	})
	if err != nil {
		t.Fatalf("UpsertAlertRule() error = %v", err)
	}
	return id
}

func newTestEvaluator(st store.Store, src PairSource) *Evaluator {
	return New(Config{Interval: time.Hour, Lookback: 7200 * time.Second}, st, src, nil,
		WithClock(func() time.Time { return now }))
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name      string
		z         float64
		threshold float64
		want      string
	}{
		{"integral threshold", 2.34567, 2, "ALERT: btc-eth | zscore=2.346 > 2.0"},
		{"fractional threshold", 1.5, 1.25, "ALERT: btc-eth | zscore=1.500 > 1.25"},
		{"negative threshold", -0.5, -1, "ALERT: btc-eth | zscore=-0.500 > -1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatMessage("btc-eth", tt.z, tt.threshold); got != tt.want {
				t.Errorf("FormatMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunCycle_Triggers(t *testing.T) {
	st := store.NewMemoryStore()
	id := addRule(t, st, "btc-eth", "btcusdt", "ethusdt", 2.0, true)
	src := newFakeSource()
	src.results["btcusdt/ethusdt"] = 2.5

	e := newTestEvaluator(st, src)
	res := e.RunCycle(context.Background())

	if res.Triggered != 1 || res.Evaluated != 1 || len(res.Errors) != 0 {
		t.Fatalf("RunCycle() = %+v, want 1 triggered", res)
	}
	if src.lookback != 7200*time.Second {
		t.Errorf("lookback = %v, want 2h", src.lookback)
	}

	events, err := st.ListAlertEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListAlertEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.RuleID != id {
		t.Errorf("RuleID = %d, want %d", ev.RuleID, id)
	}
	if ev.RuleName != "btc-eth" {
		t.Errorf("RuleName = %q, want btc-eth", ev.RuleName)
	}
	if ev.Message != "ALERT: btc-eth | zscore=2.500 > 2.0" {
		t.Errorf("Message = %q", ev.Message)
	}
	if want := now.Truncate(time.Millisecond); !ev.TS.Equal(want) {
		t.Errorf("TS = %v, want %v", ev.TS, want)
	}
}

func TestRunCycle_ThresholdComparison(t *testing.T) {
	tests := []struct {
		name      string
		z         float64
		threshold float64
		fire      bool
	}{
		{"above", 2.01, 2.0, true},
		{"equal does not fire", 2.0, 2.0, false},
		{"below", 1.99, 2.0, false},
		{"large negative does not fire", -5.0, 2.0, false},
		{"negative threshold", -0.5, -1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			addRule(t, st, "r", "a", "b", tt.threshold, true)
			src := newFakeSource()
			src.results["a/b"] = tt.z

			res := newTestEvaluator(st, src).RunCycle(context.Background())
			if got := res.Triggered == 1; got != tt.fire {
				t.Errorf("fired = %v, want %v", got, tt.fire)
			}
			if res.Evaluated != 1 {
				t.Errorf("Evaluated = %d, want 1", res.Evaluated)
			}
		})
	}
}

func TestRunCycle_SkipsDisabledAndInsufficient(t *testing.T) {
	st := store.NewMemoryStore()
	addRule(t, st, "disabled", "a", "b", 0, false)
	addRule(t, st, "no-data", "c", "d", 0, true)
	addRule(t, st, "nan", "e", "f", 0, true)
	src := newFakeSource()
	src.results["a/b"] = 10
	src.results["e/f"] = math.NaN()

	res := newTestEvaluator(st, src).RunCycle(context.Background())

	if res.Rules != 2 {
		t.Errorf("Rules = %d, want 2", res.Rules)
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", res.Skipped)
	}
	if res.Triggered != 0 || len(res.Errors) != 0 {
		t.Errorf("RunCycle() = %+v, want no triggers or errors", res)
	}
	if src.calls != 2 {
		t.Errorf("source calls = %d, want 2", src.calls)
	}
}

func TestRunCycle_IsolatesRuleFailures(t *testing.T) {
	st := store.NewMemoryStore()
	addRule(t, st, "broken", "a", "b", 1, true)
	addRule(t, st, "panics", "c", "d", 1, true)
	addRule(t, st, "ok", "e", "f", 1, true)
	src := newFakeSource()
	src.errs["a/b"] = errors.New("store unavailable")
	src.panics["c/d"] = true
	src.results["e/f"] = 3

	e := newTestEvaluator(st, src)
	res := e.RunCycle(context.Background())

	if res.Triggered != 1 {
		t.Errorf("Triggered = %d, want 1", res.Triggered)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("len(Errors) = %d, want 2", len(res.Errors))
	}
	for _, err := range res.Errors {
		var re *RuleError
		if !errors.As(err, &re) {
			t.Errorf("error %v is not a *RuleError", err)
		}
	}
	if !strings.Contains(res.Errors[1].Error(), "panic") {
		t.Errorf("second error = %v, want panic", res.Errors[1])
	}

	stats := e.Stats()
	if stats.RuleErrors != 2 || stats.Triggered != 1 || stats.Cycles != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

type failingRules struct{}

func (failingRules) ListAlertRules(context.Context) ([]model.AlertRule, error) {
	return nil, errors.New("db down")
}

func (failingRules) AppendAlertEvent(context.Context, model.AlertEvent) (int64, error) {
	return 0, errors.New("db down")
}

func TestRunCycle_ListFailure(t *testing.T) {
	e := New(Config{}, failingRules{}, newFakeSource(), nil)
	res := e.RunCycle(context.Background())
	if len(res.Errors) != 1 {
		t.Errorf("len(Errors) = %d, want 1", len(res.Errors))
	}
	if e.Stats().CycleErrors != 1 {
		t.Errorf("CycleErrors = %d, want 1", e.Stats().CycleErrors)
	}
}

func TestRunCycle_CanceledContext(t *testing.T) {
	st := store.NewMemoryStore()
	addRule(t, st, "r", "a", "b", 0, true)
	src := newFakeSource()
	src.results["a/b"] = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestEvaluator(st, src).RunCycle(ctx)
	if res.Rules != 0 || src.calls != 0 {
		t.Errorf("RunCycle() on canceled ctx = %+v, calls = %d", res, src.calls)
	}
}

func TestEvaluator_StartStop(t *testing.T) {
	st := store.NewMemoryStore()
	addRule(t, st, "r", "a", "b", 0, true)
	src := newFakeSource()
	src.results["a/b"] = 1

	e := New(Config{Interval: 10 * time.Millisecond}, st, src, nil)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.Stats().Cycles < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := e.Stats().Cycles; got < 3 {
		t.Errorf("Cycles = %d, want >= 3", got)
	}
	events, _ := st.ListAlertEvents(context.Background(), 100)
	if int64(len(events)) != e.Stats().Triggered {
		t.Errorf("events = %d, want %d", len(events), e.Stats().Triggered)
	}
}

func TestNew_DefaultConfig(t *testing.T) {
	cfg := New(Config{}, store.NewMemoryStore(), newFakeSource(), nil).cfg
	if cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want %+v", cfg, DefaultConfig())
	}
}
