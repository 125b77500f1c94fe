package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/pairs-data/internal/config"
	"github.com/rickgao/pairs-data/internal/database"
	"github.com/rickgao/pairs-data/internal/model"
)

var baseTS = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func tick(sym string, offsetMs int64, price float64) model.Tick {
	return model.Tick{
		TS:     baseTS.Add(time.Duration(offsetMs) * time.Millisecond),
		Symbol: sym,
		Price:  price,
		Size:   0.5,
	}
}

func testRule(name string) model.AlertRule {
	return model.AlertRule{
		Name:      name,
		SymbolA:   "btcusdt",
		SymbolB:   "ethusdt",
		Timeframe: model.Timeframe1m,
		Window:    60,
		Threshold: 2.0,
		Enabled:   true,
	}
}

// runStoreSuite exercises the Store contract against one backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("query ticks ordered and filtered", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.AppendTicks(ctx, []model.Tick{
			tick("btcusdt", 2000, 102),
			tick("btcusdt", 0, 100),
			tick("ethusdt", 500, 10),
		}); err != nil {
			t.Fatalf("AppendTicks failed: %v", err)
		}
		if err := s.AppendTick(ctx, tick("btcusdt", 1000, 101)); err != nil {
			t.Fatalf("AppendTick failed: %v", err)
		}

		got, err := s.QueryTicks(ctx, "btcusdt", baseTS)
		if err != nil {
			t.Fatalf("QueryTicks failed: %v", err)
		}
		wantPrices := []float64{100, 101, 102}
		if len(got) != len(wantPrices) {
			t.Fatalf("QueryTicks returned %d ticks, want %d", len(got), len(wantPrices))
		}
		for i, p := range wantPrices {
			if got[i].Price != p {
				t.Errorf("tick[%d].Price = %v, want %v", i, got[i].Price, p)
			}
			if got[i].Symbol != "btcusdt" {
				t.Errorf("tick[%d].Symbol = %q, want btcusdt", i, got[i].Symbol)
			}
		}
		if !got[1].TS.Equal(baseTS.Add(time.Second)) {
			t.Errorf("tick[1].TS = %v, want %v", got[1].TS, baseTS.Add(time.Second))
		}
		if got[0].Size != 0.5 {
			t.Errorf("tick[0].Size = %v, want 0.5", got[0].Size)
		}

		// since is inclusive
		got, err = s.QueryTicks(ctx, "btcusdt", baseTS.Add(time.Second))
		if err != nil {
			t.Fatalf("QueryTicks failed: %v", err)
		}
		if len(got) != 2 || got[0].Price != 101 {
			t.Errorf("QueryTicks(since=+1s) = %+v, want prices [101 102]", got)
		}

		got, err = s.QueryTicks(ctx, "solusdt", baseTS)
		if err != nil {
			t.Fatalf("QueryTicks failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("QueryTicks(unknown) returned %d ticks, want 0", len(got))
		}
	})

	t.Run("equal timestamps keep insertion order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i, p := range []float64{5, 3, 4} {
			if err := s.AppendTick(ctx, tick("bnbusdt", 100, p)); err != nil {
				t.Fatalf("AppendTick %d failed: %v", i, err)
			}
		}
		got, err := s.QueryTicks(ctx, "bnbusdt", time.Time{})
		if err != nil {
			t.Fatalf("QueryTicks failed: %v", err)
		}
		if len(got) != 3 || got[0].Price != 5 || got[1].Price != 3 || got[2].Price != 4 {
			t.Errorf("QueryTicks = %+v, want prices [5 3 4]", got)
		}
	})

	t.Run("list symbols", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, sym := range []string{"solusdt", "btcusdt", "ethusdt", "btcusdt"} {
			if err := s.AppendTick(ctx, tick(sym, 0, 1)); err != nil {
				t.Fatalf("AppendTick failed: %v", err)
			}
		}

		got, err := s.ListSymbols(ctx, 0)
		if err != nil {
			t.Fatalf("ListSymbols failed: %v", err)
		}
		want := []string{"btcusdt", "ethusdt", "solusdt"}
		if len(got) != len(want) {
			t.Fatalf("ListSymbols = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("ListSymbols[%d] = %q, want %q", i, got[i], want[i])
			}
		}

		got, err = s.ListSymbols(ctx, 2)
		if err != nil {
			t.Fatalf("ListSymbols failed: %v", err)
		}
		if len(got) != 2 || got[1] != "ethusdt" {
			t.Errorf("ListSymbols(2) = %v, want [btcusdt ethusdt]", got)
		}
	})

	t.Run("upsert alert rules", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		id1, err := s.UpsertAlertRule(ctx, testRule("first"))
		if err != nil {
			t.Fatalf("UpsertAlertRule failed: %v", err)
		}
		id2, err := s.UpsertAlertRule(ctx, testRule("second"))
		if err != nil {
			t.Fatalf("UpsertAlertRule failed: %v", err)
		}
		if id1 <= 0 || id2 <= id1 {
			t.Fatalf("ids = %d, %d, want positive and increasing", id1, id2)
		}

		updated := testRule("first-updated")
		updated.ID = id1
		updated.Threshold = 3.5
		updated.Enabled = false
		updated.Timeframe = model.Timeframe5m
		if got, err := s.UpsertAlertRule(ctx, updated); err != nil || got != id1 {
			t.Fatalf("UpsertAlertRule(update) = %d, %v, want %d, nil", got, err, id1)
		}

		rules, err := s.ListAlertRules(ctx)
		if err != nil {
			t.Fatalf("ListAlertRules failed: %v", err)
		}
		if len(rules) != 2 {
			t.Fatalf("ListAlertRules returned %d rules, want 2", len(rules))
		}
		r := rules[0]
		if r.ID != id1 || r.Name != "first-updated" || r.Threshold != 3.5 || r.Enabled || r.Timeframe != model.Timeframe5m {
			t.Errorf("rules[0] = %+v, want updated first rule", r)
		}
		if r.SymbolA != "btcusdt" || r.SymbolB != "ethusdt" || r.Window != 60 {
			t.Errorf("rules[0] legs/window = %s/%s/%d, want btcusdt/ethusdt/60", r.SymbolA, r.SymbolB, r.Window)
		}
		if rules[1].ID != id2 || !rules[1].Enabled {
			t.Errorf("rules[1] = %+v, want enabled rule %d", rules[1], id2)
		}

		missing := testRule("ghost")
		missing.ID = id2 + 100
		if _, err := s.UpsertAlertRule(ctx, missing); !errors.Is(err, ErrRuleNotFound) {
			t.Errorf("UpsertAlertRule(missing id) error = %v, want ErrRuleNotFound", err)
		}

		invalid := testRule("bad")
		invalid.Window = 1
		if _, err := s.UpsertAlertRule(ctx, invalid); !errors.Is(err, model.ErrInvalidRule) {
			t.Errorf("UpsertAlertRule(invalid) error = %v, want ErrInvalidRule", err)
		}
	})

	t.Run("alert events idempotent and newest first", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ruleID, err := s.UpsertAlertRule(ctx, testRule("spread-wide"))
		if err != nil {
			t.Fatalf("UpsertAlertRule failed: %v", err)
		}

		key := uuid.New()
		first := model.AlertEvent{Key: key, RuleID: ruleID, TS: baseTS, Message: "ALERT: spread-wide | zscore=2.500 > 2.0"}
		id1, err := s.AppendAlertEvent(ctx, first)
		if err != nil {
			t.Fatalf("AppendAlertEvent failed: %v", err)
		}
		again, err := s.AppendAlertEvent(ctx, first)
		if err != nil {
			t.Fatalf("AppendAlertEvent(duplicate) failed: %v", err)
		}
		if again != id1 {
			t.Errorf("AppendAlertEvent(duplicate) id = %d, want %d", again, id1)
		}

		second := model.AlertEvent{RuleID: ruleID, TS: baseTS.Add(time.Second), Message: "second"}
		id2, err := s.AppendAlertEvent(ctx, second)
		if err != nil {
			t.Fatalf("AppendAlertEvent failed: %v", err)
		}
		if id2 <= id1 {
			t.Errorf("second id = %d, want > %d", id2, id1)
		}

		events, err := s.ListAlertEvents(ctx, 0)
		if err != nil {
			t.Fatalf("ListAlertEvents failed: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("ListAlertEvents returned %d events, want 2", len(events))
		}
		if events[0].ID != id2 || events[1].ID != id1 {
			t.Errorf("event ids = %d, %d, want %d, %d", events[0].ID, events[1].ID, id2, id1)
		}
		if events[1].Key != key {
			t.Errorf("events[1].Key = %s, want %s", events[1].Key, key)
		}
		if events[0].Key == uuid.Nil {
			t.Error("events[0].Key is nil, want generated key")
		}
		if events[1].RuleName != "spread-wide" || events[1].RuleID != ruleID {
			t.Errorf("events[1] rule = %d/%q, want %d/spread-wide", events[1].RuleID, events[1].RuleName, ruleID)
		}
		if !events[1].TS.Equal(baseTS) || events[1].Message != first.Message {
			t.Errorf("events[1] = %+v, want ts %v message %q", events[1], baseTS, first.Message)
		}

		events, err = s.ListAlertEvents(ctx, 1)
		if err != nil {
			t.Fatalf("ListAlertEvents failed: %v", err)
		}
		if len(events) != 1 || events[0].ID != id2 {
			t.Errorf("ListAlertEvents(1) = %+v, want only event %d", events, id2)
		}
	})

	t.Run("concurrent appends and reads", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 25; i++ {
					if err := s.AppendTick(ctx, tick("btcusdt", int64(w*1000+i), 100)); err != nil {
						t.Errorf("AppendTick failed: %v", err)
						return
					}
					if _, err := s.QueryTicks(ctx, "btcusdt", baseTS); err != nil {
						t.Errorf("QueryTicks failed: %v", err)
						return
					}
				}
			}(w)
		}
		wg.Wait()

		got, err := s.QueryTicks(ctx, "btcusdt", baseTS)
		if err != nil {
			t.Fatalf("QueryTicks failed: %v", err)
		}
		if len(got) != 100 {
			t.Fatalf("QueryTicks returned %d ticks, want 100", len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].TS.Before(got[i-1].TS) {
				t.Fatalf("ticks out of order at %d: %v before %v", i, got[i].TS, got[i-1].TS)
			}
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.AppendTick(context.Background(), tick("btcusdt", 0, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("AppendTick after Close = %v, want ErrClosed", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping after Close = %v, want ErrClosed", err)
	}
}

func TestMemoryStoreQueryReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.AppendTick(ctx, tick("btcusdt", 0, 100)); err != nil {
		t.Fatalf("AppendTick failed: %v", err)
	}
	got, _ := s.QueryTicks(ctx, "btcusdt", baseTS)
	got[0].Price = -1

	again, _ := s.QueryTicks(ctx, "btcusdt", baseTS)
	if again[0].Price != 100 {
		t.Errorf("stored price = %v after caller mutation, want 100", again[0].Price)
	}
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		cfg := config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "ticks.db")}
		s, err := Open(context.Background(), config.StoreConfig{Driver: "sqlite", SQLite: cfg}, nil)
		if err != nil {
			t.Fatalf("Open sqlite failed: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	cfg := config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "ticks.db")}

	db, err := database.OpenSQLite(ctx, cfg)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	s, err := NewSQLiteStore(ctx, db, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := s.AppendTick(ctx, tick("btcusdt", 0, 42)); err != nil {
		t.Fatalf("AppendTick failed: %v", err)
	}
	s.Close()

	db, err = database.OpenSQLite(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	s, err = NewSQLiteStore(ctx, db, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore on existing schema failed: %v", err)
	}
	defer s.Close()

	got, err := s.QueryTicks(ctx, "btcusdt", baseTS)
	if err != nil {
		t.Fatalf("QueryTicks failed: %v", err)
	}
	if len(got) != 1 || got[0].Price != 42 {
		t.Errorf("QueryTicks after reopen = %+v, want one tick at 42", got)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"}, nil); err == nil {
		t.Error("Open(mysql) expected error, got nil")
	}
}
