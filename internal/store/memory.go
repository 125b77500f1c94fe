package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/pairs-data/internal/model"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	ticks  map[string][]model.Tick
	rules  []model.AlertRule // rules[i].ID == i+1
	events []model.AlertEvent
	keys   map[uuid.UUID]int64
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ticks: make(map[string][]model.Tick),
		keys:  make(map[uuid.UUID]int64),
	}
}

func (s *MemoryStore) AppendTick(ctx context.Context, tick model.Tick) error {
	return s.AppendTicks(ctx, []model.Tick{tick})
}

func (s *MemoryStore) AppendTicks(ctx context.Context, ticks []model.Tick) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	for _, t := range ticks {
		t.TS = t.TS.Truncate(time.Millisecond).UTC()
		series := s.ticks[t.Symbol]
		// Insert after any tick with an equal or earlier timestamp.
		i := sort.Search(len(series), func(i int) bool { return series[i].TS.After(t.TS) })
		s.ticks[t.Symbol] = slices.Insert(series, i, t)
	}
	return nil
}

func (s *MemoryStore) QueryTicks(ctx context.Context, symbol string, since time.Time) ([]model.Tick, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	series := s.ticks[symbol]
	sinceMs := toMillis(since)
	i := sort.Search(len(series), func(i int) bool { return toMillis(series[i].TS) >= sinceMs })
	return slices.Clone(series[i:]), nil
}

func (s *MemoryStore) ListSymbols(ctx context.Context, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]string, 0, len(s.ticks))
	for sym, series := range s.ticks {
		if len(series) > 0 {
			out = append(out, sym)
		}
	}
	slices.Sort(out)
	if n := symbolLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *MemoryStore) UpsertAlertRule(ctx context.Context, rule model.AlertRule) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := rule.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	if rule.ID > 0 {
		if rule.ID > int64(len(s.rules)) {
			return 0, fmt.Errorf("%w: id %d", ErrRuleNotFound, rule.ID)
		}
		s.rules[rule.ID-1] = rule
		return rule.ID, nil
	}

	rule.ID = int64(len(s.rules)) + 1
	s.rules = append(s.rules, rule)
	return rule.ID, nil
}

func (s *MemoryStore) ListAlertRules(ctx context.Context) ([]model.AlertRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return slices.Clone(s.rules), nil
}

func (s *MemoryStore) AppendAlertEvent(ctx context.Context, event model.AlertEvent) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if event.Key == uuid.Nil {
		event.Key = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	if id, ok := s.keys[event.Key]; ok {
		return id, nil
	}
	event.ID = int64(len(s.events)) + 1
	event.TS = event.TS.Truncate(time.Millisecond).UTC()
	event.RuleName = ""
	s.events = append(s.events, event)
	s.keys[event.Key] = event.ID
	return event.ID, nil
}

func (s *MemoryStore) ListAlertEvents(ctx context.Context, limit int) ([]model.AlertEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	n := eventLimit(limit)
	out := make([]model.AlertEvent, 0, min(n, len(s.events)))
	for i := len(s.events) - 1; i >= 0 && len(out) < n; i-- {
		e := s.events[i]
		// Events are joined to their rule; orphans are not listed.
		if e.RuleID < 1 || e.RuleID > int64(len(s.rules)) {
			continue
		}
		e.RuleName = s.rules[e.RuleID-1].Name
		out = append(out, e)
	}
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
