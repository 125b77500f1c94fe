package store

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/pairs-data/internal/model"
)

// Errors
var (
	ErrClosed       = errors.New("store closed")
	ErrRuleNotFound = errors.New("alert rule not found")
)

// Default limits applied when a caller passes a non-positive limit.
const (
	DefaultSymbolLimit = 50
	DefaultEventLimit  = 200
)

// Store is the persistence contract used by ingestion, analytics and alerting.
type Store interface {
	// AppendTick stores one tick.
	AppendTick(ctx context.Context, tick model.Tick) error

	// AppendTicks stores a batch of ticks atomically where the backend allows it.
	AppendTicks(ctx context.Context, ticks []model.Tick) error

	// QueryTicks returns ticks for symbol with TS >= since, oldest first.
	QueryTicks(ctx context.Context, symbol string, since time.Time) ([]model.Tick, error)

	// ListSymbols returns up to limit distinct symbols in lexical order.
	ListSymbols(ctx context.Context, limit int) ([]string, error)

	// UpsertAlertRule inserts a rule when ID is zero and updates it otherwise.
	// It returns the rule ID.
	UpsertAlertRule(ctx context.Context, rule model.AlertRule) (int64, error)

	// ListAlertRules returns every rule ordered by ID.
	ListAlertRules(ctx context.Context) ([]model.AlertRule, error)

	// AppendAlertEvent stores an event and returns its ID. Appending an event
	// whose Key already exists returns the existing ID without a second row.
	AppendAlertEvent(ctx context.Context, event model.AlertEvent) (int64, error)

	// ListAlertEvents returns up to limit events, newest first, with RuleName set.
	ListAlertEvents(ctx context.Context, limit int) ([]model.AlertEvent, error)

	Ping(ctx context.Context) error
	Close() error
}

func symbolLimit(limit int) int {
	if limit <= 0 {
		return DefaultSymbolLimit
	}
	return limit
}

func eventLimit(limit int) int {
	if limit <= 0 {
		return DefaultEventLimit
	}
	return limit
}

// toMillis and fromMillis fix the storage precision of all timestamps.
func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
