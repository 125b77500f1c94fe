package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/pairs-data/internal/model"
)

// SQLiteStore is a Store backed by a database/sql handle using the modernc.org/sqlite driver.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates the schema if needed and returns a store over db.
// The store takes ownership of db; Close closes it.
func NewSQLiteStore(ctx context.Context, db *sql.DB, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) AppendTick(ctx context.Context, tick model.Tick) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ticks (ts_ms, ts_iso, symbol, price, size) VALUES (?, ?, ?, ?, ?)`,
		toMillis(tick.TS), isoMillis(tick.TS), tick.Symbol, tick.Price, tick.Size,
	)
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AppendTicks(ctx context.Context, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ticks (ts_ms, ts_iso, symbol, price, size) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range ticks {
		if _, err := stmt.ExecContext(ctx, toMillis(t.TS), isoMillis(t.TS), t.Symbol, t.Price, t.Size); err != nil {
			return fmt.Errorf("insert tick: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ticks: %w", err)
	}
	return nil
}

func (s *SQLiteStore) QueryTicks(ctx context.Context, symbol string, since time.Time) ([]model.Tick, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts_ms, price, size FROM ticks WHERE symbol = ? AND ts_ms >= ? ORDER BY ts_ms ASC, id ASC`,
		symbol, toMillis(since),
	)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var out []model.Tick
	for rows.Next() {
		var ms int64
		t := model.Tick{Symbol: symbol}
		if err := rows.Scan(&ms, &t.Price, &t.Size); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		t.TS = fromMillis(ms)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListSymbols(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT symbol FROM ticks ORDER BY symbol LIMIT ?`, symbolLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertAlertRule(ctx context.Context, rule model.AlertRule) (int64, error) {
	if err := rule.Validate(); err != nil {
		return 0, err
	}

	if rule.ID > 0 {
		res, err := s.db.ExecContext(ctx, `
			UPDATE alert_rules
			SET name = ?, symbol_a = ?, symbol_b = ?, timeframe = ?, window_size = ?, threshold = ?, enabled = ?
			WHERE id = ?`,
			rule.Name, rule.SymbolA, rule.SymbolB, string(rule.Timeframe), rule.Window, rule.Threshold, rule.Enabled, rule.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("update alert rule: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("update alert rule: %w", err)
		}
		if n == 0 {
			return 0, fmt.Errorf("%w: id %d", ErrRuleNotFound, rule.ID)
		}
		return rule.ID, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_rules (name, symbol_a, symbol_b, timeframe, window_size, threshold, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.Name, rule.SymbolA, rule.SymbolB, string(rule.Timeframe), rule.Window, rule.Threshold, rule.Enabled,
	)
	if err != nil {
		return 0, fmt.Errorf("insert alert rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert alert rule: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListAlertRules(ctx context.Context) ([]model.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, symbol_a, symbol_b, timeframe, window_size, threshold, enabled
		FROM alert_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}
	defer rows.Close()

	var out []model.AlertRule
	for rows.Next() {
		var r model.AlertRule
		var tf string
		if err := rows.Scan(&r.ID, &r.Name, &r.SymbolA, &r.SymbolB, &tf, &r.Window, &r.Threshold, &r.Enabled); err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}
		r.Timeframe = model.Timeframe(tf)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendAlertEvent(ctx context.Context, event model.AlertEvent) (int64, error) {
	if event.Key == uuid.Nil {
		event.Key = uuid.New()
	}
	key := event.Key.String()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_events (event_key, rule_id, ts_ms, message)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (event_key) DO NOTHING`,
		key, event.RuleID, toMillis(event.TS), event.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("insert alert event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert alert event: %w", err)
	}
	if n > 0 {
		return res.LastInsertId()
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM alert_events WHERE event_key = ?`, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("alert event %s vanished after conflict", key)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup alert event: %w", err)
	}
	s.logger.Debug("duplicate alert event ignored", "key", key, "id", id)
	return id, nil
}

func (s *SQLiteStore) ListAlertEvents(ctx context.Context, limit int) ([]model.AlertEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.event_key, e.rule_id, r.name, e.ts_ms, e.message
		FROM alert_events e
		JOIN alert_rules r ON r.id = e.rule_id
		ORDER BY e.id DESC
		LIMIT ?`, eventLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list alert events: %w", err)
	}
	defer rows.Close()

	var out []model.AlertEvent
	for rows.Next() {
		var e model.AlertEvent
		var key string
		var ms int64
		if err := rows.Scan(&e.ID, &key, &e.RuleID, &e.RuleName, &ms, &e.Message); err != nil {
			return nil, fmt.Errorf("scan alert event: %w", err)
		}
		if e.Key, err = uuid.Parse(key); err != nil {
			return nil, fmt.Errorf("parse event key %q: %w", key, err)
		}
		e.TS = fromMillis(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isoMillis(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
