package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/pairs-data/internal/model"
)

// PostgresStore is a Store backed by a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates the schema if needed and returns a store over pool.
// The store takes ownership of pool; Close closes it.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) AppendTick(ctx context.Context, tick model.Tick) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ticks (ts_ms, symbol, price, size) VALUES ($1, $2, $3, $4)`,
		toMillis(tick.TS), tick.Symbol, tick.Price, tick.Size,
	)
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}
	return nil
}

// AppendTicks sends the batch in one round trip using pgx.Batch.
func (s *PostgresStore) AppendTicks(ctx context.Context, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range ticks {
		batch.Queue(`
			INSERT INTO ticks (ts_ms, symbol, price, size)
			VALUES ($1, $2, $3, $4)
		`, toMillis(t.TS), t.Symbol, t.Price, t.Size)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range ticks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert tick: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) QueryTicks(ctx context.Context, symbol string, since time.Time) ([]model.Tick, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ts_ms, price, size FROM ticks WHERE symbol = $1 AND ts_ms >= $2 ORDER BY ts_ms ASC, id ASC`,
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

func (s *PostgresStore) ListSymbols(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT symbol FROM ticks ORDER BY symbol LIMIT $1`, symbolLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan symbols: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertAlertRule(ctx context.Context, rule model.AlertRule) (int64, error) {
	if err := rule.Validate(); err != nil {
		return 0, err
	}

	if rule.ID > 0 {
		ct, err := s.pool.Exec(ctx, `
			UPDATE alert_rules
			SET name = $1, symbol_a = $2, symbol_b = $3, timeframe = $4, window_size = $5, threshold = $6, enabled = $7
			WHERE id = $8`,
			rule.Name, rule.SymbolA, rule.SymbolB, string(rule.Timeframe), rule.Window, rule.Threshold, rule.Enabled, rule.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("update alert rule: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return 0, fmt.Errorf("%w: id %d", ErrRuleNotFound, rule.ID)
		}
		return rule.ID, nil
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO alert_rules (name, symbol_a, symbol_b, timeframe, window_size, threshold, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		rule.Name, rule.SymbolA, rule.SymbolB, string(rule.Timeframe), rule.Window, rule.Threshold, rule.Enabled,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert alert rule: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListAlertRules(ctx context.Context) ([]model.AlertRule, error) {
	rows, err := s.pool.Query(ctx, `
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

func (s *PostgresStore) AppendAlertEvent(ctx context.Context, event model.AlertEvent) (int64, error) {
	if event.Key == uuid.Nil {
		event.Key = uuid.New()
	}
	key := event.Key.String()

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO alert_events (event_key, rule_id, ts_ms, message)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_key) DO NOTHING
		RETURNING id`,
		key, event.RuleID, toMillis(event.TS), event.Message,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("insert alert event: %w", err)
	}

	// Conflict: return the existing row.
	if err := s.pool.QueryRow(ctx, `SELECT id FROM alert_events WHERE event_key = $1`, key).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup alert event: %w", err)
	}
	s.logger.Debug("duplicate alert event ignored", "key", key, "id", id)
	return id, nil
}

func (s *PostgresStore) ListAlertEvents(ctx context.Context, limit int) ([]model.AlertEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.event_key::text, e.rule_id, r.name, e.ts_ms, e.message
		FROM alert_events e
		JOIN alert_rules r ON r.id = e.rule_id
		ORDER BY e.id DESC
		LIMIT $1`, eventLimit(limit))
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
