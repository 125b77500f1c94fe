package store

// sqliteSchema mirrors postgresSchema with SQLite types. The rule window column is
// window_size because WINDOW is reserved in both dialects.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS ticks (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		ts_ms  INTEGER NOT NULL,
		ts_iso TEXT NOT NULL,
		symbol TEXT NOT NULL,
		price  REAL NOT NULL,
		size   REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_symbol_ts ON ticks(symbol, ts_ms)`,
	`CREATE TABLE IF NOT EXISTS alert_rules (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		symbol_a    TEXT NOT NULL,
		symbol_b    TEXT NOT NULL,
		timeframe   TEXT NOT NULL,
		window_size INTEGER NOT NULL,
		threshold   REAL NOT NULL,
		enabled     INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS alert_events (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		event_key TEXT NOT NULL UNIQUE,
		rule_id   INTEGER NOT NULL,
		ts_ms     INTEGER NOT NULL,
		message   TEXT NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS ticks (
		id     BIGSERIAL PRIMARY KEY,
		ts_ms  BIGINT NOT NULL,
		symbol TEXT NOT NULL,
		price  DOUBLE PRECISION NOT NULL,
		size   DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_symbol_ts ON ticks(symbol, ts_ms)`,
	`CREATE TABLE IF NOT EXISTS alert_rules (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		symbol_a    TEXT NOT NULL,
		symbol_b    TEXT NOT NULL,
		timeframe   TEXT NOT NULL,
		window_size INTEGER NOT NULL,
		threshold   DOUBLE PRECISION NOT NULL,
		enabled     BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS alert_events (
		id        BIGSERIAL PRIMARY KEY,
		event_key UUID NOT NULL UNIQUE,
		rule_id   BIGINT NOT NULL,
		ts_ms     BIGINT NOT NULL,
		message   TEXT NOT NULL
	)`,
}
