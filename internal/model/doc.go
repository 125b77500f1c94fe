// Package model defines shared data types used across the pairs analytics pipeline.
//
// Conventions:
//   - Symbols: lowercase exchange symbols (e.g. "btcusdt")
//   - Timestamps: time.Time at millisecond precision, UTC
//   - Prices and sizes: float64
//   - Alert event keys: uuid.UUID, used for idempotent inserts
package model
