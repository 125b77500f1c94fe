// Package api serves the HTTP query and command surface.
//
// Endpoints:
//   - GET  /health, /metrics
//   - GET  /symbols, /latest_tick, /bars
//   - GET  /pairs/analytics, /pairs/adf
//   - POST /alerts; GET /alerts, /alerts/events
//   - GET  /export/bars.{csv,json,parquet}, /export/analytics.{csv,json,parquet}
//
// Query parameters follow one convention: symbols are case-insensitive,
// the timeframe is tf (timeframe is accepted as an alias), and lookbacks are
// lookback_sec. Missing data answers 422, malformed parameters 400.
package api
