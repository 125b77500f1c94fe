// Package store persists ticks, alert rules and alert events.
//
// Three backends implement Store:
//   - MemoryStore: process-local, used by tests and the "memory" driver
//   - SQLiteStore: the default, a single WAL-mode database file
//   - PostgresStore: a pgx pool, batched inserts
//
// All backends are safe for concurrent use. Ticks are returned in ascending
// timestamp order; ticks with equal timestamps keep their insertion order.
package store
