// Package database opens the connections behind the tick store.
//
// Two backends are supported:
//   - SQLite (modernc.org/sqlite, pure Go): the default single-node store, opened in WAL mode
//   - PostgreSQL (pgx/v5 pool): for deployments that share the tick history with other tools
package database
