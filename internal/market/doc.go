// Package market holds the in-memory view of the most recent trade per symbol.
//
// The cache is written by the ingestion goroutine and read by HTTP handlers
// and the report CLI. It never touches the store.
package market
