// Package analytics answers bar, pair and stationarity queries from the tick
// store. Every call reads ticks for the lookback window and recomputes from
// scratch; nothing is cached between calls.
package analytics
