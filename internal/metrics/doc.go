// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Stream connection state, connects and disconnects
//   - Router message, parse error and sink failure counts
//   - Writer inserts, flushes, errors and dropped ticks
//   - Alert evaluator cycles, triggers and rule errors
//   - Per-symbol tick counts and last trade price
//
// Counters owned by other packages are exported with CounterFunc/GaugeFunc
// so the hot path keeps its own atomics.
package metrics
