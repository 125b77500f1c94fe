// Package pairs computes pairs-trading statistics over two bar series.
//
// Pipeline:
//   - Inner-join both legs on bar start, using close prices
//   - OLS hedge ratio (beta) of log A on [1, log B]
//   - Log spread: log A - beta*log B
//   - Rolling z-score of the spread (population std over window)
//   - Rolling Pearson correlation of per-bar log returns
//
// Everything is recomputed from the input on every call. No rolling state
// survives between calls, so the cost is O(n*window) per computation.
//
// A zero rolling standard deviation leaves the row in place with a NaN
// z-score. PairsStats.LatestZ reports such values as undefined.
package pairs
