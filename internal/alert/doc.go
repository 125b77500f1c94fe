// Package alert implements the alert evaluator.
//
// The evaluator:
//   - Wakes on a fixed interval (1s by default)
//   - Evaluates every enabled rule in turn against freshly computed pair statistics
//   - Records an event when the latest z-score is strictly above the rule threshold
//   - Skips rules without enough data, and isolates rule errors and panics
package alert
