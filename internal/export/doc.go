// Package export writes bars and pair tables as CSV, JSON or Parquet.
//
// Column names are shared across formats: bars use ts, open, high, low,
// close, volume and pair rows use ts, a, b, vol_a, vol_b, spread, zscore,
// rolling_corr. Timestamps are UTC ISO-8601 with milliseconds.
package export
