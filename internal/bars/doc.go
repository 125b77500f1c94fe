// Package bars resamples ticks into fixed-interval OHLCV bars.
//
// Bars are wall-clock aligned: an interval starts at ts - ts%width
// (milliseconds since epoch). Intervals without ticks are omitted,
// never forward-filled.
package bars
