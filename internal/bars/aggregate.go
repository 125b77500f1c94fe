package bars

import (
	"fmt"
	"slices"
	"time"

	"github.com/rickgao/pairs-data/internal/model"
)

// Aggregate partitions ticks into timeframe-aligned intervals and returns one
// bar per non-empty interval, sorted ascending by interval start.
//
// Ticks are expected in time order; unordered input is stably sorted first so
// open and close still follow arrival order for equal timestamps.
func Aggregate(ticks []model.Tick, tf model.Timeframe) ([]model.Bar, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("aggregate: %w: %q", model.ErrUnknownTimeframe, tf)
	}
	if len(ticks) == 0 {
		return []model.Bar{}, nil
	}

	if !slices.IsSortedFunc(ticks, compareTS) {
		ticks = slices.Clone(ticks)
		slices.SortStableFunc(ticks, compareTS)
	}

	width := tf.Width().Milliseconds()
	out := make([]model.Bar, 0, 16)

	var cur *model.Bar
	var curStart int64
	for _, t := range ticks {
		start := IntervalStart(t.TS.UnixMilli(), width)
		if cur == nil || start != curStart {
			out = append(out, model.Bar{
				TS:    time.UnixMilli(start).UTC(),
				Open:  t.Price,
				High:  t.Price,
				Low:   t.Price,
				Close: t.Price,
			})
			cur = &out[len(out)-1]
			curStart = start
		}
		if t.Price > cur.High {
			cur.High = t.Price
		}
		if t.Price < cur.Low {
			cur.Low = t.Price
		}
		cur.Close = t.Price
		cur.Volume += t.Size
	}

	return out, nil
}

// IntervalStart returns the aligned interval start for tsMs.
func IntervalStart(tsMs, widthMs int64) int64 {
	rem := tsMs % widthMs
	if rem < 0 {
		rem += widthMs
	}
	return tsMs - rem
}

func compareTS(a, b model.Tick) int {
	return a.TS.Compare(b.TS)
}
