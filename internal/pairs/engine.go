package pairs

import (
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/rickgao/pairs-data/internal/model"
)

// joinedRow is a row of the inner join before any derived column exists.
// Logs and returns are NaN when a close is not positive.
type joinedRow struct {
	tsMs       int64
	a, b       float64
	va, vb     float64
	la, lb     float64
	retA, retB float64 // NaN on the first row
}

func (r joinedRow) valid() bool {
	return finite(r.la) && finite(r.lb)
}

// Compute joins barsA and barsB on bar start and returns hedge ratio, spread,
// rolling z-score and rolling return correlation.
//
// Every joined row counts toward MinRows(window). Rows with a non-positive
// close stay out of the regression, and any rolling window that covers one
// is undefined, so those rows never reach the output.
//
// It returns a *model.InsufficientDataError when the join has fewer than
// MinRows(window) rows, or when no row survives the rolling windows.
func Compute(barsA, barsB []model.Bar, window int) (*model.PairsStats, error) {
	if window < 2 {
		return nil, fmt.Errorf("compute pairs: %w, got %d", ErrInvalidWindow, window)
	}

	rows := join(barsA, barsB)

	need := MinRows(window)
	if len(rows) < need {
		return nil, &model.InsufficientDataError{Op: "compute pairs", Have: len(rows), Need: need}
	}

	beta, err := hedgeRatio(rows)
	if err != nil {
		return nil, fmt.Errorf("compute pairs: %w", err)
	}

	spread := make([]float64, len(rows))
	for i, r := range rows {
		spread[i] = r.la - beta*r.lb
	}

	mean, std := rollingMeanStd(spread, window)
	corr := rollingCorr(rows, window)

	out := make([]model.PairRow, 0, len(rows)-window)
	// Rolling mean/std are defined from window-1, return correlation from window.
	for i := window; i < len(rows); i++ {
		if math.IsNaN(corr[i]) || math.IsNaN(mean[i]) {
			continue
		}
		z := math.NaN()
		if std[i] > minStd {
			z = (spread[i] - mean[i]) / std[i]
		}
		out = append(out, model.PairRow{
			TS:      time.UnixMilli(rows[i].tsMs).UTC(),
			PriceA:  rows[i].a,
			PriceB:  rows[i].b,
			VolumeA: rows[i].va,
			VolumeB: rows[i].vb,
			Spread:  spread[i],
			ZScore:  z,
			Corr:    corr[i],
		})
	}

	if len(out) == 0 {
		return nil, &model.InsufficientDataError{Op: "compute pairs", Have: 0, Need: 1}
	}

	return &model.PairsStats{
		Beta: beta,
		Rows: out,
		N:    len(out),
	}, nil
}

// join inner-joins two bar series on bar start. Output is strictly
// increasing in time.
func join(barsA, barsB []model.Bar) []joinedRow {
	byTS := make(map[int64]model.Bar, len(barsB))
	for _, b := range barsB {
		byTS[b.TS.UnixMilli()] = b
	}

	rows := make([]joinedRow, 0, min(len(barsA), len(barsB)))
	for _, a := range barsA {
		ts := a.TS.UnixMilli()
		b, ok := byTS[ts]
		if !ok {
			continue
		}
		r := joinedRow{
			tsMs: ts,
			a:    a.Close,
			b:    b.Close,
			va:   zeroIfNaN(a.Volume),
			vb:   zeroIfNaN(b.Volume),
			la:   logPrice(a.Close),
			lb:   logPrice(b.Close),
		}
		n := len(rows)
		switch {
		case n > 0 && ts == rows[n-1].tsMs:
			rows[n-1] = r
			continue
		case n > 0 && ts < rows[n-1].tsMs:
			// Input not ordered; keep the table monotonic.
			continue
		}
		rows = append(rows, r)
	}

	for i := range rows {
		rows[i].retA, rows[i].retB = math.NaN(), math.NaN()
		if i > 0 && rows[i].valid() && rows[i-1].valid() {
			rows[i].retA = rows[i].la - rows[i-1].la
			rows[i].retB = rows[i].lb - rows[i-1].lb
		}
	}

	return rows
}

// hedgeRatio fits log A = alpha + beta*log B by ordinary least squares over
// the rows with finite logs.
func hedgeRatio(rows []joinedRow) (float64, error) {
	x := make([]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.valid() {
			x = append(x, r.lb)
			y = append(y, r.la)
		}
	}

	if len(x) < 2 || constant(x) {
		return 0, ErrDegenerateRegression
	}

	_, beta := stat.LinearRegression(x, y, nil, false)
	if !finite(beta) {
		return 0, ErrDegenerateRegression
	}
	return beta, nil
}

// rollingMeanStd returns the trailing mean and population std of x over
// window samples. Both are NaN until window samples are available and for
// any window holding a non-finite value.
//
// The std is taken in a second pass around the mean. talib's StdDev uses
// E[x^2]-E[x]^2 and zeroes anything under 1e-7, which would hide real
// dispersion in tight spreads.
func rollingMeanStd(x []float64, window int) (mean, std []float64) {
	mean, std = nanSeries(len(x)), nanSeries(len(x))

	for start := 0; start < len(x); {
		if !finite(x[start]) {
			start++
			continue
		}
		end := start
		for end < len(x) && finite(x[end]) {
			end++
		}

		if run := x[start:end]; len(run) >= window {
			sma := talib.Sma(run, window)
			for i := window - 1; i < len(run); i++ {
				var ss float64
				for _, v := range run[i-window+1 : i+1] {
					d := v - sma[i]
					ss += d * d
				}
				mean[start+i] = sma[i]
				std[start+i] = math.Sqrt(ss / float64(window))
			}
		}
		start = end
	}
	return mean, std
}

// rollingCorr returns the Pearson correlation of log returns over the trailing
// window. Entries before index window are NaN, as are windows where either leg
// has zero return variance or an undefined return.
func rollingCorr(rows []joinedRow, window int) []float64 {
	out := nanSeries(len(rows))

	ra := make([]float64, window)
	rb := make([]float64, window)
	for i := window; i < len(rows); i++ {
		for j := 0; j < window; j++ {
			r := rows[i-window+1+j]
			ra[j], rb[j] = r.retA, r.retB
		}
		c := stat.Correlation(ra, rb, nil)
		if finite(c) {
			out[i] = c
		}
	}
	return out
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// minStd is the largest rolling std still treated as zero. A flat spread
// leaves rounding residue far below it.
const minStd = 1e-10

// logPrice is NaN for prices that have no finite log.
func logPrice(p float64) float64 {
	l := math.Log(p)
	if !finite(l) {
		return math.NaN()
	}
	return l
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
