package stationarity

import (
	"errors"
	"fmt"
	"math"

	"github.com/rickgao/pairs-data/internal/model"
)

// Errors
var (
	ErrInsufficientData = model.ErrInsufficientData
	ErrDegenerateSeries = errors.New("degenerate series: regression is singular")
)

// Result holds the outcome of an ADF test.
type Result struct {
	Statistic      float64            `json:"adf_stat"`
	PValue         float64            `json:"p_value"`
	UsedLag        int                `json:"used_lag"`
	NObs           int                `json:"nobs"`
	CriticalValues map[string]float64 `json:"crit_values"`
	ICBest         float64            `json:"ic_best"`
}

// MinLength is the shortest series (after removing undefined values) ADF accepts.
const MinLength = 4

// ADF runs the Augmented Dickey-Fuller test with a constant term and AIC lag selection.
// NaN and infinite values are removed before testing.
func ADF(series []float64) (*Result, error) {
	x := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			x = append(x, v)
		}
	}

	maxlag := MaxLag(len(x))
	if maxlag < 0 {
		return nil, &model.InsufficientDataError{Op: "adf", Have: len(x), Need: MinLength}
	}

	xdiff := make([]float64, len(x)-1)
	for i := range xdiff {
		xdiff[i] = x[i+1] - x[i]
	}

	// Select the lag on the sample trimmed for maxlag, so every candidate
	// sees the same observations.
	y, full := design(x, xdiff, maxlag)
	icBest := math.Inf(1)
	bestLag := -1
	for lag := 0; lag <= maxlag; lag++ {
		// Columns: const, level, lag1..lag.
		f, err := fitOLS(y, full, lag+2, -1)
		if err != nil {
			continue
		}
		if aic := f.aic(); aic < icBest {
			icBest, bestLag = aic, lag
		}
	}
	if bestLag < 0 {
		return nil, fmt.Errorf("adf: %w", ErrDegenerateSeries)
	}

	// Refit with the chosen lag on the longest available sample.
	y, xs := design(x, xdiff, bestLag)
	f, err := fitOLS(y, xs, bestLag+2, 1)
	if err != nil {
		return nil, fmt.Errorf("adf: %w", err)
	}

	stat := f.tvalue
	if math.IsNaN(stat) || math.IsInf(stat, 0) {
		return nil, fmt.Errorf("adf: %w", ErrDegenerateSeries)
	}

	nobs := len(y)
	return &Result{
		Statistic:      stat,
		PValue:         PValue(stat),
		UsedLag:        bestLag,
		NObs:           nobs,
		CriticalValues: CriticalValues(nobs),
		ICBest:         icBest,
	}, nil
}

// MaxLag returns the default maximum lag order for a series of length n,
// or -1 when n is too short for a constant-only regression.
func MaxLag(n int) int {
	maxlag := int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	maxlag = min(n/2-2, maxlag)
	if maxlag < 0 {
		return -1
	}
	return maxlag
}

// design builds the regressand Δx[t] and the regressor rows
// [1, x[t], Δx[t-1], ..., Δx[t-lags]] for t = lags..len(xdiff)-1.
func design(x, xdiff []float64, lags int) ([]float64, [][]float64) {
	n := len(xdiff) - lags
	y := make([]float64, n)
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		t := i + lags
		y[i] = xdiff[t]
		row := make([]float64, lags+2)
		row[0] = 1
		row[1] = x[t]
		for j := 1; j <= lags; j++ {
			row[j+1] = xdiff[t-j]
		}
		rows[i] = row
	}
	return y, rows
}
