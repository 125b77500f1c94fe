package stationarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// olsFit is the subset of an OLS fit the test needs.
type olsFit struct {
	nobs   int
	k      int
	ssr    float64
	tvalue float64 // t-value of the requested coefficient, NaN if none requested
}

// aic matches the Gaussian log-likelihood AIC: -2*llf + 2*k.
func (f olsFit) aic() float64 {
	n := float64(f.nobs)
	llf := -n / 2 * (math.Log(2*math.Pi) + math.Log(f.ssr/n) + 1)
	return -2*llf + 2*float64(f.k)
}

// fitOLS regresses y on the first k columns of rows via QR. When tcol >= 0 the
// t-value of that coefficient is computed as well.
func fitOLS(y []float64, rows [][]float64, k, tcol int) (olsFit, error) {
	n := len(y)
	if n <= k {
		return olsFit{}, fmt.Errorf("ols: %d observations for %d regressors", n, k)
	}

	data := make([]float64, 0, n*k)
	for _, r := range rows {
		data = append(data, r[:k]...)
	}
	X := mat.NewDense(n, k, data)
	Y := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(X)

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, Y); err != nil {
		return olsFit{}, fmt.Errorf("ols: %w", ErrDegenerateSeries)
	}

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)
	var ssr float64
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		ssr += r * r
	}

	f := olsFit{nobs: n, k: k, ssr: ssr, tvalue: math.NaN()}
	if tcol < 0 {
		return f, nil
	}

	// Var(beta) = sigma^2 * (X'X)^-1 = sigma^2 * R^-1 R^-T.
	var r mat.Dense
	qr.RTo(&r)
	upper := mat.NewTriDense(k, mat.Upper, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			upper.SetTri(i, j, r.At(i, j))
		}
	}
	var rinv mat.TriDense
	if err := rinv.InverseTri(upper); err != nil {
		return olsFit{}, fmt.Errorf("ols: %w", ErrDegenerateSeries)
	}
	var diag float64
	for j := 0; j < k; j++ {
		v := rinv.At(tcol, j)
		diag += v * v
	}

	sigma2 := ssr / float64(n-k)
	f.tvalue = beta.AtVec(tcol) / math.Sqrt(sigma2*diag)
	return f, nil
}
