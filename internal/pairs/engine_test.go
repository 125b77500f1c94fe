package pairs

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rickgao/pairs-data/internal/model"
)

var baseTS = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// makeBars builds one-minute bars with the given closes starting at baseTS+offset minutes.
func makeBars(offset int, closes []float64, volume float64) []model.Bar {
	out := make([]model.Bar, len(closes))
	for i, c := range closes {
		out[i] = model.Bar{
			TS:     baseTS.Add(time.Duration(offset+i) * time.Minute),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: volume,
		}
	}
	return out
}

// cointegratedPair returns log B as a random walk and A = exp(0.2 + 1.5*logB + ar(1) noise).
func cointegratedPair(n int, seed uint64) (a, b []float64) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	a = make([]float64, n)
	b = make([]float64, n)
	lb := math.Log(100)
	noise := 0.0
	for i := 0; i < n; i++ {
		lb += rng.NormFloat64() * 0.001
		noise = 0.5*noise + rng.NormFloat64()*0.0005
		b[i] = math.Exp(lb)
		a[i] = math.Exp(0.2 + 1.5*lb + noise)
	}
	return a, b
}

func TestCompute_InsufficientData(t *testing.T) {
	tests := []struct {
		name   string
		rows   int
		window int
		need   int
	}{
		{"below floor of 30", 29, 10, 30},
		{"window plus five", 64, 60, 65},
		{"empty", 0, 20, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := cointegratedPair(tt.rows, 1)
			_, err := Compute(makeBars(0, a, 1), makeBars(0, b, 1), tt.window)
			if !errors.Is(err, ErrInsufficientData) {
				t.Fatalf("Compute() error = %v, want ErrInsufficientData", err)
			}
			var ide *model.InsufficientDataError
			if !errors.As(err, &ide) {
				t.Fatalf("error is not *model.InsufficientDataError: %T", err)
			}
			if ide.Have != tt.rows || ide.Need != tt.need {
				t.Errorf("Have/Need = %d/%d, want %d/%d", ide.Have, ide.Need, tt.rows, tt.need)
			}
		})
	}
}

func TestCompute_JoinIsInner(t *testing.T) {
	a, b := cointegratedPair(100, 2)
	// B starts 40 minutes later, so only 60 rows overlap.
	barsA := makeBars(0, a, 1)
	barsB := makeBars(40, b[40:], 1)

	_, err := Compute(barsA, barsB, 56)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("Compute() error = %v, want ErrInsufficientData (60 < 61)", err)
	}

	stats, err := Compute(barsA, barsB, 20)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if stats.N != 60-20 {
		t.Errorf("N = %d, want %d", stats.N, 40)
	}
	if !stats.Rows[0].TS.Equal(baseTS.Add(60 * time.Minute)) {
		t.Errorf("first row TS = %v, want %v", stats.Rows[0].TS, baseTS.Add(60*time.Minute))
	}
}

func TestCompute_InvalidWindow(t *testing.T) {
	a, b := cointegratedPair(50, 3)
	_, err := Compute(makeBars(0, a, 1), makeBars(0, b, 1), 1)
	if !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("Compute() error = %v, want ErrInvalidWindow", err)
	}
}

func TestCompute_DegenerateRegression(t *testing.T) {
	a, _ := cointegratedPair(50, 4)
	b := make([]float64, 50)
	for i := range b {
		b[i] = 42
	}
	_, err := Compute(makeBars(0, a, 1), makeBars(0, b, 1), 10)
	if !errors.Is(err, ErrDegenerateRegression) {
		t.Errorf("Compute() error = %v, want ErrDegenerateRegression", err)
	}
}

func TestCompute_RoundTripIdentical(t *testing.T) {
	a, _ := cointegratedPair(120, 5)
	b := make([]float64, len(a))
	copy(b, a) // priceB = 1 * priceA^1

	stats, err := Compute(makeBars(0, a, 1), makeBars(0, b, 1), 20)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if math.Abs(stats.Beta-1) > 1e-9 {
		t.Errorf("Beta = %v, want 1", stats.Beta)
	}
	for i, r := range stats.Rows {
		if math.Abs(r.Spread) > 1e-9 {
			t.Fatalf("row %d spread = %v, want 0", i, r.Spread)
		}
		if !math.IsNaN(r.ZScore) {
			t.Fatalf("row %d zscore = %v, want NaN for zero rolling std", i, r.ZScore)
		}
		if math.Abs(r.Corr-1) > 1e-9 {
			t.Fatalf("row %d corr = %v, want 1", i, r.Corr)
		}
	}
	if _, ok := stats.LatestZ(); ok {
		t.Error("LatestZ() ok = true, want false for degenerate z-score")
	}
}

func TestCompute_ConstantSpread(t *testing.T) {
	a, _ := cointegratedPair(120, 6)
	b := make([]float64, len(a))
	for i := range a {
		b[i] = 2 * a[i]
	}

	stats, err := Compute(makeBars(0, a, 1), makeBars(0, b, 1), 30)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if math.Abs(stats.Beta-1) > 1e-6 {
		t.Errorf("Beta = %v, want ~1", stats.Beta)
	}
	for i, r := range stats.Rows {
		if math.Abs(r.Spread+math.Log(2)) > 1e-6 {
			t.Fatalf("row %d spread = %v, want %v", i, r.Spread, -math.Log(2))
		}
		if !math.IsNaN(r.ZScore) {
			t.Fatalf("row %d zscore = %v, want NaN", i, r.ZScore)
		}
	}
	if _, ok := stats.LatestZ(); ok {
		t.Error("LatestZ() ok = true, want false")
	}
}

func TestCompute_Cointegrated(t *testing.T) {
	const n, window = 400, 60
	a, b := cointegratedPair(n, 7)

	stats, err := Compute(makeBars(0, a, 2), makeBars(0, b, 3), window)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if math.Abs(stats.Beta-1.5) > 0.1 {
		t.Errorf("Beta = %v, want ~1.5", stats.Beta)
	}
	if stats.N != n-window {
		t.Errorf("N = %d, want %d", stats.N, n-window)
	}
	if len(stats.Rows) != stats.N {
		t.Errorf("len(Rows) = %d, want N = %d", len(stats.Rows), stats.N)
	}

	last := stats.Latest()
	if last.VolumeA != 2 || last.VolumeB != 3 {
		t.Errorf("volumes = %v/%v, want 2/3", last.VolumeA, last.VolumeB)
	}
	if !last.TS.Equal(baseTS.Add(time.Duration(n-1) * time.Minute)) {
		t.Errorf("last TS = %v", last.TS)
	}

	// Recompute the last z-score and correlation directly.
	k := len(stats.Rows) - 1
	var sum, sumSq float64
	for j := k - window + 1; j <= k; j++ {
		sum += stats.Rows[j].Spread
	}
	mean := sum / window
	for j := k - window + 1; j <= k; j++ {
		d := stats.Rows[j].Spread - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / window)
	wantZ := (last.Spread - mean) / std

	z, ok := stats.LatestZ()
	if !ok {
		t.Fatal("LatestZ() ok = false, want true")
	}
	if math.Abs(z-wantZ) > 1e-6 {
		t.Errorf("latest z = %v, want %v", z, wantZ)
	}

	var ra, rb []float64
	for i := n - window; i < n; i++ {
		ra = append(ra, math.Log(a[i])-math.Log(a[i-1]))
		rb = append(rb, math.Log(b[i])-math.Log(b[i-1]))
	}
	wantCorr := pearson(ra, rb)
	if math.Abs(last.Corr-wantCorr) > 1e-9 {
		t.Errorf("latest corr = %v, want %v", last.Corr, wantCorr)
	}
	if last.Corr <= 0.5 {
		t.Errorf("latest corr = %v, want strongly positive", last.Corr)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a, b := cointegratedPair(200, 8)
	barsA, barsB := makeBars(0, a, 1), makeBars(0, b, 1)

	s1, err := Compute(barsA, barsB, 30)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	s2, err := Compute(barsA, barsB, 30)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if s1.Beta != s2.Beta || s1.N != s2.N {
		t.Fatalf("results differ: beta %v/%v n %d/%d", s1.Beta, s2.Beta, s1.N, s2.N)
	}
	for i := range s1.Rows {
		r1, r2 := s1.Rows[i], s2.Rows[i]
		if r1.Spread != r2.Spread || r1.ZScore != r2.ZScore || r1.Corr != r2.Corr {
			t.Fatalf("row %d differs: %+v vs %+v", i, r1, r2)
		}
	}
}

func TestCompute_SkipsNonPositivePrices(t *testing.T) {
	a, b := cointegratedPair(80, 9)
	a[10] = 0
	b[20] = -1

	stats, err := Compute(makeBars(0, a, 1), makeBars(0, b, 1), 20)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	// Windows covering row 10 or 20 (or the returns of 11 and 21) are
	// undefined, leaving rows 41..79.
	if stats.N != 39 {
		t.Errorf("N = %d, want 39", stats.N)
	}
	if want := baseTS.Add(41 * time.Minute); !stats.Rows[0].TS.Equal(want) {
		t.Errorf("first row TS = %v, want %v", stats.Rows[0].TS, want)
	}
	for _, r := range stats.Rows {
		if math.IsNaN(r.Spread) || math.IsInf(r.Spread, 0) {
			t.Fatalf("non-finite spread at %v", r.TS)
		}
	}
}

func TestCompute_NonPositiveRowsCountTowardMinRows(t *testing.T) {
	const window = 20
	a, b := cointegratedPair(40, 10)
	for i := 0; i < 12; i++ {
		a[i] = 0
	}

	// 40 joined rows meet MinRows(20) = 30 although only 28 have finite logs.
	stats, err := Compute(makeBars(0, a, 1), makeBars(0, b, 1), window)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	// Returns are defined from row 13, so the first full return window ends at 32.
	if stats.N != 8 {
		t.Errorf("N = %d, want 8", stats.N)
	}
	if want := baseTS.Add(32 * time.Minute); !stats.Rows[0].TS.Equal(want) {
		t.Errorf("first row TS = %v, want %v", stats.Rows[0].TS, want)
	}

	// Dropping a bar from the join still trips the precondition.
	_, err = Compute(makeBars(0, a[:29], 1), makeBars(0, b[:29], 1), window)
	var ide *model.InsufficientDataError
	if !errors.As(err, &ide) || ide.Have != 29 {
		t.Errorf("Compute() error = %v, want InsufficientData with 29 rows", err)
	}
}

func TestCompute_AllPricesNonPositive(t *testing.T) {
	_, b := cointegratedPair(40, 11)
	a := make([]float64, 40)
	_, err := Compute(makeBars(0, a, 1), makeBars(0, b, 1), 10)
	if !errors.Is(err, ErrDegenerateRegression) {
		t.Errorf("Compute() error = %v, want ErrDegenerateRegression", err)
	}
}

func TestCompute_TightSpreadKeepsZScore(t *testing.T) {
	const n, window = 120, 30
	rng := rand.New(rand.NewPCG(12, 13))
	a := make([]float64, n)
	b := make([]float64, n)
	lb := math.Log(100)
	for i := range a {
		lb += rng.NormFloat64() * 0.001
		b[i] = math.Exp(lb)
		// Spread std around 1e-9, below talib StdDev's zero cutoff.
		a[i] = math.Exp(0.1 + lb + rng.NormFloat64()*1e-9)
	}

	stats, err := Compute(makeBars(0, a, 1), makeBars(0, b, 1), window)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	for i, r := range stats.Rows {
		if !finite(r.ZScore) {
			t.Fatalf("row %d zscore = %v, want finite", i, r.ZScore)
		}
	}
	if _, ok := stats.LatestZ(); !ok {
		t.Error("LatestZ() ok = false, want true")
	}
}

func TestRollingMeanStd(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name     string
		x        []float64
		window   int
		wantMean []float64
		wantStd  []float64
	}{
		{
			name:     "population std",
			x:        []float64{1, 2, 3, 4},
			window:   3,
			wantMean: []float64{nan, nan, 2, 3},
			wantStd:  []float64{nan, nan, math.Sqrt(2.0 / 3), math.Sqrt(2.0 / 3)},
		},
		{
			name:     "gap restarts the window",
			x:        []float64{1, 2, 3, nan, 5, 6, 7},
			window:   3,
			wantMean: []float64{nan, nan, 2, nan, nan, nan, 6},
			wantStd:  []float64{nan, nan, math.Sqrt(2.0 / 3), nan, nan, nan, math.Sqrt(2.0 / 3)},
		},
		{
			name:     "flat window",
			x:        []float64{5, 5, 5},
			window:   3,
			wantMean: []float64{nan, nan, 5},
			wantStd:  []float64{nan, nan, 0},
		},
		{
			name:     "short run",
			x:        []float64{1, nan, 2},
			window:   2,
			wantMean: []float64{nan, nan, nan},
			wantStd:  []float64{nan, nan, nan},
		},
	}

	same := func(got, want float64) bool {
		if math.IsNaN(want) {
			return math.IsNaN(got)
		}
		return math.Abs(got-want) < 1e-12
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std := rollingMeanStd(tt.x, tt.window)
			for i := range tt.x {
				if !same(mean[i], tt.wantMean[i]) {
					t.Errorf("mean[%d] = %v, want %v", i, mean[i], tt.wantMean[i])
				}
				if !same(std[i], tt.wantStd[i]) {
					t.Errorf("std[%d] = %v, want %v", i, std[i], tt.wantStd[i])
				}
			}
		})
	}
}

func pearson(x, y []float64) float64 {
	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	return sxy / math.Sqrt(sxx*syy)
}
