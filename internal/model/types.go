package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Market Data
// -----------------------------------------------------------------------------

// Tick is a single normalized trade event.
type Tick struct {
	TS     time.Time // Exchange event time (ms precision)
	Symbol string    // Lowercase symbol
	Price  float64   // Trade price (> 0)
	Size   float64   // Trade quantity (>= 0)
}

// Validate checks the tick invariants.
func (t Tick) Validate() error {
	if t.Symbol == "" {
		return errors.New("symbol is required")
	}
	if t.Symbol != strings.ToLower(t.Symbol) {
		return fmt.Errorf("symbol %q is not lowercase", t.Symbol)
	}
	if !(t.Price > 0) || math.IsInf(t.Price, 0) {
		return fmt.Errorf("price must be > 0, got %v", t.Price)
	}
	if !(t.Size >= 0) || math.IsInf(t.Size, 0) {
		return fmt.Errorf("size must be >= 0, got %v", t.Size)
	}
	return nil
}

// Bar is an OHLCV aggregate for one timeframe interval.
type Bar struct {
	TS     time.Time // Interval start
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Timeframe is a bar aggregation interval.
type Timeframe string

const (
	Timeframe1s Timeframe = "1s"
	Timeframe1m Timeframe = "1m"
	Timeframe5m Timeframe = "5m"
)

// ParseTimeframe returns the timeframe for s. Only 1s, 1m and 5m are accepted.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.TrimSpace(s))
	if !tf.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTimeframe, s)
	}
	return tf, nil
}

// Valid reports whether tf is a recognized timeframe.
func (tf Timeframe) Valid() bool {
	switch tf {
	case Timeframe1s, Timeframe1m, Timeframe5m:
		return true
	}
	return false
}

// Width returns the interval width, or 0 for an unknown timeframe.
func (tf Timeframe) Width() time.Duration {
	switch tf {
	case Timeframe1s:
		return time.Second
	case Timeframe1m:
		return time.Minute
	case Timeframe5m:
		return 5 * time.Minute
	}
	return 0
}

func (tf Timeframe) String() string { return string(tf) }

// -----------------------------------------------------------------------------
// Alerts
// -----------------------------------------------------------------------------

// AlertRule is a stored z-score threshold rule over a symbol pair.
type AlertRule struct {
	ID        int64
	Name      string
	SymbolA   string
	SymbolB   string
	Timeframe Timeframe
	Window    int
	Threshold float64
	Enabled   bool
}

// Validate checks that a rule can be evaluated.
func (r AlertRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if r.SymbolA == "" || r.SymbolB == "" {
		return fmt.Errorf("%w: both symbols are required", ErrInvalidRule)
	}
	if !r.Timeframe.Valid() {
		return fmt.Errorf("%w: timeframe %q", ErrInvalidRule, r.Timeframe)
	}
	if r.Window < 2 {
		return fmt.Errorf("%w: window must be >= 2, got %d", ErrInvalidRule, r.Window)
	}
	if math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) {
		return fmt.Errorf("%w: threshold must be finite", ErrInvalidRule)
	}
	return nil
}

// AlertEvent records one triggered rule evaluation.
type AlertEvent struct {
	ID       int64     // Assigned by the store
	Key      uuid.UUID // Idempotency key
	RuleID   int64
	RuleName string // Populated on reads
	TS       time.Time
	Message  string
}

// -----------------------------------------------------------------------------
// Pairs Analytics
// -----------------------------------------------------------------------------

// PairRow is one row of the joined pair table after all rolling windows have filled.
type PairRow struct {
	TS      time.Time
	PriceA  float64
	PriceB  float64
	VolumeA float64
	VolumeB float64
	Spread  float64
	ZScore  float64 // NaN when the rolling std is zero
	Corr    float64
}

// PairsStats is the result of a pairs computation.
type PairsStats struct {
	Beta float64
	Rows []PairRow
	N    int
}

// Latest returns the last row. Callers must not call it on an empty result.
func (s *PairsStats) Latest() PairRow {
	return s.Rows[len(s.Rows)-1]
}

// LatestZ returns the latest z-score and whether it is defined.
func (s *PairsStats) LatestZ() (float64, bool) {
	if len(s.Rows) == 0 {
		return 0, false
	}
	z := s.Latest().ZScore
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return z, false
	}
	return z, true
}

// Spread returns the spread column.
func (s *PairsStats) Spread() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Spread
	}
	return out
}

// ZScores returns the z-score column.
func (s *PairsStats) ZScores() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.ZScore
	}
	return out
}

// Correlations returns the rolling correlation column.
func (s *PairsStats) Correlations() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Corr
	}
	return out
}
