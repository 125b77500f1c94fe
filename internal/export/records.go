package export

import (
	"math"
	"time"

	"github.com/rickgao/pairs-data/internal/model"
)

// TimeLayout is the timestamp format used in every export.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// BarRecord is the export form of a bar.
type BarRecord struct {
	TS     string  `json:"ts" parquet:"ts"`
	TSMs   int64   `json:"ts_ms" parquet:"ts_ms"`
	Open   float64 `json:"open" parquet:"open"`
	High   float64 `json:"high" parquet:"high"`
	Low    float64 `json:"low" parquet:"low"`
	Close  float64 `json:"close" parquet:"close"`
	Volume float64 `json:"volume" parquet:"volume"`
}

// PairRecord is the export form of a pair row. ZScore is nil when undefined.
type PairRecord struct {
	TS          string   `json:"ts" parquet:"ts"`
	TSMs        int64    `json:"ts_ms" parquet:"ts_ms"`
	A           float64  `json:"a" parquet:"a"`
	B           float64  `json:"b" parquet:"b"`
	VolA        float64  `json:"vol_a" parquet:"vol_a"`
	VolB        float64  `json:"vol_b" parquet:"vol_b"`
	Spread      float64  `json:"spread" parquet:"spread"`
	ZScore      *float64 `json:"zscore" parquet:"zscore,optional"`
	RollingCorr float64  `json:"rolling_corr" parquet:"rolling_corr"`
}

// FormatTS renders t in TimeLayout.
func FormatTS(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// BarRecords converts bars for export.
func BarRecords(bars []model.Bar) []BarRecord {
	out := make([]BarRecord, len(bars))
	for i, b := range bars {
		out[i] = BarRecord{
			TS:     FormatTS(b.TS),
			TSMs:   b.TS.UnixMilli(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return out
}

// PairRecords converts pair rows for export.
func PairRecords(rows []model.PairRow) []PairRecord {
	out := make([]PairRecord, len(rows))
	for i, r := range rows {
		out[i] = PairRecord{
			TS:          FormatTS(r.TS),
			TSMs:        r.TS.UnixMilli(),
			A:           r.PriceA,
			B:           r.PriceB,
			VolA:        r.VolumeA,
			VolB:        r.VolumeB,
			Spread:      r.Spread,
			ZScore:      finiteOrNil(r.ZScore),
			RollingCorr: r.Corr,
		}
	}
	return out
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
