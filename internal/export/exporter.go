package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/rickgao/pairs-data/internal/model"
)

// ErrUnknownFormat is returned by New for unsupported formats.
var ErrUnknownFormat = errors.New("unknown export format")

// Exporter serializes bars and pair rows in one format.
type Exporter interface {
	WriteBars(w io.Writer, bars []model.Bar) error
	WritePairs(w io.Writer, rows []model.PairRow) error
	Extension() string
	ContentType() string
}

// New returns the exporter for format (csv, json or parquet).
func New(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSV{}, nil
	case "json":
		return JSON{}, nil
	case "parquet":
		return Parquet{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (use csv, json or parquet)", ErrUnknownFormat, format)
	}
}

// -----------------------------------------------------------------------------
// CSV
// -----------------------------------------------------------------------------

// CSV writes comma-separated values with a header row. Undefined values are empty cells.
type CSV struct{}

var (
	barHeader  = []string{"ts", "open", "high", "low", "close", "volume"}
	pairHeader = []string{"ts", "a", "b", "vol_a", "vol_b", "spread", "zscore", "rolling_corr"}
)

func (CSV) Extension() string   { return "csv" }
func (CSV) ContentType() string { return "text/csv" }

func (CSV) WriteBars(w io.Writer, bars []model.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(barHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range BarRecords(bars) {
		rec := []string{r.TS, ff(r.Open), ff(r.High), ff(r.Low), ff(r.Close), ff(r.Volume)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (CSV) WritePairs(w io.Writer, rows []model.PairRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(pairHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range PairRecords(rows) {
		z := ""
		if r.ZScore != nil {
			z = ff(*r.ZScore)
		}
		rec := []string{r.TS, ff(r.A), ff(r.B), ff(r.VolA), ff(r.VolB), ff(r.Spread), z, ff(r.RollingCorr)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// -----------------------------------------------------------------------------
// JSON
// -----------------------------------------------------------------------------

// JSON writes an array of records.
type JSON struct{}

func (JSON) Extension() string   { return "json" }
func (JSON) ContentType() string { return "application/json" }

func (JSON) WriteBars(w io.Writer, bars []model.Bar) error {
	return json.NewEncoder(w).Encode(BarRecords(bars))
}

func (JSON) WritePairs(w io.Writer, rows []model.PairRow) error {
	return json.NewEncoder(w).Encode(PairRecords(rows))
}

// -----------------------------------------------------------------------------
// Parquet
// -----------------------------------------------------------------------------

// Parquet writes one row group of BarRecord or PairRecord rows.
type Parquet struct{}

func (Parquet) Extension() string   { return "parquet" }
func (Parquet) ContentType() string { return "application/vnd.apache.parquet" }

func (Parquet) WriteBars(w io.Writer, bars []model.Bar) error {
	if err := parquet.Write(w, BarRecords(bars)); err != nil {
		return fmt.Errorf("write parquet bars: %w", err)
	}
	return nil
}

func (Parquet) WritePairs(w io.Writer, rows []model.PairRow) error {
	if err := parquet.Write(w, PairRecords(rows)); err != nil {
		return fmt.Errorf("write parquet pairs: %w", err)
	}
	return nil
}

// WriteBarsFile writes bars to path in the format implied by its extension.
func WriteBarsFile(path string, bars []model.Bar) error {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "parquet" {
		return parquet.WriteFile(path, BarRecords(bars))
	}
	return writeFile(path, ext, func(e Exporter, w io.Writer) error { return e.WriteBars(w, bars) })
}

// WritePairsFile writes pair rows to path in the format implied by its extension.
func WritePairsFile(path string, rows []model.PairRow) error {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "parquet" {
		return parquet.WriteFile(path, PairRecords(rows))
	}
	return writeFile(path, ext, func(e Exporter, w io.Writer) error { return e.WritePairs(w, rows) })
}
