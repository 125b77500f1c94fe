package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rickgao/pairs-data/internal/export"
	"github.com/rickgao/pairs-data/internal/model"
	"github.com/rickgao/pairs-data/internal/stationarity"
)

type report struct {
	A, B   string
	TF     model.Timeframe
	Window int
	Stats  *model.PairsStats
	ADF    *stationarity.Result
	ADFErr error
}

// Render writes the summary, ADF and trailing-row tables.
func (r report) Render(w io.Writer, rows int) {
	last := r.Stats.Latest()
	z := "n/a"
	if v, ok := r.Stats.LatestZ(); ok {
		z = fmt.Sprintf("%.4f", v)
	}

	summary := newTable(w, fmt.Sprintf("%s / %s  %s  window=%d", r.A, r.B, r.TF, r.Window))
	summary.AppendHeader(table.Row{"Metric", "Value"})
	summary.AppendRows([]table.Row{
		{"beta", fmt.Sprintf("%.6f", r.Stats.Beta)},
		{"rows", r.Stats.N},
		{"latest spread", fmt.Sprintf("%.6f", last.Spread)},
		{"latest z-score", z},
		{"latest corr", fmt.Sprintf("%.4f", last.Corr)},
	})
	summary.Render()

	adf := newTable(w, "Augmented Dickey-Fuller")
	if r.ADFErr != nil {
		adf.AppendRow(table.Row{"error", r.ADFErr.Error()})
	} else {
		adf.AppendHeader(table.Row{"Metric", "Value"})
		adf.AppendRows([]table.Row{
			{"adf stat", fmt.Sprintf("%.4f", r.ADF.Statistic)},
			{"p-value", fmt.Sprintf("%.4f", r.ADF.PValue)},
			{"used lag", r.ADF.UsedLag},
			{"nobs", r.ADF.NObs},
		})
		levels := make([]string, 0, len(r.ADF.CriticalValues))
		for k := range r.ADF.CriticalValues {
			levels = append(levels, k)
		}
		sort.Strings(levels)
		for _, k := range levels {
			adf.AppendRow(table.Row{"critical " + k, fmt.Sprintf("%.4f", r.ADF.CriticalValues[k])})
		}
	}
	adf.Render()

	if rows <= 0 {
		return
	}
	tail := r.Stats.Rows[max(0, len(r.Stats.Rows)-rows):]
	detail := newTable(w, "")
	detail.AppendHeader(table.Row{"ts", r.A, r.B, "spread", "zscore", "corr"})
	for _, row := range tail {
		zs := "-"
		if rec := export.PairRecords([]model.PairRow{row})[0]; rec.ZScore != nil {
			zs = fmt.Sprintf("%.3f", *rec.ZScore)
		}
		detail.AppendRow(table.Row{
			export.FormatTS(row.TS),
			fmt.Sprintf("%g", row.PriceA),
			fmt.Sprintf("%g", row.PriceB),
			fmt.Sprintf("%.6f", row.Spread),
			zs,
			fmt.Sprintf("%.3f", row.Corr),
		})
	}
	detail.Render()
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Title.Align = text.AlignCenter
	if title != "" {
		t.SetTitle(title)
	}
	return t
}
