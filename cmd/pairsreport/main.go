// pairsreport prints hedge-ratio, spread and stationarity statistics for one
// pair read from the tick store, and optionally exports the pair table.
// Usage: go run ./cmd/pairsreport --config configs/pairsd.example.yaml --a btcusdt --b ethusdt
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rickgao/pairs-data/internal/analytics"
	"github.com/rickgao/pairs-data/internal/config"
	"github.com/rickgao/pairs-data/internal/export"
	"github.com/rickgao/pairs-data/internal/logging"
	"github.com/rickgao/pairs-data/internal/model"
	"github.com/rickgao/pairs-data/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file; defaults apply when empty")
	a := flag.String("a", "btcusdt", "first leg")
	b := flag.String("b", "ethusdt", "second leg")
	tf := flag.String("tf", "1m", "bar timeframe (1s, 1m, 5m)")
	window := flag.Int("window", analytics.DefaultPairWindow, "rolling window in bars")
	lookback := flag.Duration("lookback", analytics.DefaultPairLookback, "tick history to read")
	out := flag.String("out", "", "export the pair table to this file (.csv, .json or .parquet)")
	rows := flag.Int("rows", 10, "trailing pair rows to print")
	flag.Parse()

	if err := run(*configPath, *a, *b, *tf, *window, *lookback, *out, *rows); err != nil {
		fmt.Fprintln(os.Stderr, "pairsreport:", err)
		os.Exit(1)
	}
}

func run(configPath, a, b, rawTF string, window int, lookback time.Duration, out string, rows int) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadAndValidate(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	logger := logging.Setup(cfg.Logging.Format, "warn")

	tf, err := model.ParseTimeframe(rawTF)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := analytics.NewService(st, logger)
	stats, err := svc.Pair(ctx, a, b, tf, window, lookback)
	if err != nil {
		return err
	}

	rep := report{A: a, B: b, TF: tf, Window: window, Stats: stats}
	if res, err := svc.ADF(ctx, a, b, tf, window, lookback); err != nil {
		rep.ADFErr = err
	} else {
		rep.ADF = res
	}
	rep.Render(os.Stdout, rows)

	if out != "" {
		if err := export.WritePairsFile(out, stats.Rows); err != nil {
			return err
		}
		fmt.Printf("wrote %d rows to %s\n", len(stats.Rows), out)
	}
	return nil
}
