// streamtest connects to the Binance trade stream and prints parsed ticks to the console.
// Usage: go run ./cmd/streamtest --symbols btcusdt,ethusdt
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/pairs-data/internal/config"
	"github.com/rickgao/pairs-data/internal/connection"
	"github.com/rickgao/pairs-data/internal/export"
	"github.com/rickgao/pairs-data/internal/logging"
	"github.com/rickgao/pairs-data/internal/model"
	"github.com/rickgao/pairs-data/internal/router"
)

func main() {
	url := flag.String("url", config.DefaultFeedURL, "websocket base URL")
	symbols := flag.String("symbols", strings.Join(config.DefaultSymbols, ","), "comma-separated symbols")
	verbose := flag.Bool("verbose", false, "print ticks as JSON")
	level := flag.String("log-level", "debug", "log level")
	flag.Parse()

	logger := logging.Setup("text", *level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer := router.TickSinkFunc(func(_ context.Context, t model.Tick) error {
		if *verbose {
			data, err := json.Marshal(map[string]any{
				"symbol": t.Symbol,
				"price":  t.Price,
				"size":   t.Size,
				"ts_ms":  t.TS.UnixMilli(),
				"ts_iso": export.FormatTS(t.TS),
			})
			if err != nil {
				return err
			}
			fmt.Printf("[TRADE] %s\n", data)
			return nil
		}
		fmt.Printf("[TRADE] %s %s price=%g size=%g\n", export.FormatTS(t.TS), t.Symbol, t.Price, t.Size)
		return nil
	})
	rtr := router.NewTickRouter(logger, printer)

	cfg := connection.DefaultStreamConfig()
	cfg.BaseURL = *url
	cfg.Symbols = strings.Split(*symbols, ",")
	stream, err := connection.NewStream(cfg, rtr, logger)
	if err != nil {
		logger.Error("failed to create stream", "error", err)
		os.Exit(1)
	}

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ss, rs := stream.Stats(), rtr.Stats()
				logger.Info("stats",
					"state", ss.State.String(),
					"connects", ss.Connects,
					"messages", ss.Messages,
					"ticks_routed", rs.TicksRouted,
					"parse_errors", rs.ParseErrors,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "url", stream.URL())
	if err := stream.Run(ctx); err != nil {
		logger.Error("stream failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
