// pairsd streams Binance trades into the tick store, evaluates z-score alert
// rules and serves the analytics HTTP API.
//
// Usage: go run ./cmd/pairsd --config configs/pairsd.example.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/pairs-data/internal/alert"
	"github.com/rickgao/pairs-data/internal/analytics"
	"github.com/rickgao/pairs-data/internal/api"
	"github.com/rickgao/pairs-data/internal/config"
	"github.com/rickgao/pairs-data/internal/connection"
	"github.com/rickgao/pairs-data/internal/exchange"
	"github.com/rickgao/pairs-data/internal/logging"
	"github.com/rickgao/pairs-data/internal/market"
	"github.com/rickgao/pairs-data/internal/metrics"
	"github.com/rickgao/pairs-data/internal/router"
	"github.com/rickgao/pairs-data/internal/store"
	"github.com/rickgao/pairs-data/internal/version"
	"github.com/rickgao/pairs-data/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml or toml); defaults apply when empty")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Format, cfg.Logging.Level).With("instance", cfg.Instance.ID)
	logger.Info("starting pairsd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"symbols", cfg.Feed.Symbols,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("pairsd failed", "error", err)
		os.Exit(1)
	}
	logger.Info("pairsd stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.LoadAndValidate(path)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Exchange.ValidateSymbols {
		client := exchange.NewClientFromConfig(cfg.Exchange, logger)
		logger.Info("validating symbols", "rest_url", cfg.Exchange.RestURL)
		if err := client.ValidateSymbols(ctx, cfg.Feed.Symbols); err != nil {
			return err
		}
	}

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("store opened", "driver", cfg.Store.Driver)

	cache := market.NewLastTickCache()
	tw := writer.NewTickWriter(writer.ConfigFrom(cfg.Writer), st, logger)

	sinks := []router.TickSink{cache, tw}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		sinks = append(sinks, m)
	}
	rtr := router.NewTickRouter(logger, sinks...)

	streamCfg := connection.DefaultStreamConfig()
	streamCfg.BaseURL = cfg.Feed.URL
	streamCfg.Symbols = cfg.Feed.Symbols
	streamCfg.PingInterval = cfg.Feed.PingInterval.D()
	streamCfg.PongTimeout = cfg.Feed.PongTimeout.D()
	streamCfg.ReconnectBaseDelay = cfg.Feed.ReconnectBaseDelay.D()
	streamCfg.ReconnectMaxDelay = cfg.Feed.ReconnectMaxDelay.D()
	streamCfg.BufferSize = cfg.Feed.BufferSize
	streamCfg.OnStateChange = func(s connection.State) {
		logger.Info("feed state changed", "state", s.String())
	}
	stream, err := connection.NewStream(streamCfg, rtr, logger)
	if err != nil {
		return err
	}

	svc := analytics.NewService(st, logger)
	evaluator := alert.New(alert.ConfigFrom(cfg.Alerts), st, svc, logger)

	deps := api.Deps{
		Store:       st,
		Analytics:   svc,
		Cache:       cache,
		StreamState: func() string { return stream.State().String() },
	}
	if m != nil {
		m.Register(metrics.Sources{
			Stream: stream.Stats,
			Router: rtr.Stats,
			Writer: tw.Stats,
			Alerts: evaluator.Stats,
			Cache:  cache.Len,
		})
		deps.Metrics = m.Handler()
	}
	server, err := api.NewServer(api.Config{
		Listen:      cfg.API.Listen,
		MetricsPath: cfg.Metrics.Path,
	}, deps, logger)
	if err != nil {
		return err
	}

	if err := tw.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return stream.Run(gctx) })
	g.Go(func() error { return evaluator.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return reportStats(gctx, stream, rtr, tw, evaluator, logger) })

	logger.Info("pairsd running", "api", server.Addr())
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	// The stream has stopped delivering; flush what the writer still holds.
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if stopErr := tw.Stop(stopCtx); stopErr != nil {
		logger.Warn("writer stop", "error", stopErr)
	}
	return err
}

func reportStats(ctx context.Context, stream *connection.Stream, rtr *router.TickRouter, tw *writer.TickWriter, ev *alert.Evaluator, logger *slog.Logger) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ss, rs, ws, as := stream.Stats(), rtr.Stats(), tw.Stats(), ev.Stats()
			logger.Info("stats",
				"state", ss.State.String(),
				"messages", ss.Messages,
				"ticks_routed", rs.TicksRouted,
				"parse_errors", rs.ParseErrors,
				"inserts", ws.Inserts,
				"pending", ws.Pending,
				"dropped", ws.Dropped,
				"alert_cycles", as.Cycles,
				"alerts_triggered", as.Triggered,
			)
		}
	}
}
