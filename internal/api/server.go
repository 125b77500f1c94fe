package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/pairs-data/internal/analytics"
	"github.com/rickgao/pairs-data/internal/market"
	"github.com/rickgao/pairs-data/internal/store"
)

// DefaultListen is the listen address used when Config.Listen is empty.
const DefaultListen = ":8000"

// Config holds server settings.
type Config struct {
	Listen          string
	MetricsPath     string // Defaults to /metrics
	ShutdownTimeout time.Duration
}

// Deps are the components the handlers read from.
type Deps struct {
	Store     store.Store
	Analytics *analytics.Service
	Cache     *market.LastTickCache

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// StreamState reports the feed connection state for /health when set.
	StreamState func() string
}

// Server is the gin HTTP server.
type Server struct {
	cfg    Config
	deps   Deps
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a Server. Store, Analytics and Cache are required.
func NewServer(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Store == nil || deps.Analytics == nil || deps.Cache == nil {
		return nil, errors.New("api: store, analytics and cache are required")
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: router,
		logger: logger,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.GET(s.cfg.MetricsPath, gin.WrapH(s.deps.Metrics))
	}

	s.router.GET("/symbols", s.handleSymbols)
	s.router.GET("/latest_tick", s.handleLatestTick)
	s.router.GET("/bars", s.handleBars)

	pairs := s.router.Group("/pairs")
	pairs.GET("/analytics", s.handlePairAnalytics)
	pairs.GET("/adf", s.handlePairADF)

	alerts := s.router.Group("/alerts")
	alerts.POST("", s.handleCreateAlert)
	alerts.GET("", s.handleListAlerts)
	alerts.GET("/events", s.handleAlertEvents)

	export := s.router.Group("/export")
	for _, format := range exportFormats {
		export.GET("/bars."+format, s.handleExportBars(format))
		export.GET("/analytics."+format, s.handleExportAnalytics(format))
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.Listen }

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info("api server listening", "addr", s.cfg.Listen)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			s.logger.Warn("api server shutdown", "error", err)
		}
		s.logger.Info("api server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
