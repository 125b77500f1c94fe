package api

import (
	"context"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/pairs-data/internal/analytics"
	"github.com/rickgao/pairs-data/internal/export"
	"github.com/rickgao/pairs-data/internal/model"
	"github.com/rickgao/pairs-data/internal/version"
)

// Default limits for list endpoints.
const (
	defaultSymbolLimit = 200
	defaultEventLimit  = 200
)

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok", "version": version.Version}
	if s.deps.StreamState != nil {
		body["stream"] = s.deps.StreamState()
	}
	if err := s.deps.Store.Ping(ctx); err != nil {
		body["status"] = "unavailable"
		body["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// handleSymbols returns the union of stored symbols and symbols seen live.
func (s *Server) handleSymbols(c *gin.Context) {
	limit, err := intParam(c, "limit", defaultSymbolLimit, 1)
	if err != nil {
		s.fail(c, err)
		return
	}
	stored, err := s.deps.Analytics.Symbols(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}

	seen := make(map[string]struct{}, len(stored))
	out := make([]string, 0, len(stored))
	for _, sym := range append(stored, s.deps.Cache.Symbols()...) {
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	sort.Strings(out)
	c.JSON(http.StatusOK, gin.H{"symbols": out})
}

type tickJSON struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Size   float64 `json:"size"`
	TSMs   int64   `json:"ts_ms"`
	TSISO  string  `json:"ts_iso"`
}

// handleLatestTick answers {} when the symbol has not been seen.
func (s *Server) handleLatestTick(c *gin.Context) {
	symbol, err := symbolParam(c, "symbol")
	if err != nil {
		s.fail(c, err)
		return
	}
	t, ok := s.deps.Cache.Get(symbol)
	if !ok {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, tickJSON{
		Symbol: t.Symbol,
		Price:  t.Price,
		Size:   t.Size,
		TSMs:   t.TS.UnixMilli(),
		TSISO:  export.FormatTS(t.TS),
	})
}

func (s *Server) bars(c *gin.Context) (string, []model.Bar, error) {
	symbol, err := symbolParam(c, "symbol")
	if err != nil {
		return "", nil, err
	}
	tf, err := timeframeParam(c, model.Timeframe1m)
	if err != nil {
		return "", nil, err
	}
	lookback, err := lookbackParam(c, analytics.DefaultBarsLookback)
	if err != nil {
		return "", nil, err
	}
	out, err := s.deps.Analytics.Bars(c.Request.Context(), symbol, tf, lookback)
	return symbol, out, err
}

func (s *Server) handleBars(c *gin.Context) {
	symbol, bars, err := s.bars(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"rows":   export.BarRecords(bars),
	})
}

type statsJSON struct {
	Beta         float64  `json:"beta"`
	LatestSpread float64  `json:"latest_spread"`
	LatestZScore *float64 `json:"latest_zscore"`
	LatestCorr   float64  `json:"latest_corr"`
	N            int      `json:"n"`
}

func summarize(stats *model.PairsStats) statsJSON {
	last := stats.Latest()
	out := statsJSON{
		Beta:         stats.Beta,
		LatestSpread: last.Spread,
		LatestCorr:   last.Corr,
		N:            stats.N,
	}
	if z, ok := stats.LatestZ(); ok {
		out.LatestZScore = &z
	}
	return out
}

func (s *Server) pair(c *gin.Context, defWindow int) (*model.PairsStats, error) {
	q, err := parsePairQuery(c, defWindow, analytics.DefaultPairLookback)
	if err != nil {
		return nil, err
	}
	return s.deps.Analytics.Pair(c.Request.Context(), q.a, q.b, q.tf, q.window, q.lookback)
}

func (s *Server) handlePairAnalytics(c *gin.Context) {
	stats, err := s.pair(c, analytics.DefaultPairWindow)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats": summarize(stats),
		"table": export.PairRecords(stats.Rows),
	})
}

func (s *Server) handlePairADF(c *gin.Context) {
	q, err := parsePairQuery(c, analytics.DefaultADFWindow, analytics.DefaultPairLookback)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.deps.Analytics.ADF(c.Request.Context(), q.a, q.b, q.tf, q.window, q.lookback)
	if err != nil {
		s.fail(c, err)
		return
	}
	if math.IsNaN(res.ICBest) || math.IsInf(res.ICBest, 0) {
		res.ICBest = 0
	}
	c.JSON(http.StatusOK, res)
}

// alertRequest is accepted as query parameters or a JSON body.
type alertRequest struct {
	ID        int64   `form:"id" json:"id"`
	Name      string  `form:"name" json:"name"`
	A         string  `form:"a" json:"a"`
	B         string  `form:"b" json:"b"`
	Timeframe string  `form:"timeframe" json:"timeframe"`
	TF        string  `form:"tf" json:"tf"`
	Window    int     `form:"window" json:"window"`
	Threshold float64 `form:"threshold" json:"threshold"`
	Enabled   bool    `form:"enabled" json:"enabled"`
}

func (r alertRequest) rule() model.AlertRule {
	tf := r.Timeframe
	if r.TF != "" {
		tf = r.TF
	}
	return model.AlertRule{
		ID:        r.ID,
		Name:      r.Name,
		SymbolA:   normalize(r.A),
		SymbolB:   normalize(r.B),
		Timeframe: model.Timeframe(tf),
		Window:    r.Window,
		Threshold: r.Threshold,
		Enabled:   r.Enabled,
	}
}

func (s *Server) handleCreateAlert(c *gin.Context) {
	req := alertRequest{
		Timeframe: string(model.Timeframe1m),
		Window:    analytics.DefaultPairWindow,
		Threshold: 2.0,
		Enabled:   true,
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		s.fail(c, &paramError{"query", err.Error()})
		return
	}
	if c.Request.ContentLength > 0 && c.ContentType() == "application/json" {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, &paramError{"body", err.Error()})
			return
		}
	}

	rule := req.rule()
	if err := rule.Validate(); err != nil {
		s.fail(c, err)
		return
	}
	id, err := s.deps.Store.UpsertAlertRule(c.Request.Context(), rule)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("alert rule saved", "rule_id", id, "rule", rule.Name)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

type ruleJSON struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	A         string  `json:"a"`
	B         string  `json:"b"`
	TF        string  `json:"tf"`
	Window    int     `json:"window"`
	Threshold float64 `json:"threshold"`
	Enabled   bool    `json:"enabled"`
}

func (s *Server) handleListAlerts(c *gin.Context) {
	rules, err := s.deps.Store.ListAlertRules(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]ruleJSON, len(rules))
	for i, r := range rules {
		out[i] = ruleJSON{
			ID:        r.ID,
			Name:      r.Name,
			A:         r.SymbolA,
			B:         r.SymbolB,
			TF:        r.Timeframe.String(),
			Window:    r.Window,
			Threshold: r.Threshold,
			Enabled:   r.Enabled,
		}
	}
	c.JSON(http.StatusOK, gin.H{"rules": out})
}

type eventJSON struct {
	ID       int64  `json:"id"`
	Key      string `json:"key"`
	TSMs     int64  `json:"ts_ms"`
	RuleID   int64  `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Message  string `json:"message"`
}

func (s *Server) handleAlertEvents(c *gin.Context) {
	limit, err := intParam(c, "limit", defaultEventLimit, 1)
	if err != nil {
		s.fail(c, err)
		return
	}
	events, err := s.deps.Store.ListAlertEvents(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]eventJSON, len(events))
	for i, e := range events {
		out[i] = eventJSON{
			ID:       e.ID,
			Key:      e.Key.String(),
			TSMs:     e.TS.UnixMilli(),
			RuleID:   e.RuleID,
			RuleName: e.RuleName,
			Message:  e.Message,
		}
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}
