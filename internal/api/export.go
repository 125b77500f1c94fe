package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/pairs-data/internal/analytics"
	"github.com/rickgao/pairs-data/internal/export"
)

var exportFormats = []string{"csv", "json", "parquet"}

func (s *Server) handleExportBars(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := export.New(format)
		if err != nil {
			s.fail(c, err)
			return
		}
		_, bars, err := s.bars(c)
		if err != nil {
			s.fail(c, err)
			return
		}
		attachment(c, "bars."+e.Extension(), e.ContentType())
		if err := e.WriteBars(c.Writer, bars); err != nil {
			s.logger.Error("export bars failed", "format", format, "error", err)
		}
	}
}

func (s *Server) handleExportAnalytics(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := export.New(format)
		if err != nil {
			s.fail(c, err)
			return
		}
		stats, err := s.pair(c, analytics.DefaultPairWindow)
		if err != nil {
			s.fail(c, err)
			return
		}
		attachment(c, "analytics."+e.Extension(), e.ContentType())
		if err := e.WritePairs(c.Writer, stats.Rows); err != nil {
			s.logger.Error("export analytics failed", "format", format, "error", err)
		}
	}
}

func attachment(c *gin.Context, filename, contentType string) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)
}

func normalize(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
