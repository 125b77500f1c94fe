package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/pairs-data/internal/model"
	"github.com/rickgao/pairs-data/internal/pairs"
	"github.com/rickgao/pairs-data/internal/stationarity"
	"github.com/rickgao/pairs-data/internal/store"
)

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var pe *paramError
	switch {
	case errors.As(err, &pe),
		errors.Is(err, model.ErrUnknownTimeframe),
		errors.Is(err, model.ErrInvalidRule),
		errors.Is(err, pairs.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInsufficientData),
		errors.Is(err, pairs.ErrDegenerateRegression),
		errors.Is(err, stationarity.ErrDegenerateSeries):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrRuleNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
