package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/pairs-data/internal/model"
)

// paramError is a malformed or missing query parameter.
type paramError struct {
	name string
	msg  string
}

func (e *paramError) Error() string { return e.name + ": " + e.msg }

func symbolParam(c *gin.Context, name string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(c.Query(name)))
	if v == "" {
		return "", &paramError{name, "is required"}
	}
	return v, nil
}

// timeframeParam reads tf, falling back to timeframe, then def.
func timeframeParam(c *gin.Context, def model.Timeframe) (model.Timeframe, error) {
	raw := c.Query("tf")
	if raw == "" {
		raw = c.Query("timeframe")
	}
	if raw == "" {
		return def, nil
	}
	tf, err := model.ParseTimeframe(raw)
	if err != nil {
		return "", &paramError{"tf", fmt.Sprintf("must be one of 1s, 1m, 5m, got %q", raw)}
	}
	return tf, nil
}

func intParam(c *gin.Context, name string, def, minValue int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name, fmt.Sprintf("must be an integer, got %q", raw)}
	}
	if v < minValue {
		return 0, &paramError{name, fmt.Sprintf("must be >= %d, got %d", minValue, v)}
	}
	return v, nil
}

func lookbackParam(c *gin.Context, def time.Duration) (time.Duration, error) {
	sec, err := intParam(c, "lookback_sec", int(def/time.Second), 1)
	if err != nil {
		return 0, err
	}
	return time.Duration(sec) * time.Second, nil
}

// pairQuery is the parameter set shared by the pair endpoints.
type pairQuery struct {
	a, b     string
	tf       model.Timeframe
	window   int
	lookback time.Duration
}

func parsePairQuery(c *gin.Context, defWindow int, defLookback time.Duration) (pairQuery, error) {
	var q pairQuery
	var err error
	if q.a, err = symbolParam(c, "a"); err != nil {
		return q, err
	}
	if q.b, err = symbolParam(c, "b"); err != nil {
		return q, err
	}
	if q.tf, err = timeframeParam(c, model.Timeframe1m); err != nil {
		return q, err
	}
	if q.window, err = intParam(c, "window", defWindow, 2); err != nil {
		return q, err
	}
	if q.lookback, err = lookbackParam(c, defLookback); err != nil {
		return q, err
	}
	return q, nil
}
