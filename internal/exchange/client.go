package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"github.com/rickgao/pairs-data/internal/config"
)

// StatusTrading is the exchangeInfo status of a tradable symbol.
const StatusTrading = "TRADING"

// Errors
var (
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrNotTrading    = errors.New("symbol not trading")
)

// Client wraps the go-binance REST client with retries.
type Client struct {
	api    *binance.Client
	logger *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the REST API at baseURL. No API key is
// needed for the public endpoints used here.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	api := binance.NewClient("", "")
	if baseURL != "" {
		api.BaseURL = strings.TrimRight(baseURL, "/")
	}
	api.HTTPClient = &http.Client{Timeout: config.DefaultExchangeTimeout}

	c := &Client{
		api:          api,
		logger:       slog.Default(),
		maxRetries:   config.DefaultMaxRetries,
		retryBackoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a client from the exchange config section.
func NewClientFromConfig(cfg config.ExchangeConfig, logger *slog.Logger) *Client {
	opts := []ClientOption{WithRetries(cfg.MaxRetries, time.Second)}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout.D()))
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return NewClient(cfg.RestURL, opts...)
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.api.HTTPClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Ping checks REST connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.withRetry(ctx, "ping", func() error {
		return c.api.NewPingService().Do(ctx)
	})
}

// SymbolStatus returns the exchange status of each requested symbol, keyed
// by lowercase symbol. Symbols the exchange does not list are absent.
func (c *Client) SymbolStatus(ctx context.Context, symbols []string) (map[string]string, error) {
	upper := make([]string, 0, len(symbols))
	for _, s := range symbols {
		upper = append(upper, strings.ToUpper(strings.TrimSpace(s)))
	}

	var info *binance.ExchangeInfo
	err := c.withRetry(ctx, "exchangeInfo", func() error {
		var err error
		info, err = c.api.NewExchangeInfoService().Symbols(upper...).Do(ctx)
		return err
	})
	if err != nil {
		if isInvalidSymbol(err) {
			return nil, fmt.Errorf("exchange info: %w: %v", ErrUnknownSymbol, err)
		}
		return nil, fmt.Errorf("exchange info: %w", err)
	}

	out := make(map[string]string, len(info.Symbols))
	for _, s := range info.Symbols {
		out[strings.ToLower(s.Symbol)] = s.Status
	}
	return out, nil
}

// ValidateSymbols returns an error naming every symbol that is missing from
// the exchange or not currently trading.
func (c *Client) ValidateSymbols(ctx context.Context, symbols []string) error {
	status, err := c.SymbolStatus(ctx, symbols)
	if err != nil {
		return err
	}

	var missing, halted []string
	for _, s := range symbols {
		key := strings.ToLower(strings.TrimSpace(s))
		st, ok := status[key]
		switch {
		case !ok:
			missing = append(missing, key)
		case st != StatusTrading:
			halted = append(halted, key+"="+st)
		}
	}
	sort.Strings(missing)
	sort.Strings(halted)

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownSymbol, strings.Join(missing, ", ")))
	}
	if len(halted) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrNotTrading, strings.Join(halted, ", ")))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.logger.Info("symbols validated", "symbols", len(symbols))
	return nil
}
