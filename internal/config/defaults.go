package config

import (
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultInstanceID         = "pairsd"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultFeedURL            = "wss://stream.binance.com:9443"
	DefaultPingInterval       = 20 * time.Second
	DefaultPongTimeout        = 20 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultFeedBufferSize     = 1000
	DefaultRestURL            = "https://api.binance.com"
	DefaultExchangeTimeout    = 10 * time.Second
	DefaultMaxRetries         = 3
	DefaultStoreDriver        = "sqlite"
	DefaultSQLitePath         = "data.db"
	DefaultSQLiteBusyTimeout  = 5 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 500
	DefaultFlushInterval      = 1 * time.Second
	DefaultWriterBufferSize   = 10000
	DefaultAlertInterval      = 1 * time.Second
	DefaultAlertLookback      = 7200 * time.Second
	DefaultAPIListen          = ":8000"
	DefaultMetricsPath        = "/metrics"
)

// DefaultSymbols is the instrument set streamed when none is configured.
var DefaultSymbols = []string{"btcusdt", "ethusdt", "bnbusdt", "solusdt"}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued optional fields and normalizes symbols.
func (c *Config) ApplyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if len(c.Feed.Symbols) == 0 {
		c.Feed.Symbols = append([]string(nil), DefaultSymbols...)
	}
	for i, s := range c.Feed.Symbols {
		c.Feed.Symbols[i] = strings.ToLower(strings.TrimSpace(s))
	}
	setDuration(&c.Feed.PingInterval, DefaultPingInterval)
	setDuration(&c.Feed.PongTimeout, DefaultPongTimeout)
	setDuration(&c.Feed.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	setDuration(&c.Feed.ReconnectMaxDelay, DefaultReconnectMaxDelay)
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// Exchange defaults
	if c.Exchange.RestURL == "" {
		c.Exchange.RestURL = DefaultRestURL
	}
	setDuration(&c.Exchange.Timeout, DefaultExchangeTimeout)
	if c.Exchange.MaxRetries == 0 {
		c.Exchange.MaxRetries = DefaultMaxRetries
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	c.Store.Driver = strings.ToLower(c.Store.Driver)
	if c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = DefaultSQLitePath
	}
	setDuration(&c.Store.SQLite.BusyTimeout, DefaultSQLiteBusyTimeout)
	applyDBDefaults(&c.Store.Postgres)

	// Writer defaults
	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}
	setDuration(&c.Writer.FlushInterval, DefaultFlushInterval)
	if c.Writer.BufferSize == 0 {
		c.Writer.BufferSize = DefaultWriterBufferSize
	}

	// Alert defaults
	setDuration(&c.Alerts.Interval, DefaultAlertInterval)
	setDuration(&c.Alerts.Lookback, DefaultAlertLookback)

	if c.API.Listen == "" {
		c.API.Listen = DefaultAPIListen
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func setDuration(d *Duration, def time.Duration) {
	if *d == 0 {
		*d = Duration(def)
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
