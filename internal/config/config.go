package config

// Config is the root configuration for a pairsd instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance" toml:"instance"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Feed     FeedConfig     `yaml:"feed" toml:"feed"`
	Exchange ExchangeConfig `yaml:"exchange" toml:"exchange"`
	Store    StoreConfig    `yaml:"store" toml:"store"`
	Writer   WriterConfig   `yaml:"writer" toml:"writer"`
	Alerts   AlertsConfig   `yaml:"alerts" toml:"alerts"`
	API      APIConfig      `yaml:"api" toml:"api"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// InstanceConfig identifies this process in logs.
type InstanceConfig struct {
	ID string `yaml:"id" toml:"id"`
}

// LoggingConfig controls the root slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text or json
}

// FeedConfig holds the trade stream settings.
type FeedConfig struct {
	URL                string   `yaml:"url" toml:"url"`
	Symbols            []string `yaml:"symbols" toml:"symbols"`
	PingInterval       Duration `yaml:"ping_interval" toml:"ping_interval"`
	PongTimeout        Duration `yaml:"pong_timeout" toml:"pong_timeout"`
	ReconnectBaseDelay Duration `yaml:"reconnect_base_delay" toml:"reconnect_base_delay"`
	ReconnectMaxDelay  Duration `yaml:"reconnect_max_delay" toml:"reconnect_max_delay"`
	BufferSize         int      `yaml:"buffer_size" toml:"buffer_size"`
}

// ExchangeConfig holds the Binance REST settings used for symbol validation.
type ExchangeConfig struct {
	RestURL         string   `yaml:"rest_url" toml:"rest_url"`
	ValidateSymbols bool     `yaml:"validate_symbols" toml:"validate_symbols"`
	Timeout         Duration `yaml:"timeout" toml:"timeout"`
	MaxRetries      int      `yaml:"max_retries" toml:"max_retries"`
}

// StoreConfig selects and configures the tick store backend.
type StoreConfig struct {
	Driver   string       `yaml:"driver" toml:"driver"` // sqlite, postgres, memory
	SQLite   SQLiteConfig `yaml:"sqlite" toml:"sqlite"`
	Postgres DBConfig     `yaml:"postgres" toml:"postgres"`
}

// SQLiteConfig holds the embedded database settings.
type SQLiteConfig struct {
	Path        string   `yaml:"path" toml:"path"`
	BusyTimeout Duration `yaml:"busy_timeout" toml:"busy_timeout"`
}

// DBConfig holds a single Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Name     string `yaml:"name" toml:"name"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	SSLMode  string `yaml:"ssl_mode" toml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns" toml:"max_conns"`
	MinConns int    `yaml:"min_conns" toml:"min_conns"`
}

// WriterConfig holds tick batch writer settings.
type WriterConfig struct {
	BatchSize     int      `yaml:"batch_size" toml:"batch_size"`
	FlushInterval Duration `yaml:"flush_interval" toml:"flush_interval"`
	BufferSize    int      `yaml:"buffer_size" toml:"buffer_size"`
}

// AlertsConfig holds alert evaluator settings.
type AlertsConfig struct {
	Interval Duration `yaml:"interval" toml:"interval"`
	Lookback Duration `yaml:"lookback" toml:"lookback"`
}

// APIConfig holds the HTTP query surface settings.
type APIConfig struct {
	Listen string `yaml:"listen" toml:"listen"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}
