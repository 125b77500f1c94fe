package writer

import (
	"time"

	"github.com/rickgao/pairs-data/internal/config"
)

// Config holds batch writer settings.
type Config struct {
	// BatchSize is the number of ticks to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize bounds the queue between the router and the writer.
	BufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     config.DefaultBatchSize,
		FlushInterval: config.DefaultFlushInterval,
		BufferSize:    config.DefaultWriterBufferSize,
	}
}

// ConfigFrom converts the loaded writer section.
func ConfigFrom(c config.WriterConfig) Config {
	return Config{
		BatchSize:     c.BatchSize,
		FlushInterval: c.FlushInterval.D(),
		BufferSize:    c.BufferSize,
	}
}

// Metrics holds writer counters.
type Metrics struct {
	Inserts int64 // Ticks written
	Errors  int64 // Failed batch inserts
	Flushes int64 // Successful batch inserts
	Dropped int64 // Ticks rejected because the queue was full
	Pending int   // Ticks queued but not yet flushed
}
