package connection

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrNoSymbols       = errors.New("no symbols to subscribe")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// MessageHandler consumes frames from a Stream. It is called from a single goroutine.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg TimestampedMessage)
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(ctx context.Context, msg TimestampedMessage)

func (f MessageHandlerFunc) HandleMessage(ctx context.Context, msg TimestampedMessage) {
	f(ctx, msg)
}

// State is the connection state of a Stream.
type State int32

const (
	StateDisconnected State = iota
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // Full WebSocket URL including the stream query
	PingInterval time.Duration // How often the client pings the server
	PongTimeout  time.Duration // Max silence after a ping before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends and control frames
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval: 20 * time.Second,
		PongTimeout:  20 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// StreamConfig configures a reconnecting combined trade stream.
type StreamConfig struct {
	BaseURL            string   // e.g. wss://stream.binance.com:9443
	Symbols            []string // Instruments to subscribe; lowercased on use
	PingInterval       time.Duration
	PongTimeout        time.Duration
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	BufferSize         int

	// OnStateChange, if set, is called on every state transition.
	OnStateChange func(State)
}

// DefaultStreamConfig returns sensible defaults.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		BaseURL:            "wss://stream.binance.com:9443",
		PingInterval:       20 * time.Second,
		PongTimeout:        20 * time.Second,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  30 * time.Second,
		BufferSize:         1000,
	}
}

// StreamStats contains runtime statistics.
type StreamStats struct {
	State         State
	Connects      int64
	Disconnects   int64
	Messages      int64
	HandlerPanics int64
}
