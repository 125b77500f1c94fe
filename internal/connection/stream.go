package connection

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"
)

// StreamURL builds the combined-stream URL for the trade channels of symbols.
// Symbols are trimmed and lowercased; duplicates and empties are dropped.
func StreamURL(base string, symbols []string) (string, error) {
	streams := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		streams = append(streams, s+"@trade")
	}
	if len(streams) == 0 {
		return "", ErrNoSymbols
	}
	return strings.TrimRight(base, "/") + "/stream?streams=" + strings.Join(streams, "/"), nil
}

// Stream keeps one combined trade stream connected for as long as its context lives.
type Stream struct {
	cfg     StreamConfig
	url     string
	handler MessageHandler
	logger  *slog.Logger
	backoff *Backoff

	state         atomic.Int32
	connects      atomic.Int64
	disconnects   atomic.Int64
	messages      atomic.Int64
	handlerPanics atomic.Int64
}

// NewStream validates cfg and creates a Stream that delivers frames to handler.
func NewStream(cfg StreamConfig, handler MessageHandler, logger *slog.Logger) (*Stream, error) {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultStreamConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	url, err := StreamURL(cfg.BaseURL, cfg.Symbols)
	if err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("stream handler is required")
	}

	return &Stream{
		cfg:     cfg,
		url:     url,
		handler: handler,
		logger:  logger,
		backoff: NewBackoff(cfg.ReconnectBaseDelay, cfg.ReconnectMaxDelay),
	}, nil
}

// URL returns the combined-stream URL this Stream connects to.
func (s *Stream) URL() string { return s.url }

// State returns the current connection state.
func (s *Stream) State() State { return State(s.state.Load()) }

// Stats returns current metrics.
func (s *Stream) Stats() StreamStats {
	return StreamStats{
		State:         s.State(),
		Connects:      s.connects.Load(),
		Disconnects:   s.disconnects.Load(),
		Messages:      s.messages.Load(),
		HandlerPanics: s.handlerPanics.Load(),
	}
}

// Run connects and consumes frames until ctx is cancelled, reconnecting after
// every connection error. It returns nil on cancellation.
func (s *Stream) Run(ctx context.Context) error {
	s.logger.Info("trade stream starting", "url", s.url)

	for {
		if ctx.Err() != nil {
			return nil
		}

		client := NewClient(ClientConfig{
			URL:          s.url,
			PingInterval: s.cfg.PingInterval,
			PongTimeout:  s.cfg.PongTimeout,
			BufferSize:   s.cfg.BufferSize,
		}, s.logger)

		if err := client.Connect(ctx); err != nil {
			client.Close()
			if ctx.Err() != nil {
				return nil
			}
			wait := s.backoff.Next()
			s.logger.Warn("connect failed", "error", err, "retry_in", wait)
			if !s.sleep(ctx, wait) {
				return nil
			}
			continue
		}

		s.backoff.Reset()
		s.connects.Add(1)
		s.setState(StateConnected)
		s.logger.Info("trade stream connected")

		err := s.consume(ctx, client)
		client.Close()
		s.disconnects.Add(1)
		s.setState(StateDisconnected)

		if ctx.Err() != nil {
			s.logger.Info("trade stream stopped")
			return nil
		}

		wait := s.backoff.Next()
		s.logger.Warn("trade stream disconnected", "error", err, "retry_in", wait)
		if !s.sleep(ctx, wait) {
			return nil
		}
	}
}

// consume forwards frames until the client reports an error or ctx ends.
func (s *Stream) consume(ctx context.Context, client Client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-client.Errors():
			// Deliver what was read before the failure.
			for {
				select {
				case msg := <-client.Messages():
					s.dispatch(ctx, msg)
				default:
					return err
				}
			}

		case msg := <-client.Messages():
			s.dispatch(ctx, msg)
		}
	}
}

// dispatch calls the handler, isolating its panics from the connection.
func (s *Stream) dispatch(ctx context.Context, msg TimestampedMessage) {
	s.messages.Add(1)
	defer func() {
		if r := recover(); r != nil {
			s.handlerPanics.Add(1)
			s.logger.Error("message handler panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.handler.HandleMessage(ctx, msg)
}

func (s *Stream) setState(st State) {
	if State(s.state.Swap(int32(st))) == st {
		return
	}
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(st)
	}
}

func (s *Stream) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
