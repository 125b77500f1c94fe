package connection

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a single read-only websocket connection to the trade feed.
// Subscriptions are encoded in the URL, so nothing is written except control frames.
type Client interface {
	// Connect dials the feed and starts the read and keepalive loops.
	Connect(ctx context.Context) error

	// Close sends a close frame and releases the connection. Safe to call twice.
	Close() error

	// Messages delivers data frames stamped with their local receive time.
	Messages() <-chan TimestampedMessage

	// Errors delivers at most one error: the reason the connection ended.
	Errors() <-chan error

	// Connected reports whether the connection is up.
	Connected() bool
}

type wsClient struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn      *websocket.Conn
	messages  chan TimestampedMessage
	errs      chan error
	stop      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	connected atomic.Bool
}

// NewClient creates an unconnected client. Zero config fields take defaults.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultClientConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = def.PongTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &wsClient{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan TimestampedMessage, cfg.BufferSize),
		errs:     make(chan error, 1),
		stop:     make(chan struct{}),
	}
}

// idleLimit is how long the connection may stay silent: one ping interval
// plus the time allowed for the pong.
func (c *wsClient) idleLimit() time.Duration {
	return c.cfg.PingInterval + c.cfg.PongTimeout
}

func (c *wsClient) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrAlreadyClosed
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}
	c.conn = conn

	// Any inbound frame proves liveness and pushes the read deadline out.
	conn.SetReadDeadline(time.Now().Add(c.idleLimit()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.idleLimit()))
	})
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(c.idleLimit()))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.cfg.WriteTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	c.connected.Store(true)
	go c.readLoop()
	go c.keepalive()

	c.logger.Debug("feed connected", "url", c.cfg.URL)
	return nil
}

func (c *wsClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.connected.Store(false)
		close(c.stop)
		if c.conn == nil {
			return
		}
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = c.conn.Close()
	})
	return err
}

func (c *wsClient) Messages() <-chan TimestampedMessage { return c.messages }

func (c *wsClient) Errors() <-chan error { return c.errs }

func (c *wsClient) Connected() bool { return c.connected.Load() }

// report records why the connection ended. Errors after Close are ignored.
func (c *wsClient) report(err error) {
	c.connected.Store(false)
	if c.closed.Load() {
		return
	}
	select {
	case c.errs <- err:
	default:
	}
}

func (c *wsClient) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				c.logger.Warn("feed silent past deadline", "idle_limit", c.idleLimit())
				err = ErrStaleConnection
			}
			c.report(err)
			return
		}
		c.conn.SetReadDeadline(receivedAt.Add(c.idleLimit()))

		select {
		case c.messages <- TimestampedMessage{Data: data, ReceivedAt: receivedAt}:
		case <-c.stop:
			return
		default:
			c.logger.Warn("feed buffer full, dropping frame")
		}
	}
}

// keepalive pings on every interval until the client stops.
func (c *wsClient) keepalive() {
	t := time.NewTicker(c.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-t.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, now.Add(c.cfg.WriteTimeout)); err != nil {
				c.logger.Debug("ping failed", "error", err)
			}
		}
	}
}
