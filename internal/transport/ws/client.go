package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fleet-monitor/alerting/internal/registry"
)

var (
	ErrClosed    = errors.New("connection closed")
	ErrQueueFull = errors.New("send queue full")
)

const maxInboundMessage = 512

type Options struct {
	SendQueueSize int
	PingInterval  time.Duration
	WriteTimeout  time.Duration
	ReadTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 64
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.ReadTimeout <= o.PingInterval {
		o.ReadTimeout = 2 * o.PingInterval
	}
	return o
}

// Registrar is the part of the registry a connection needs for its lifetime.
type Registrar interface {
	Connect(conn registry.Conn, key registry.Key) registry.Conn
	Disconnect(conn registry.Conn, key registry.Key)
}

// Client is one subscriber websocket. Messages go through a bounded queue
// drained by writePump; readPump only watches for the peer going away.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan string
	done   chan struct{}
	once   sync.Once
	opts   Options
	logger *slog.Logger
}

func newClient(conn *websocket.Conn, opts Options, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan string, opts.SendQueueSize),
		done:   make(chan struct{}),
		opts:   opts,
		logger: logger.With("conn", id),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues msg without blocking. It fails once the client is closed or
// when the peer has fallen a full queue behind.
func (c *Client) Send(msg string) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.conn.Close()
	})
	return err
}

// serve registers the client and blocks until the connection ends.
func (c *Client) serve(reg Registrar, key registry.Key) {
	reg.Connect(c, key)
	defer func() {
		reg.Disconnect(c, key)
		c.Close()
	}()

	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	c.conn.SetReadLimit(maxInboundMessage)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	})

	for {
		// Subscribers send nothing meaningful; any frame counts as keepalive.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("read failed", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				c.logger.Debug("write failed", "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			return
		}
	}
}
