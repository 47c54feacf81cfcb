/*
Package chat contains the protocol dispatch and live-connection handling of the server.

This file defines the Client struct, one live WebSocket session. ReadPump processes the
session's frames strictly in arrival order and releases the identity when it exits, so
teardown can never interleave with a claim from the same connection.
*/
package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"buddychat/internal/app/presence"
	"buddychat/internal/pkg/errs"
	"buddychat/internal/pkg/logx"
	"buddychat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// sendQueueSize bounds the frames waiting for a slow reader.
	sendQueueSize = 256

	// DefaultMaxFrameBytes fits a data URL avatar plus framing.
	DefaultMaxFrameBytes = 512 << 10
)

// ClientOptions holds the per-connection transport limits.
type ClientOptions struct {
	MaxFrameBytes int64
	EventRate     rate.Limit
	EventBurst    int
}

// Client is one live transport session.
type Client struct {
	id   presence.ConnID
	hub  *Hub
	conn *websocket.Conn

	// send queues encoded frames for WritePump.
	send chan []byte

	// done is closed once the session is over; enqueue and WritePump watch it.
	done      chan struct{}
	closeOnce sync.Once

	maxFrame int64
	events   *rate.Limiter

	// throttled is only touched by ReadPump.
	throttled bool

	logger zerolog.Logger
}

// NewClient wraps an upgraded connection. The client is not registered until ReadPump runs.
func NewClient(hub *Hub, conn *websocket.Conn, opts ClientOptions) *Client {
	id := presence.ConnID(randx.ConnectionID())

	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if opts.EventRate <= 0 {
		opts.EventRate = rate.Inf
	}

	return &Client{
		id:       id,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
		maxFrame: opts.MaxFrameBytes,
		events:   rate.NewLimiter(opts.EventRate, opts.EventBurst),
		logger:   logx.Component("client").With().Str("conn_id", randx.Short(string(id))).Logger(),
	}
}

// ID returns the connection handle.
func (c *Client) ID() presence.ConnID {
	return c.id
}

// ReadPump registers the client, reads frames until the transport fails, then
// releases the connection. It blocks for the lifetime of the session.
func (c *Client) ReadPump() {
	if !c.hub.Register(c) {
		c.Kick(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(c.maxFrame)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInbound(data)
	}
}

// processInbound applies the per-connection rate limit, then hands the frame to the router.
func (c *Client) processInbound(data []byte) {
	if !c.events.Allow() {
		if !c.throttled {
			c.throttled = true
			c.logger.Warn().Msg("Client exceeded event rate, dropping frames.")
			c.hub.metrics.recordRejection(rejectionReason(errs.ErrRateLimitExceeded))
			c.hub.Deliver([]Envelope{{To: c.id, Frame: NewErrorFrame(errs.NewError(errs.ErrRateLimitExceeded))}})
		}
		return
	}
	c.throttled = false

	c.hub.Deliver(c.hub.router.Dispatch(c.id, data))
}

// cleanupOnDisconnect releases the identity and closes the transport.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.hub.Unregister(c)
	c.finish()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// finish marks the session over. Safe to call more than once.
func (c *Client) finish() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue queues an encoded frame without blocking. A full or finished queue drops it.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
		return false
	}
}

// WritePump writes queued frames and heartbeats until the session finishes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			return
		}
	}
}

// write sends one message under a write deadline. It returns false when the
// pump should stop.
func (c *Client) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Info().Err(err).Int("message_type", messageType).Msg("Error writing message")
		return false
	}

	return true
}

// Kick sends a close frame with the given code and tears the session down.
func (c *Client) Kick(code int, reason string) {
	c.logger.Info().
		Int("close_code", code).
		Str("reason", reason).
		Msg("Sending WS close message and closing connection.")

	closeMessage := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send WS close message.")
	}

	c.finish()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error in Kick")
	}
}
