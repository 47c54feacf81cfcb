/*
Package chat contains the protocol dispatch and live-connection handling of the server.

This file defines the Hub, the table of live clients. It turns the router's envelopes
into queued frames and owns the registration lifecycle: a client is released exactly
once, and delivery to a connection that is gone is a silent drop.
*/
package chat

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"buddychat/internal/app/presence"
	"buddychat/internal/pkg/logx"
)

// Hub tracks every live client.
type Hub struct {
	router *Router

	// clients maps live connection handles to their session.
	clients map[presence.ConnID]*Client

	// mu protects clients and closed.
	mu     sync.RWMutex
	closed bool

	metrics *Metrics
	logger  zerolog.Logger
}

// NewHub creates a hub dispatching through router. metrics may be nil.
func NewHub(router *Router, metrics *Metrics) *Hub {
	return &Hub{
		router:  router,
		clients: make(map[presence.ConnID]*Client),
		metrics: metrics,
		logger:  logx.Component("hub"),
	}
}

// Router returns the router the hub dispatches through.
func (h *Hub) Router() *Router {
	return h.router
}

// Register adds c as an anonymous live connection. It returns false once the hub is shut down.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.router.Connect(c.id)

	h.logger.Info().
		Str("conn_id", string(c.id)).
		Int("total_clients", total).
		Msg("Client connected.")
	return true
}

// Unregister removes c and releases its identity. Later calls for the same client are no-ops.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.id]
	if !ok || current != c {
		h.mu.Unlock()
		h.logger.Debug().Str("conn_id", string(c.id)).Msg("Unregister for unknown/already removed client.")
		return
	}
	delete(h.clients, c.id)
	remaining := len(h.clients)
	h.mu.Unlock()

	name, named := h.router.Disconnect(c.id)

	event := h.logger.Info().
		Str("conn_id", string(c.id)).
		Int("total_clients", remaining)
	if named {
		event = event.Str("username", name)
	}
	event.Msg("Client disconnected.")
}

// Deliver queues each envelope on its target client. Missing or saturated targets drop the frame.
func (h *Hub) Deliver(envelopes []Envelope) {
	for _, env := range envelopes {
		frame, err := json.Marshal(env.Frame)
		if err != nil {
			h.logger.Error().Err(err).Str("msg_type", string(env.Frame.FrameType())).Msg("Error marshaling frame.")
			continue
		}

		h.mu.RLock()
		client, ok := h.clients[env.To]
		h.mu.RUnlock()

		if !ok {
			h.metrics.recordDelivery("gone")
			continue
		}

		if client.enqueue(frame) {
			h.metrics.recordDelivery("queued")
		} else {
			h.metrics.recordDelivery("dropped")
		}
	}
}

// ClientCount returns the number of live clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown refuses new clients and closes every live one. Each client's ReadPump
// then unregisters it.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down hub...")

	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Kick(websocket.CloseGoingAway, "server shutting down")
	}

	h.logger.Info().Int("closed_clients", len(clients)).Msg("Hub shutdown complete.")
}
