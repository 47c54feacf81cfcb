/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which rate limits connection attempts
per IP, upgrades the HTTP connection to WebSocket, and runs the client lifecycle. The
connection starts anonymous; identity is claimed in-band with set_username.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"buddychat/internal/app/chat"
	"buddychat/internal/pkg/errs"
	"buddychat/internal/pkg/limiter"
	"buddychat/internal/pkg/logx"
	"buddychat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// It blocks for the lifetime of the connection.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	opts := chat.ClientOptions{
		MaxFrameBytes: clientFrameLimit(deps),
		EventRate:     rate.Limit(deps.Config.EventRate),
		EventBurst:    deps.Config.EventBurst,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(deps.Hub, conn, opts)

		go client.WritePump()

		logx.Info("WebSocket connection established", "conn_id", string(client.ID()))

		client.ReadPump()
	}
}

// clientFrameLimit leaves room for the largest avatar plus its JSON envelope.
func clientFrameLimit(deps *AppDeps) int64 {
	limit := int64(chat.DefaultMaxFrameBytes)
	if need := int64(deps.Config.MaxAvatarBytes) + 4096; need > limit {
		limit = need
	}
	return limit
}
