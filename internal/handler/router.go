/*
Package handler provides the HTTP handlers and routing setup for the BuddyChat server.

This file defines the main Router, applying the middleware chain (CORS, request IDs,
logging, panic recovery) before delegating to the health, metrics, WebSocket and
static-file handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"buddychat/internal/pkg/limiter"
	"buddychat/internal/pkg/logx"
	"buddychat/internal/pkg/resp"
)

// Rate for the plain HTTP endpoints, per IP.
const (
	StatusRate  = 5
	StatusBurst = 20
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// The returned stop function releases the limiters' background sweepers.
func Router(deps *AppDeps) (http.Handler, func()) {
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(deps.Config.ConnectRate), deps.Config.ConnectBurst)
	statusLimiter := limiter.NewIPRateLimiter(rate.Limit(StatusRate), StatusBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				// non-browser clients send no Origin
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Group(func(status chi.Router) {
		status.Use(statusLimiter.Middleware)

		status.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			data := map[string]any{
				"status":  "ok",
				"service": "BuddyChat Server",
				"clients": deps.Hub.ClientCount(),
			}
			resp.RespondSuccess(w, r, data)
		})

		if deps.Gatherer != nil {
			status.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
		}
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, connectLimiter, deps))

	if deps.Config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(deps.Config.StaticDir)))
	}

	return r, func() {
		connectLimiter.Close()
		statusLimiter.Close()
	}
}
