/*
Package main is the entry point for the BuddyChat server.

It loads configuration, initializes the global logging system, builds the presence,
relationship and transcript stores, starts the HTTP server with the WebSocket endpoint,
and gracefully handles operating system interrupt signals (SIGINT, SIGTERM).
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"buddychat/internal/app/chat"
	"buddychat/internal/app/presence"
	"buddychat/internal/app/social"
	"buddychat/internal/app/transcript"
	"buddychat/internal/configs"
	"buddychat/internal/handler"
	"buddychat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("max_message_bytes", cfg.MaxMessageBytes).
		Bool("history_requires_friendship", cfg.HistoryRequiresFriendship).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := chat.NewMetrics(reg)

	router := chat.NewRouter(
		presence.NewRegistry(),
		social.NewGraph(),
		transcript.NewStore(),
		chat.RouterOptions{
			MaxMessageBytes:           cfg.MaxMessageBytes,
			MaxAvatarBytes:            cfg.MaxAvatarBytes,
			HistoryRequiresFriendship: cfg.HistoryRequiresFriendship,
		},
		metrics,
	)
	hub := chat.NewHub(router, metrics)

	// Setup HTTP server and routes
	h, stopLimiter := handler.Router(&handler.AppDeps{
		Hub:      hub,
		Config:   cfg,
		Gatherer: reg,
	})
	defer stopLimiter()

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("BuddyChat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	// Hijacked WebSocket connections are invisible to server.Shutdown, so close them first.
	hub.Shutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
