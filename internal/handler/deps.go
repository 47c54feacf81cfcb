package handler

import (
	"github.com/prometheus/client_golang/prometheus"

	"buddychat/internal/app/chat"
	"buddychat/internal/configs"
)

type AppDeps struct {
	Hub    *chat.Hub
	Config *configs.AppConfig

	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}
