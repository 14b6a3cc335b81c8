package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insightpulseai/slack-agent/internal/handlers"
	"github.com/insightpulseai/slack-agent/internal/middleware"
)

// NewRouter constructs a ServeMux with the Slack endpoints registered.
func NewRouter(h *handlers.SlackHandler) http.Handler {
	mux := http.NewServeMux()

	// Slack inbound surface
	mux.HandleFunc("/slack/events", h.HandleEvents)
	mux.HandleFunc("/slack/commands", h.HandleCommands)
	mux.HandleFunc("/slack/interactive", h.HandleInteractive)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
