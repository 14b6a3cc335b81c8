package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/insightpulseai/slack-agent/internal/httputil"
	"github.com/insightpulseai/slack-agent/internal/logging"
	"github.com/insightpulseai/slack-agent/internal/metrics"
	"github.com/insightpulseai/slack-agent/internal/ratelimit"
	"github.com/insightpulseai/slack-agent/internal/routes"
	"github.com/insightpulseai/slack-agent/internal/slack"
)

// Slack signature headers.
const (
	HeaderSignature = "X-Slack-Signature"
	HeaderTimestamp = "X-Slack-Request-Timestamp"
)

// Dispatcher is the post-acknowledgment pipeline. Handlers call it on a
// detached goroutine after the response has been written; its outcome can
// never reach the Slack caller.
type Dispatcher interface {
	DispatchEvent(env *slack.Envelope)
	DispatchCommand(cmd slack.Command)
	DispatchInteraction(in *slack.Interaction)
}

// SlackHandler serves the three inbound Slack endpoints. Every endpoint
// follows the same ordering contract: verify the signature against the raw
// body, parse, acknowledge, then dispatch asynchronously.
type SlackHandler struct {
	signingSecret string
	dispatcher    Dispatcher
	rateLimiter   ratelimit.RateLimiter
	logger        *logging.Logger
}

// NewSlackHandler constructs the handler set.
func NewSlackHandler(signingSecret string, dispatcher Dispatcher, rateLimiter ratelimit.RateLimiter, logger *logging.Logger) *SlackHandler {
	if rateLimiter == nil {
		rateLimiter = &ratelimit.NoOpRateLimiter{}
	}
	return &SlackHandler{
		signingSecret: signingSecret,
		dispatcher:    dispatcher,
		rateLimiter:   rateLimiter,
		logger:        logger,
	}
}

// HandleEvents serves POST /slack/events (Events API, JSON body).
func (h *SlackHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, ok := h.verifiedBody(w, r, "events")
	if !ok {
		return
	}

	var env slack.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		metrics.RequestsTotal.WithLabelValues("events", "400").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "malformed body")
		return
	}

	// One-time endpoint handshake during app setup.
	if env.Type == slack.TypeURLVerification {
		metrics.RequestsTotal.WithLabelValues("events", "200").Inc()
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
		return
	}

	// Ack inside Slack's response budget; all remaining work is detached.
	metrics.RequestsTotal.WithLabelValues("events", "200").Inc()
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})

	if env.Type == slack.TypeEventCallback {
		envCopy := env
		go h.dispatcher.DispatchEvent(&envCopy)
	}
}

// HandleCommands serves POST /slack/commands (slash commands, form body).
func (h *SlackHandler) HandleCommands(w http.ResponseWriter, r *http.Request) {
	body, ok := h.verifiedBody(w, r, "commands")
	if !ok {
		return
	}

	form, err := parseForm(body)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("commands", "400").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "malformed body")
		return
	}
	cmd := slack.ParseCommand(form)

	text := "Unknown command: " + cmd.Command
	if _, routed := routes.ResolveCommand(cmd.Command); routed {
		text = "Processing " + cmd.Command + "..."
	}

	metrics.RequestsTotal.WithLabelValues("commands", "200").Inc()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"response_type": "ephemeral",
		"text":          text,
	})

	go h.dispatcher.DispatchCommand(cmd)
}

// HandleInteractive serves POST /slack/interactive (interactivity payloads,
// form body carrying a JSON "payload" field).
func (h *SlackHandler) HandleInteractive(w http.ResponseWriter, r *http.Request) {
	body, ok := h.verifiedBody(w, r, "interactive")
	if !ok {
		return
	}

	form, err := parseForm(body)
	if err != nil || form.Get("payload") == "" {
		metrics.RequestsTotal.WithLabelValues("interactive", "400").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "missing payload")
		return
	}

	in, err := slack.ParseInteraction(form.Get("payload"))
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("interactive", "400").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// Slack clears its loading state off the status code alone.
	metrics.RequestsTotal.WithLabelValues("interactive", "200").Inc()
	w.WriteHeader(http.StatusOK)

	go h.dispatcher.DispatchInteraction(in)
}

// Health serves liveness checks.
func (h *SlackHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready serves readiness checks.
func (h *SlackHandler) Ready(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// verifiedBody enforces everything that must happen before parsing: method,
// rate limit, and signature verification over the exact wire bytes.
func (h *SlackHandler) verifiedBody(w http.ResponseWriter, r *http.Request, endpoint string) ([]byte, bool) {
	if r.Method != http.MethodPost {
		metrics.RequestsTotal.WithLabelValues(endpoint, "405").Inc()
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}

	allowed, err := h.rateLimiter.Allow(r.Context(), endpoint)
	if err != nil {
		h.logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request", logging.Endpoint(endpoint), logging.Error(err))
	} else if !allowed {
		metrics.RequestsTotal.WithLabelValues(endpoint, "429").Inc()
		httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return nil, false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(endpoint, "400").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "failed to read body")
		return nil, false
	}
	defer r.Body.Close()

	err = slack.Verify(h.signingSecret, body, r.Header.Get(HeaderTimestamp), r.Header.Get(HeaderSignature))
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(endpoint, "401").Inc()
		metrics.VerificationFailures.WithLabelValues(endpoint, verifyReason(err)).Inc()
		h.logger.WarnContext(r.Context(), "signature verification failed", logging.Endpoint(endpoint), logging.Error(err))
		httputil.WriteError(w, http.StatusUnauthorized, err.Error())
		return nil, false
	}

	return body, true
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, slack.ErrMissingHeaders):
		return "missing_headers"
	case errors.Is(err, slack.ErrReplayTooOld):
		return "replay_too_old"
	case errors.Is(err, slack.ErrSignatureMismatch):
		return "signature_mismatch"
	default:
		return "other"
	}
}
