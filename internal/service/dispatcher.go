// Package service carries the post-acknowledgment half of the request
// lifecycle: route resolution, idempotency key derivation, and the enqueue
// call against the ops ledger. Handlers ack first and hand off here; nothing
// in this package can affect a response that has already been sent.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/insightpulseai/slack-agent/internal/logging"
	"github.com/insightpulseai/slack-agent/internal/metrics"
	"github.com/insightpulseai/slack-agent/internal/routes"
	"github.com/insightpulseai/slack-agent/internal/slack"
	"github.com/insightpulseai/slack-agent/internal/taskbus"
)

// Dispatcher turns verified Slack payloads into runs on the ledger.
// Enqueue failures are logged and counted, never propagated: the upstream
// response was committed before dispatch began.
type Dispatcher struct {
	enqueuer taskbus.Enqueuer
	logger   *logging.Logger
	timeout  time.Duration
}

// NewDispatcher constructs a Dispatcher around an injected Enqueuer.
func NewDispatcher(enqueuer taskbus.Enqueuer, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		enqueuer: enqueuer,
		logger:   logger,
		timeout:  10 * time.Second,
	}
}

// DispatchEvent processes an event_callback envelope. Unroutable event types
// are dropped silently; that is the contract for events we acked but do not
// handle.
func (d *Dispatcher) DispatchEvent(env *slack.Envelope) {
	var inner slack.InnerEvent
	if err := json.Unmarshal(env.Event, &inner); err != nil {
		d.logger.Warn("failed to decode inner event", logging.EventID(env.EventID), logging.Error(err))
		return
	}

	route, ok := routes.ResolveEvent(inner.Type)
	if !ok {
		d.logger.Debug("no route for event type", logging.EventType(inner.Type))
		metrics.EnqueuesTotal.WithLabelValues("events", metrics.OutcomeSkipped).Inc()
		return
	}

	eventID := env.EventID
	if eventID == "" {
		eventID = inner.Ts
	}
	if eventID == "" {
		// No stable upstream ID: a retried delivery will synthesize a
		// different key and bypass deduplication.
		eventID = fmt.Sprintf("synthetic-%d", time.Now().UnixNano())
		metrics.SynthesizedEventIDs.Inc()
		d.logger.Warn("no stable event ID, synthesized one", logging.EventType(inner.Type), logging.EventID(eventID))
	}

	d.enqueue("events", route, slack.EventKey(eventID), map[string]any{
		"event_type": inner.Type,
		"event_id":   eventID,
		"user":       inner.User,
		"channel":    inner.Channel,
		"text":       inner.Text,
		"ts":         inner.Ts,
		"thread_ts":  inner.ThreadTs,
		"team_id":    env.TeamID,
	})
}

// DispatchCommand processes a slash command. Commands without a trigger ID
// cannot be safely deduplicated and are skipped.
func (d *Dispatcher) DispatchCommand(cmd slack.Command) {
	route, ok := routes.ResolveCommand(cmd.Command)
	if !ok {
		d.logger.Debug("no route for command", logging.Command(cmd.Command))
		metrics.EnqueuesTotal.WithLabelValues("commands", metrics.OutcomeSkipped).Inc()
		return
	}

	if cmd.TriggerID == "" {
		d.logger.Warn("command missing trigger_id, skipping enqueue", logging.Command(cmd.Command))
		metrics.EnqueuesTotal.WithLabelValues("commands", metrics.OutcomeSkipped).Inc()
		return
	}

	d.enqueue("commands", route, slack.CommandKey(cmd.Command, cmd.TriggerID), map[string]any{
		"command":      cmd.Command,
		"text":         cmd.Text,
		"trigger_id":   cmd.TriggerID,
		"user_id":      cmd.UserID,
		"user_name":    cmd.UserName,
		"channel_id":   cmd.ChannelID,
		"team_id":      cmd.TeamID,
		"response_url": cmd.ResponseURL,
	})
}

// DispatchInteraction processes an interactive payload. Interactions route
// as a single job type; the trigger ID alone keys deduplication.
func (d *Dispatcher) DispatchInteraction(in *slack.Interaction) {
	if in.TriggerID == "" {
		d.logger.Warn("interaction missing trigger_id, skipping enqueue")
		metrics.EnqueuesTotal.WithLabelValues("interactive", metrics.OutcomeSkipped).Inc()
		return
	}

	d.enqueue("interactive", routes.Interaction, slack.InteractionKey(in.TriggerID), map[string]any{
		"interaction_type": in.Type,
		"trigger_id":       in.TriggerID,
		"callback_id":      in.CallbackID,
		"user_id":          in.User.ID,
		"channel_id":       in.Channel.ID,
		"team_id":          in.Team.ID,
		"response_url":     in.ResponseURL,
	})
}

func (d *Dispatcher) enqueue(endpoint string, route routes.Route, key string, input map[string]any) {
	start := time.Now()

	// Detached from the request context: the response is already on the
	// wire and must not be tied to this call's lifetime.
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	result, err := d.enqueuer.Enqueue(ctx, taskbus.EnqueueRequest{
		JobType:        route.JobType,
		Agent:          route.Agent,
		IdempotencyKey: key,
		Input:          input,
	})
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EnqueuesTotal.WithLabelValues(endpoint, metrics.OutcomeError).Inc()
		d.logger.Error("enqueue failed",
			logging.Endpoint(endpoint),
			logging.IdempotencyKey(key),
			logging.Error(err),
		)
		return
	}

	outcome := metrics.OutcomeCreated
	if result.AlreadyExisted {
		outcome = metrics.OutcomeDuplicate
	}
	metrics.EnqueuesTotal.WithLabelValues(endpoint, outcome).Inc()

	d.logger.Info("run enqueued",
		logging.Endpoint(endpoint),
		logging.RunID(result.RunID),
		logging.IdempotencyKey(key),
		"already_existed", result.AlreadyExisted,
	)
}
