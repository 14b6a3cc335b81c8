package logging

import "log/slog"

// Common field names for consistent logging across the agent.
const (
	FieldService        = "service"
	FieldEndpoint       = "endpoint"
	FieldEventID        = "event_id"
	FieldEventType      = "event_type"
	FieldCommand        = "command"
	FieldTriggerID      = "trigger_id"
	FieldRunID          = "run_id"
	FieldIdempotencyKey = "idempotency_key"
	FieldError          = "error"
	FieldStatus         = "status"
	FieldDuration       = "duration_ms"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Endpoint returns a slog attribute for the inbound endpoint name.
func Endpoint(name string) slog.Attr {
	return slog.String(FieldEndpoint, name)
}

// EventID returns a slog attribute for a Slack event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// EventType returns a slog attribute for a Slack event type.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// Command returns a slog attribute for a slash command.
func Command(cmd string) slog.Attr {
	return slog.String(FieldCommand, cmd)
}

// TriggerID returns a slog attribute for a Slack trigger ID.
func TriggerID(id string) slog.Attr {
	return slog.String(FieldTriggerID, id)
}

// RunID returns a slog attribute for a ledger run ID.
func RunID(id string) slog.Attr {
	return slog.String(FieldRunID, id)
}

// IdempotencyKey returns a slog attribute for an idempotency key.
func IdempotencyKey(key string) slog.Attr {
	return slog.String(FieldIdempotencyKey, key)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}
