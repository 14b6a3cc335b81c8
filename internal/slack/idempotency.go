package slack

import "strings"

// Idempotency keys are the sole deduplication axis for enqueued runs. Each
// Slack surface gets its own namespace so keys can never collide across
// surfaces, and the same logical delivery always derives the same key.

// EventKey derives the idempotency key for an Events API delivery.
func EventKey(eventID string) string {
	return "slack:event:" + eventID
}

// InteractionKey derives the idempotency key for an interactive payload.
// A trigger ID identifies exactly one user interaction, so the interaction
// type is deliberately not part of the key.
func InteractionKey(triggerID string) string {
	return "slack:interaction:" + triggerID
}

// CommandKey derives the idempotency key for a slash command invocation.
// The leading slash is stripped so "/run" and "run" produce the same key.
func CommandKey(command, triggerID string) string {
	return "slack:command:" + strings.TrimPrefix(command, "/") + ":" + triggerID
}
