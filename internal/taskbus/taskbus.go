// Package taskbus submits runs to the ops ledger. The ledger enforces a
// uniqueness constraint on the idempotency key and is the system of record
// for deduplication; this package only builds requests and delegates.
package taskbus

import "context"

// EnqueueRequest describes one run to be recorded in the ledger.
type EnqueueRequest struct {
	JobType        string         `json:"job_type"`
	Agent          string         `json:"agent"`
	IdempotencyKey string         `json:"idempotency_key"`
	Input          map[string]any `json:"input"`
}

// EnqueueResult reports the run the ledger resolved the request to. When a
// duplicate idempotency key is submitted the ledger returns the existing
// run with AlreadyExisted set rather than erroring.
type EnqueueResult struct {
	RunID          string `json:"run_id"`
	AlreadyExisted bool   `json:"already_existed"`
}

// Client is a ledger backend. Enqueue must be idempotent keyed on
// EnqueueRequest.IdempotencyKey and safe to call concurrently with
// identical arguments.
type Client interface {
	Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error)
	Close() error
}

// Enqueuer is the surface the dispatch service depends on.
type Enqueuer interface {
	Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error)
}

// Bus is the adapter between verified Slack payloads and the ledger client.
// It stamps the input with its origin and propagates the ledger's result or
// failure unchanged; retry policy belongs to the caller or the client.
type Bus struct {
	client Client
}

// New constructs a Bus around an explicitly injected ledger client.
func New(client Client) *Bus {
	return &Bus{client: client}
}

// Enqueue merges the _source marker into the input and delegates.
func (b *Bus) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	input := make(map[string]any, len(req.Input)+1)
	for k, v := range req.Input {
		input[k] = v
	}
	input["_source"] = "slack"
	req.Input = input

	return b.client.Enqueue(ctx, req)
}
