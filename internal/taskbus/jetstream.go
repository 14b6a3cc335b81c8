package taskbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	runStreamName  = "RUNS"
	runSubject     = "runs.enqueue"
	dedupeWindow   = 10 * time.Minute
	runStreamMaxGB = 1024 * 1024 * 1024
)

// JetStreamClient publishes runs onto a JetStream work queue. Deduplication
// rides on JetStream's message-ID window: the idempotency key is the
// Nats-Msg-Id, and a duplicate publish inside the window acks with the
// original sequence instead of storing a second message.
type JetStreamClient struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewJetStreamClient connects to NATS and ensures the runs stream exists.
func NewJetStreamClient(ctx context.Context, url string) (*JetStreamClient, error) {
	conn, err := nats.Connect(url,
		nats.Name("slack-agent"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       runStreamName,
		Subjects:   []string{runSubject},
		Retention:  jetstream.WorkQueuePolicy,
		Storage:    jetstream.FileStorage,
		MaxBytes:   runStreamMaxGB,
		Duplicates: dedupeWindow,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", runStreamName, err)
	}

	return &JetStreamClient{conn: conn, js: js}, nil
}

// Enqueue publishes the run with the idempotency key as its message ID.
// The publish ack's Duplicate flag maps onto AlreadyExisted; the run ID is
// the stream position the message (or its original) landed at.
func (c *JetStreamClient) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("marshal request: %w", err)
	}

	ack, err := c.js.Publish(ctx, runSubject, data, jetstream.WithMsgID(req.IdempotencyKey))
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("failed to publish run: %w", err)
	}

	return EnqueueResult{
		RunID:          fmt.Sprintf("%s-%d", ack.Stream, ack.Sequence),
		AlreadyExisted: ack.Duplicate,
	}, nil
}

// Close drains the NATS connection.
func (c *JetStreamClient) Close() error {
	return c.conn.Drain()
}
