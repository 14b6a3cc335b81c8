package taskbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresClient writes runs directly into the ops.runs ledger table for
// deployments that colocate the agent with the ledger database. The unique
// index on idempotency_key provides the deduplication guarantee: a duplicate
// insert resolves to the existing row.
type PostgresClient struct {
	pool *pgxpool.Pool
}

// NewPostgresClient opens a connection pool against the ledger database.
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool}, nil
}

// Enqueue inserts the run, or resolves to the run already holding the
// idempotency key. Two concurrent submissions of the same key both observe
// the same run ID, exactly one of them with AlreadyExisted false.
func (c *PostgresClient) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	inputJSON, err := json.Marshal(req.Input)
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("marshal input: %w", err)
	}

	insert := `
		INSERT INTO runs (id, job_type, agent, idempotency_key, input, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'queued', now())
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id
	`

	var runID string
	err = c.pool.QueryRow(ctx, insert,
		uuid.New().String(), req.JobType, req.Agent, req.IdempotencyKey, inputJSON,
	).Scan(&runID)
	if err == nil {
		return EnqueueResult{RunID: runID, AlreadyExisted: false}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return EnqueueResult{}, fmt.Errorf("failed to enqueue run: %w", err)
	}

	// Conflict: the key is already held. Read back the winning row.
	err = c.pool.QueryRow(ctx,
		`SELECT id FROM runs WHERE idempotency_key = $1`, req.IdempotencyKey,
	).Scan(&runID)
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("failed to resolve existing run: %w", err)
	}

	return EnqueueResult{RunID: runID, AlreadyExisted: true}, nil
}

// Close releases the connection pool.
func (c *PostgresClient) Close() error {
	c.pool.Close()
	return nil
}
