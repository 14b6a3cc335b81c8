package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inbound request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slack_agent_requests_total",
			Help: "Total number of inbound Slack requests",
		},
		[]string{"endpoint", "status"},
	)

	VerificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slack_agent_verification_failures_total",
			Help: "Total number of signature verification failures",
		},
		[]string{"endpoint", "reason"},
	)

	// Enqueue metrics
	EnqueuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slack_agent_enqueues_total",
			Help: "Total number of run enqueue attempts",
		},
		[]string{"endpoint", "outcome"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slack_agent_dispatch_duration_seconds",
			Help:    "Duration of post-ack dispatch (route, key, enqueue) in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SynthesizedEventIDs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slack_agent_synthesized_event_ids_total",
			Help: "Events enqueued with a synthesized ID because no stable upstream ID was present",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slack_agent_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"endpoint"},
	)
)

// Enqueue outcome label values.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
)
