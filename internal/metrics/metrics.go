// Package metrics provides Prometheus metrics for the marketplace backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "campusearn"

// ─── Tasks ──────────────────────────────────────────────────────────────────

// TasksCreated tracks tasks posted by providers.
var TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "tasks_created_total",
	Help:      "Total tasks created.",
})

// TaskTransitions tracks lifecycle transitions by target status.
var TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "task_transitions_total",
	Help:      "Total task state transitions by resulting status.",
}, []string{"status"})

// TaskConflicts tracks transitions rejected because the task had moved on.
var TaskConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "task_conflicts_total",
	Help:      "Total task actions rejected with a state conflict.",
}, []string{"action"})

// ─── Money ──────────────────────────────────────────────────────────────────

// AmountMoved tracks money moved by the ledger, by transaction type.
var AmountMoved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "ledger_amount_total",
	Help:      "Total amount recorded in the transaction log by type.",
}, []string{"type"})

// CommissionEarned tracks the platform's share of completed tasks.
var CommissionEarned = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "commission_earned_total",
	Help:      "Total platform commission credited.",
})

// WithdrawalsProcessed tracks admin withdrawal decisions.
var WithdrawalsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "withdrawals_processed_total",
	Help:      "Total withdrawal requests processed by outcome.",
}, []string{"status"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests tracks served requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "http_requests_total",
	Help:      "Total HTTP requests.",
}, []string{"method", "route", "code"})

// HTTPLatency tracks request duration in seconds.
var HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// ─── Jobs ───────────────────────────────────────────────────────────────────

// TasksExpired tracks open tasks declined by the acceptance deadline job.
var TasksExpired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "tasks_expired_total",
	Help:      "Total tasks declined after their acceptance deadline.",
})
