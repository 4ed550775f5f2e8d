// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// IssuesCreatedTotal tracks issues opened.
	IssuesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "issues_created_total",
			Help: "Total issues created",
		},
	)

	// IssuesResolvedTotal tracks issues resolved by mutual acceptance.
	IssuesResolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "issues_resolved_total",
			Help: "Total issues resolved",
		},
	)

	// MessagesTotal tracks messages persisted, by sender type.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"sender_type"},
	)

	// RedFlagsTotal tracks messages that halted an issue for safety.
	RedFlagsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "red_flags_total",
			Help: "Total red-flagged messages",
		},
	)

	// MediatorCyclesTotal tracks mediator cycle outcomes.
	MediatorCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediator_cycles_total",
			Help: "Total mediator cycles by outcome",
		},
		[]string{"outcome"},
	)

	// ProposalsTotal tracks proposals sent, by generation mode.
	ProposalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proposals_total",
			Help: "Total proposals sent to partners",
		},
		[]string{"mode"},
	)

	// VotesTotal tracks proposal votes, by decision.
	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_total",
			Help: "Total proposal votes recorded",
		},
		[]string{"decision"},
	)

	// NotificationsTotal tracks notifications persisted, by type.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total notifications created",
		},
		[]string{"type"},
	)

	// PushDeliveriesTotal tracks push delivery attempts, by status.
	PushDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Total push notification delivery attempts",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}
