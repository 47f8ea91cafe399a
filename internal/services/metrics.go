package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// transitionsTotal counts committed lifecycle transitions.
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_transitions_total",
			Help: "Committed lifecycle transitions by subject, action, and actor role.",
		},
		[]string{"subject", "action", "role"},
	)

	// acceptConflictsTotal counts acceptances that lost the race for a request.
	acceptConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_accept_conflicts_total",
			Help: "Offer acceptances rejected because the request was already matched.",
		},
	)

	// unlockOutcomesTotal counts unlock transaction results.
	unlockOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_unlock_outcomes_total",
			Help: "Contact-unlock outcomes (initiated, confirmed, failed, provider_error, duplicate_confirm).",
		},
		[]string{"outcome"},
	)

	eventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_event_publish_failures_total",
			Help: "Lifecycle events that could not be published.",
		},
	)
)
