// Package observability holds the Prometheus metrics for live sessions.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "repcircle",
		Subsystem: "sessions",
		Name:      "started_total",
		Help:      "Sessions entered InProgress, labeled by how (start, join, resume).",
	}, []string{"mode"})

	SessionsFinished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "repcircle",
		Subsystem: "sessions",
		Name:      "finished_total",
		Help:      "Sessions that reached Finished.",
	})

	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "repcircle",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Live sessions currently held in memory.",
	})

	SetsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "repcircle",
		Subsystem: "sets",
		Name:      "recorded_total",
		Help:      "Set completions persisted through the gateway.",
	})

	SessionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "repcircle",
		Subsystem: "sessions",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of finished sessions.",
		Buckets:   []float64{300, 600, 1200, 1800, 2700, 3600, 5400, 7200},
	})

	// Errors counts failed operations by class (validation, persistence).
	Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "repcircle",
		Subsystem: "sessions",
		Name:      "errors_total",
		Help:      "Failed session operations, labeled by operation and error class.",
	}, []string{"op", "class"})

	ParticipantsReconciled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "repcircle",
		Subsystem: "reconcile",
		Name:      "participants_total",
		Help:      "Participants processed by reconciliation, labeled by outcome.",
	}, []string{"outcome"})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "repcircle",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Session events handed to the publisher, labeled by type and result.",
	}, []string{"type", "result"})
)

func init() {
	prometheus.MustRegister(
		SessionsStarted,
		SessionsFinished,
		SessionsActive,
		SetsRecorded,
		SessionDuration,
		Errors,
		ParticipantsReconciled,
		EventsPublished,
	)
}
