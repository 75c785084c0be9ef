package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetricsRegistered verifies every collector is on the default registry
// under the repcircle namespace.
func TestMetricsRegistered(t *testing.T) {
	SessionsStarted.WithLabelValues("start").Inc()
	Errors.WithLabelValues("finish", "validation").Inc()
	ParticipantsReconciled.WithLabelValues("reconciled").Add(2)
	EventsPublished.WithLabelValues("session.started", "ok").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := map[string]bool{}
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "repcircle_") {
			got[f.GetName()] = true
		}
	}
	for _, name := range []string{
		"repcircle_sessions_started_total",
		"repcircle_sessions_errors_total",
		"repcircle_reconcile_participants_total",
		"repcircle_events_published_total",
		"repcircle_sessions_active",
		"repcircle_sets_recorded_total",
		"repcircle_sessions_finished_total",
		"repcircle_sessions_duration_seconds",
	} {
		if !got[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}

// TestCounterLabels verifies label values are tracked independently.
func TestCounterLabels(t *testing.T) {
	before := testutil.ToFloat64(ParticipantsReconciled.WithLabelValues("failed"))
	ParticipantsReconciled.WithLabelValues("failed").Inc()
	ParticipantsReconciled.WithLabelValues("skipped").Add(3)
	if got := testutil.ToFloat64(ParticipantsReconciled.WithLabelValues("failed")); got != before+1 {
		t.Errorf("failed = %v, want %v", got, before+1)
	}
}
