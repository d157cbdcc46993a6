package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-leadform/pkg/submission"
)

func TestMetrics_SessionEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.StepChanged(0, 1)
	m.StepChanged(1, 2)
	m.StepChanged(2, 1)
	m.SnapshotSaved()
	m.SnapshotSaved()
	m.SnapshotRestored()
	m.Abandoned()

	if got := testutil.ToFloat64(m.StepTransitions.WithLabelValues("forward")); got != 2 {
		t.Fatalf("forward = %v", got)
	}
	if got := testutil.ToFloat64(m.StepTransitions.WithLabelValues("backward")); got != 1 {
		t.Fatalf("backward = %v", got)
	}
	if got := testutil.ToFloat64(m.StepReached.WithLabelValues("2")); got != 1 {
		t.Fatalf("reached step 2 = %v", got)
	}
	if got := testutil.ToFloat64(m.SnapshotsSaved); got != 2 {
		t.Fatalf("saved = %v", got)
	}
	if got := testutil.ToFloat64(m.SnapshotsRestored); got != 1 {
		t.Fatalf("restored = %v", got)
	}
	if got := testutil.ToFloat64(m.Abandonments); got != 1 {
		t.Fatalf("abandoned = %v", got)
	}
}

func TestMetrics_Submitted(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Submitted(submission.Outcome{Success: true, Delivered: true})
	m.Submitted(submission.Outcome{Success: true, Notice: submission.NoticeDeliveryFailed})
	m.Submitted(submission.Outcome{Aborted: submission.AbortInvalid})

	for result, want := range map[string]float64{"delivered": 1, "failed": 1, "invalid": 1, "in-flight": 0} {
		if got := testutil.ToFloat64(m.Submissions.WithLabelValues(result)); got != want {
			t.Fatalf("%s = %v, want %v", result, got, want)
		}
	}
}

func TestMetrics_ActiveSessions(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	if got := testutil.ToFloat64(m.ActiveSessions); got != 1 {
		t.Fatalf("active = %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.StepChanged(0, 1)
	m.SnapshotSaved()
	m.SnapshotRestored()
	m.Abandoned()
	m.Submitted(submission.Outcome{})
	m.SessionOpened()
	m.SessionClosed()
}
