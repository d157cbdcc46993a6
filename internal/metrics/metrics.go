package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-leadform/pkg/session"
	"github.com/goliatone/go-leadform/pkg/submission"
)

// Metrics records session and submission activity. A nil *Metrics is a
// valid no-op observer.
type Metrics struct {
	// Step transitions by direction
	StepTransitions *prometheus.CounterVec

	// Furthest step reached, labelled by target step
	StepReached *prometheus.CounterVec

	SnapshotsSaved    prometheus.Counter
	SnapshotsRestored prometheus.Counter
	Abandonments      prometheus.Counter

	// Submissions by result: delivered, failed, or the abort reason
	Submissions *prometheus.CounterVec

	ActiveSessions prometheus.Gauge
}

var (
	_ session.Observer    = (*Metrics)(nil)
	_ submission.Observer = (*Metrics)(nil)
)

// New registers the leadform metrics on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		StepTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadform_step_transitions_total",
			Help: "Step changes by direction",
		}, []string{"direction"}),

		StepReached: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadform_step_reached_total",
			Help: "Forward moves into each step",
		}, []string{"step"}),

		SnapshotsSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "leadform_snapshots_saved_total",
			Help: "Progress snapshots written",
		}),

		SnapshotsRestored: f.NewCounter(prometheus.CounterOpts{
			Name: "leadform_snapshots_restored_total",
			Help: "Sessions resumed from a saved snapshot",
		}),

		Abandonments: f.NewCounter(prometheus.CounterOpts{
			Name: "leadform_sessions_abandoned_total",
			Help: "Sessions torn down with saved progress",
		}),

		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadform_submissions_total",
			Help: "Submission attempts by result",
		}, []string{"result"}),

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "leadform_active_sessions",
			Help: "Sessions currently held by the server",
		}),
	}
}

func (m *Metrics) StepChanged(from, to int) {
	if m == nil {
		return
	}
	switch {
	case to > from:
		m.StepTransitions.WithLabelValues(string(session.DirectionForward)).Inc()
		m.StepReached.WithLabelValues(strconv.Itoa(to)).Inc()
	case to < from:
		m.StepTransitions.WithLabelValues(string(session.DirectionBackward)).Inc()
	default:
		m.StepTransitions.WithLabelValues("none").Inc()
	}
}

func (m *Metrics) SnapshotSaved() {
	if m != nil {
		m.SnapshotsSaved.Inc()
	}
}

func (m *Metrics) SnapshotRestored() {
	if m != nil {
		m.SnapshotsRestored.Inc()
	}
}

func (m *Metrics) Abandoned() {
	if m != nil {
		m.Abandonments.Inc()
	}
}

// Submitted counts an outcome under its result label.
func (m *Metrics) Submitted(out submission.Outcome) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(Result(out)).Inc()
}

// SessionOpened and SessionClosed track the registry size.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}

// Result is the label an outcome is counted under.
func Result(out submission.Outcome) string {
	switch {
	case out.Aborted != submission.AbortNone:
		return string(out.Aborted)
	case out.Delivered:
		return "delivered"
	default:
		return "failed"
	}
}
