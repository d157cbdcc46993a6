// Package session holds the state of one person filling the lead form: the
// current step, answers, interaction and error state, attribution and the
// autosaved snapshot.
//
// A Session is safe for concurrent use. Every mutation schedules a debounced
// snapshot write; Teardown reports an abandoned form through a Beacon.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-leadform/components/localities"
	"github.com/goliatone/go-leadform/pkg/form"
	"github.com/goliatone/go-leadform/pkg/persist"
	"github.com/goliatone/go-leadform/pkg/validation"
	"github.com/goliatone/go-leadform/pkg/visibility"
	"github.com/goliatone/go-leadform/pkg/visibility/expr"
)

// Direction hints which way the host should animate a step change.
type Direction string

const (
	DirectionNone     Direction = ""
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Localities resolves and corrects commune names. *localities.Index
// satisfies it.
type Localities interface {
	validation.Localities
	Autocorrect(input string) localities.Correction
	ResolveRegion(name string) (string, bool)
}

// Beacon delivers an abandonment record without waiting for a result.
type Beacon interface {
	Send(fields map[string]string)
}

// BeaconFunc adapts a function to Beacon.
type BeaconFunc func(fields map[string]string)

func (fn BeaconFunc) Send(fields map[string]string) { fn(fields) }

// Observer receives lifecycle events. Implementations must not call back into
// the session.
type Observer interface {
	StepChanged(from, to int)
	SnapshotSaved()
	SnapshotRestored()
	Abandoned()
}

type nopObserver struct{}

func (nopObserver) StepChanged(int, int) {}
func (nopObserver) SnapshotSaved()       {}
func (nopObserver) SnapshotRestored()    {}
func (nopObserver) Abandoned()           {}

// Session is one form-filling run.
type Session struct {
	id        string
	def       *form.Definition
	validator *validation.Validator
	evaluator visibility.Evaluator
	places    Localities
	store     persist.Store
	key       string
	saver     *persist.Debouncer
	saveLimit time.Duration
	beacon    Beacon
	observer  Observer
	logger    *slog.Logger
	params    StartParams

	mu            sync.Mutex
	values        map[string]string
	interacted    map[string]bool
	errors        map[string]string
	completed     []bool
	current       int
	direction     Direction
	focus         string
	attribution   Attribution
	attachment    *form.Attachment
	recovered     bool
	submitting    bool
	submitEnabled bool
	pendingAges   int
	notice        string
	closed        bool
}

// New returns a session at step 0 for def.
func New(def *form.Definition, opts ...Option) *Session {
	o := newOptions(opts...)
	s := &Session{
		id:        o.ID,
		def:       def,
		validator: o.Validator,
		evaluator: o.Evaluator,
		places:    o.Localities,
		store:     o.Store,
		key:       o.Key,
		saver:     persist.NewDebouncer(o.Debounce, o.Scheduler),
		saveLimit: o.SaveTimeout,
		beacon:    o.Beacon,
		observer:  o.Observer,
		logger:    o.Logger,
		params:    o.Params,
	}
	s.attribution = Attribution{URLSource: o.Params.Source, Campaign: o.Params.Campaign}
	if s.validator == nil {
		var vopts []validation.Option
		if s.places != nil {
			vopts = append(vopts, validation.WithLocalities(s.places))
		}
		s.validator = validation.New(vopts...)
	}
	if s.evaluator == nil {
		s.evaluator = expr.New()
	}
	s.resetLocked()
	return s
}

// ID returns the session identifier, empty for anonymous sessions.
func (s *Session) ID() string { return s.id }

// Definition returns the form the session fills.
func (s *Session) Definition() *form.Definition { return s.def }

// Key returns the snapshot storage key.
func (s *Session) Key() string { return s.key }

func (s *Session) resetLocked() {
	s.values = map[string]string{}
	s.interacted = map[string]bool{}
	s.errors = map[string]string{}
	s.completed = make([]bool, s.def.StepCount())
	s.current = 0
	s.direction = DirectionNone
	s.focus = ""
	s.attachment = nil
	s.recovered = false
	s.submitting = false
	s.submitEnabled = true
	s.pendingAges = 0
	s.notice = ""
	if s.params.Sheet != "" {
		for _, f := range s.def.FieldsWithRole(form.RoleRouting) {
			s.values[f.Name] = s.params.Sheet
		}
	}
}

// Value returns the current answer for name.
func (s *Session) Value(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valueLocked(name)
}

func (s *Session) valueLocked(name string) string {
	if f, ok := s.def.Field(name); ok && f.Kind == form.KindAttachment {
		if s.attachment != nil {
			return s.attachment.Name
		}
		return ""
	}
	return s.values[name]
}

// CurrentStep returns the index of the step being shown.
func (s *Session) CurrentStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Completed reports whether step i has been passed with valid answers.
func (s *Session) Completed(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return i >= 0 && i < len(s.completed) && s.completed[i]
}

// Recovered reports whether the session started from a stored snapshot.
func (s *Session) Recovered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recovered
}

// Error returns the message shown next to name, if any.
func (s *Session) Error(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors[name]
}

// Focus returns the field the host should focus, if any.
func (s *Session) Focus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

// TakeNotice returns the pending informational notice and clears it.
func (s *Session) TakeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notice
	s.notice = ""
	return n
}

// Progress returns how far through the form the current step is, 0 to 100.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Session) progressLocked() float64 {
	last := s.def.LastStep()
	if last <= 0 {
		return 100
	}
	return float64(s.current) / float64(last) * 100
}

// Answers returns every non-attachment answer keyed by field name. Fields in
// hidden sections are left out.
func (s *Session) Answers() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state()
	out := make(map[string]string, len(s.values))
	for _, f := range s.def.Fields() {
		if f.Kind == form.KindAttachment {
			continue
		}
		if f.Section != "" && !st.SectionVisible(f.Section) {
			continue
		}
		out[f.Name] = s.values[f.Name]
	}
	return out
}

// state adapts the locked session to validation.State.
func (s *Session) state() lockedState { return lockedState{s: s} }

type lockedState struct{ s *Session }

func (l lockedState) Value(name string) string { return l.s.valueLocked(name) }

func (l lockedState) SectionVisible(id string) bool {
	sec, ok := l.s.def.Section(id)
	if !ok || sec.VisibleWhen == "" {
		return true
	}
	visible, err := l.s.evaluator.Eval(id, sec.VisibleWhen, visibility.Map(l.s.values))
	if err != nil {
		l.s.logger.Warn("session: section rule failed", "section", id, "error", err)
		return true
	}
	return visible
}
