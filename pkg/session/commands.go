package session

import (
	"context"
	"fmt"
)

// Intent names a user action a host forwards to the session.
type Intent string

const (
	IntentInput         Intent = "input"
	IntentBlur          Intent = "blur"
	IntentAdvance       Intent = "advance"
	IntentRetreat       Intent = "retreat"
	IntentJump          Intent = "jump"
	IntentReset         Intent = "reset"
	IntentCTA           Intent = "cta"
	IntentDependentAges Intent = "dependent-ages"
)

// Command is one user action. Field and Value carry input and blur targets,
// Step the jump target, Values the dependent ages and Value the CTA id.
type Command struct {
	Intent Intent   `json:"intent"`
	Field  string   `json:"field,omitempty"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
	Step   int      `json:"step,omitempty"`
}

type handler func(s *Session, ctx context.Context, cmd Command) error

var handlers = map[Intent]handler{
	IntentInput: func(s *Session, _ context.Context, cmd Command) error {
		return s.SetValue(cmd.Field, cmd.Value)
	},
	IntentBlur: func(s *Session, _ context.Context, cmd Command) error {
		return s.Blur(cmd.Field)
	},
	IntentAdvance: func(s *Session, _ context.Context, _ Command) error {
		return s.Advance()
	},
	IntentRetreat: func(s *Session, _ context.Context, _ Command) error {
		return s.Retreat()
	},
	IntentJump: func(s *Session, _ context.Context, cmd Command) error {
		return s.JumpTo(cmd.Step)
	},
	IntentReset: func(s *Session, _ context.Context, _ Command) error {
		s.Reset()
		return nil
	},
	IntentCTA: func(s *Session, _ context.Context, cmd Command) error {
		s.ClickCTA(cmd.Value)
		return nil
	},
	IntentDependentAges: func(s *Session, _ context.Context, cmd Command) error {
		return s.SetDependentAges(cmd.Values)
	},
}

// Intents lists the intents Dispatch accepts.
func Intents() []Intent {
	return []Intent{
		IntentInput, IntentBlur, IntentAdvance, IntentRetreat,
		IntentJump, IntentReset, IntentCTA, IntentDependentAges,
	}
}

// Dispatch routes cmd to its handler and returns the resulting view. The
// view is returned even when the handler fails, so hosts can render messages.
func (s *Session) Dispatch(ctx context.Context, cmd Command) (View, error) {
	h, ok := handlers[cmd.Intent]
	if !ok {
		return s.View(), fmt.Errorf("%w: %q", ErrUnknownIntent, cmd.Intent)
	}
	if err := ctx.Err(); err != nil {
		return s.View(), err
	}
	err := h(s, ctx, cmd)
	v := s.View()
	v.Notice = s.TakeNotice()
	return v, err
}

// View is a render-ready copy of the session state.
type View struct {
	ID            string            `json:"id,omitempty"`
	CurrentStep   int               `json:"currentStep"`
	StepCount     int               `json:"stepCount"`
	StepTitle     string            `json:"stepTitle,omitempty"`
	Completed     []bool            `json:"completed"`
	Progress      float64           `json:"progress"`
	Direction     Direction         `json:"direction,omitempty"`
	Focus         string            `json:"focus,omitempty"`
	Values        map[string]string `json:"values"`
	Errors        map[string]string `json:"errors,omitempty"`
	Sections      map[string]bool   `json:"sections,omitempty"`
	CanAdvance    bool              `json:"canAdvance"`
	PendingAges   int               `json:"pendingAges,omitempty"`
	HasAttachment bool              `json:"hasAttachment"`
	Recovered     bool              `json:"recovered"`
	SubmitEnabled bool              `json:"submitEnabled"`
	Source        string            `json:"source"`
	Campaign      string            `json:"campaign"`
	Notice        string            `json:"notice,omitempty"`
}

// View snapshots the session for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state()
	v := View{
		ID:            s.id,
		CurrentStep:   s.current,
		StepCount:     s.def.StepCount(),
		Completed:     append([]bool(nil), s.completed...),
		Progress:      s.progressLocked(),
		Direction:     s.direction,
		Focus:         s.focus,
		Values:        make(map[string]string, len(s.values)),
		CanAdvance:    s.validator.StepValid(s.def, s.current, st),
		PendingAges:   s.pendingAges,
		HasAttachment: s.attachment != nil,
		Recovered:     s.recovered,
		SubmitEnabled: s.submitEnabled,
		Source:        s.attribution.Source(),
		Campaign:      s.attribution.CampaignName(),
	}
	if step, ok := s.def.Step(s.current); ok {
		v.StepTitle = step.Title
	}
	for k, val := range s.values {
		v.Values[k] = val
	}
	if len(s.errors) > 0 {
		v.Errors = make(map[string]string, len(s.errors))
		for k, msg := range s.errors {
			v.Errors[k] = msg
		}
	}
	if len(s.def.Sections) > 0 {
		v.Sections = make(map[string]bool, len(s.def.Sections))
		for _, sec := range s.def.Sections {
			v.Sections[sec.ID] = st.SectionVisible(sec.ID)
		}
	}
	return v
}
