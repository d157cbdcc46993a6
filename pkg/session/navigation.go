package session

import (
	"fmt"

	"github.com/goliatone/go-leadform/pkg/form"
)

// Advance completes the current step and moves forward when its required
// answers are valid. On failure the step's required fields show their
// messages and the first failing one takes focus.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	step, ok := s.def.Step(s.current)
	if !ok {
		return ErrStepOutOfRange
	}

	firstInvalid := ""
	awaitingAges := false
	for _, f := range step.Fields {
		if f.Role == form.RoleDependentsCount && s.pendingAges > 0 {
			awaitingAges = true
		}
		if !f.Required {
			continue
		}
		s.interacted[f.Name] = true
		if !s.checkLocked(f) && firstInvalid == "" {
			firstInvalid = f.Name
		}
	}
	if firstInvalid != "" {
		s.focus = firstInvalid
		return ErrStepInvalid
	}
	if awaitingAges {
		return ErrDependentAgesPending
	}

	s.completed[s.current] = true
	s.focus = ""
	if s.current < s.def.LastStep() {
		s.moveLocked(s.current+1, DirectionForward)
	}
	s.scheduleSaveLocked()
	return nil
}

// Retreat moves to the previous step.
func (s *Session) Retreat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == 0 {
		return ErrFirstStep
	}
	s.focus = ""
	s.moveLocked(s.current-1, DirectionBackward)
	s.scheduleSaveLocked()
	return nil
}

// JumpTo moves to a completed step.
func (s *Session) JumpTo(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.completed) {
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, i)
	}
	if !s.completed[i] {
		return fmt.Errorf("%w: %d", ErrStepNotCompleted, i)
	}
	dir := DirectionForward
	if i < s.current {
		dir = DirectionBackward
	}
	s.focus = ""
	s.moveLocked(i, dir)
	s.scheduleSaveLocked()
	return nil
}

// Reset clears every answer and flag and returns to the first step. The
// routing field keeps its startup value.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.current
	s.resetLocked()
	if from != 0 {
		s.observer.StepChanged(from, 0)
	}
	s.scheduleSaveLocked()
}

func (s *Session) moveLocked(to int, dir Direction) {
	from := s.current
	s.current = to
	s.direction = dir
	if from != to {
		s.observer.StepChanged(from, to)
	}
}

// IsStepValid reports whether every required field of step i passes. It
// never changes what the user sees.
func (s *Session) IsStepValid(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validator.StepValid(s.def, i, s.state())
}

// IsFormValid checks every required field and shows their messages. On
// failure the session moves to the first step with a failing field and
// focuses it.
func (s *Session) IsFormValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := s.validator.Validate(s.def, s.state())
	for name, res := range report.Results {
		s.interacted[name] = true
		if res.Valid {
			delete(s.errors, name)
		} else {
			s.errors[name] = res.Message
		}
	}
	if report.Valid {
		return true
	}
	s.focus = report.FirstInvalidField
	if to := report.FirstInvalidStep; to != s.current {
		dir := DirectionForward
		if to < s.current {
			dir = DirectionBackward
		}
		s.moveLocked(to, dir)
	}
	return false
}
