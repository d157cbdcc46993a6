// Package validation checks form answers field by field, per step and for the
// whole form.
//
// Checks run in two modes. Silent checks only report validity and back the
// "can I continue" decisions. Interacted checks also carry the message to show
// next to the field.
package validation

import (
	"strings"

	"github.com/goliatone/go-leadform/pkg/form"
	"github.com/goliatone/go-leadform/pkg/rut"
)

// State exposes the answers and section visibility a check needs.
type State interface {
	Value(name string) string
	SectionVisible(id string) bool
}

// Localities resolves exact commune names.
type Localities interface {
	Contains(name string) bool
}

// Result is the outcome of checking one field. Message is empty in silent mode.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Report is the outcome of checking every required field of a form.
type Report struct {
	Valid             bool              `json:"valid"`
	FirstInvalidStep  int               `json:"firstInvalidStep"`
	FirstInvalidField string            `json:"firstInvalidField,omitempty"`
	Results           map[string]Result `json:"results"`
}

// Validator runs field checks. The zero value is not usable; use New.
type Validator struct {
	constraints map[form.Kind]Constraint
	localities  Localities
	email       func(string) bool
	identifier  func(string) bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithConstraint replaces the native constraint for kind. A nil constraint
// disables it.
func WithConstraint(kind form.Kind, c Constraint) Option {
	return func(v *Validator) {
		if c == nil {
			delete(v.constraints, kind)
			return
		}
		v.constraints[kind] = c
	}
}

// WithLocalities sets the commune lookup used by locality fields.
func WithLocalities(l Localities) Option {
	return func(v *Validator) { v.localities = l }
}

// WithEmailCheck overrides the email predicate.
func WithEmailCheck(fn func(string) bool) Option {
	return func(v *Validator) {
		if fn != nil {
			v.email = fn
		}
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{
		constraints: DefaultConstraints(),
		email:       ValidEmail,
		identifier:  rut.Valid,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// CheckField validates one field against state. The first failing rule wins.
func (v *Validator) CheckField(f form.Field, state State, interacted bool) Result {
	res := v.check(f, state)
	if !interacted {
		res.Message = ""
	}
	return res
}

func (v *Validator) check(f form.Field, state State) Result {
	pass := Result{Valid: true}
	if f.Section != "" && !state.SectionVisible(f.Section) {
		return pass
	}

	value := state.Value(f.Name)
	blank := strings.TrimSpace(value) == ""
	if !f.Required && blank {
		return pass
	}

	if f.Kind == form.KindRadio {
		if f.Required && !f.HasOption(value) {
			return Result{Message: MsgRequired}
		}
		return pass
	}
	if blank {
		return Result{Message: MsgRequired}
	}

	if c := v.constraints[f.Kind]; c != nil {
		if ok, msg := c(f, value); !ok {
			return Result{Message: msg}
		}
	}

	switch f.Kind {
	case form.KindIdentifier:
		if !v.identifier(value) {
			return Result{Message: MsgIdentifier}
		}
	case form.KindEmail:
		if !v.email(value) {
			return Result{Message: MsgEmail}
		}
	case form.KindLocality:
		if v.localities == nil || !v.localities.Contains(value) {
			return Result{Message: MsgLocality}
		}
	}
	return pass
}

// StepValid reports whether every required field of step passes the silent
// check. An unknown step is never valid.
func (v *Validator) StepValid(def *form.Definition, step int, state State) bool {
	s, ok := def.Step(step)
	if !ok {
		return false
	}
	for _, f := range s.Fields {
		if !f.Required {
			continue
		}
		if !v.CheckField(f, state, false).Valid {
			return false
		}
	}
	return true
}

// Validate runs interacted checks over the required fields of every step and
// records where the first failure is. FirstInvalidStep is -1 when valid.
func (v *Validator) Validate(def *form.Definition, state State) Report {
	report := Report{Valid: true, FirstInvalidStep: -1, Results: map[string]Result{}}
	if def == nil {
		return report
	}
	for _, step := range def.Steps {
		for _, f := range step.Fields {
			if !f.Required {
				continue
			}
			res := v.CheckField(f, state, true)
			report.Results[f.Name] = res
			if res.Valid {
				continue
			}
			if report.Valid {
				report.FirstInvalidStep = step.Index
				report.FirstInvalidField = f.Name
			}
			report.Valid = false
		}
	}
	return report
}
