// Package tui walks a lead form session in the terminal.
//
// The Runner prompts for every visible field of the current step, feeds the
// answers to the session exactly like a browser host would (input, then
// blur) and advances when the step is valid.
package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goliatone/go-leadform/pkg/form"
	"github.com/goliatone/go-leadform/pkg/session"
	"github.com/goliatone/go-leadform/pkg/submission"
)

const (
	suggestionLimit     = 5
	maxSubmitAttempts   = 3
	skipAttachmentLabel = "¿Continuar sin adjuntar el certificado?"
)

// Runner drives a session from terminal prompts.
type Runner struct {
	driver    PromptDriver
	theme     Theme
	suggester Suggester
	readFile  func(string) ([]byte, error)
}

// New constructs a Runner with the survey driver unless one is provided.
func New(options ...Option) *Runner {
	r := &Runner{
		driver:   newSurveyDriver(),
		theme:    DefaultTheme,
		readFile: defaultReadFile,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Fill prompts step by step until the last step is completed.
func (r *Runner) Fill(ctx context.Context, s *session.Session) error {
	if ctx == nil {
		return errors.New("tui: context is required")
	}
	def := s.Definition()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		current := s.CurrentStep()
		step, ok := def.Step(current)
		if !ok {
			return fmt.Errorf("tui: unknown step %d", current)
		}
		r.say(ctx, r.theme.StepPrefix, fmt.Sprintf("Paso %d de %d: %s", current+1, def.StepCount(), step.Title))

		for _, f := range step.Fields {
			if !r.visible(s, f) {
				continue
			}
			if err := r.promptField(ctx, s, f); err != nil {
				return err
			}
		}

		err := s.Advance()
		switch {
		case err == nil:
		case errors.Is(err, session.ErrStepInvalid):
			r.reportErrors(ctx, s, step)
			continue
		case errors.Is(err, session.ErrDependentAgesPending):
			if err := r.promptAges(ctx, s); err != nil {
				return err
			}
			continue
		default:
			return err
		}
		if current == def.LastStep() {
			return nil
		}
	}
}

// Submit runs ctrl until the submission is handed off, prompting for an
// attachment or missing answers when the controller asks for them.
func (r *Runner) Submit(ctx context.Context, s *session.Session, ctrl *submission.Controller) (submission.Outcome, error) {
	confirmer := submission.ConfirmerFunc(func(ctx context.Context) (submission.Choice, error) {
		skip, err := r.driver.Confirm(ctx, ConfirmConfig{Message: skipAttachmentLabel})
		if err != nil {
			return submission.ChoiceAttach, err
		}
		if skip {
			return submission.ChoiceSkip, nil
		}
		return submission.ChoiceAttach, nil
	})

	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		out := ctrl.Submit(ctx, s, submission.SubmitOptions{Confirmer: confirmer})
		switch out.Aborted {
		case submission.AbortNone:
			if out.Notice != "" {
				r.say(ctx, r.theme.ErrorPrefix, out.Notice)
			}
			if out.Link.URL != "" {
				r.say(ctx, r.theme.InfoPrefix, "Envíanos tus datos por WhatsApp: "+out.Link.URL)
			}
			return out, nil
		case submission.AbortAwaitingAttachment:
			fields := s.Definition().FieldsOfKind(form.KindAttachment)
			if len(fields) == 0 {
				return out, fmt.Errorf("tui: %w", session.ErrNoAttachmentField)
			}
			if err := r.promptAttachment(ctx, s, fields[0], true); err != nil {
				return out, err
			}
		case submission.AbortInvalid:
			if err := r.Fill(ctx, s); err != nil {
				return out, err
			}
		default:
			return out, fmt.Errorf("tui: submission aborted: %s", out.Aborted)
		}
	}
	return submission.Outcome{}, ErrTooManyAttempts
}

func (r *Runner) visible(s *session.Session, f form.Field) bool {
	if f.Kind == form.KindHidden {
		return false
	}
	if f.Section == "" {
		return true
	}
	return s.View().Sections[f.Section]
}

func (r *Runner) promptField(ctx context.Context, s *session.Session, f form.Field) error {
	switch f.Kind {
	case form.KindAttachment:
		return r.promptAttachment(ctx, s, f, false)
	case form.KindSelect, form.KindRadio:
		return r.promptChoice(ctx, s, f)
	default:
		return r.promptText(ctx, s, f)
	}
}

func (r *Runner) promptChoice(ctx context.Context, s *session.Session, f form.Field) error {
	options := f.Options
	def := indexOf(options, s.Value(f.Name))
	if !f.Required {
		options = append([]string{"(omitir)"}, f.Options...)
		def++
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: label(f), Options: options, DefaultIndex: def})
	if err != nil {
		return err
	}
	value := ""
	if idx >= 0 && idx < len(options) {
		value = options[idx]
	}
	if !f.Required && idx == 0 {
		value = ""
	}
	if err := r.commit(ctx, s, f, value); err != nil {
		return err
	}
	if s.PendingAges() > 0 && f.Role == form.RoleDependentsCount {
		return r.promptAges(ctx, s)
	}
	return nil
}

func (r *Runner) promptText(ctx context.Context, s *session.Session, f form.Field) error {
	for {
		cfg := InputConfig{Message: label(f), Default: s.Value(f.Name)}
		if f.Kind == form.KindLocality && r.suggester != nil {
			cfg.Complete = r.completions
		}
		value, err := r.driver.Input(ctx, cfg)
		if err != nil {
			return err
		}
		if err := r.commit(ctx, s, f, value); err != nil {
			return err
		}
		msg := s.Error(f.Name)
		if msg == "" {
			return nil
		}
		r.say(ctx, r.theme.ErrorPrefix, msg)
		if f.Kind == form.KindLocality {
			r.suggest(ctx, value)
		}
	}
}

// commit forwards value as an input followed by a blur.
func (r *Runner) commit(ctx context.Context, s *session.Session, f form.Field, value string) error {
	if err := s.SetValue(f.Name, value); err != nil {
		return err
	}
	if err := s.Blur(f.Name); err != nil {
		return err
	}
	if notice := s.TakeNotice(); notice != "" {
		r.say(ctx, r.theme.InfoPrefix, notice)
	}
	return nil
}

func (r *Runner) suggest(ctx context.Context, prefix string) {
	if names := r.completions(prefix); len(names) > 0 {
		r.say(ctx, r.theme.InfoPrefix, "Quizás quisiste decir: "+strings.Join(names, ", "))
	}
}

func (r *Runner) completions(prefix string) []string {
	if r.suggester == nil {
		return nil
	}
	entries := r.suggester.Suggestions(prefix, suggestionLimit)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func indexOf(options []string, value string) int {
	for i, o := range options {
		if o == value {
			return i
		}
	}
	return -1
}

func (r *Runner) promptAges(ctx context.Context, s *session.Session) error {
	for {
		n := s.PendingAges()
		if n == 0 {
			return nil
		}
		ages := make([]string, n)
		for i := range ages {
			v, err := r.driver.Input(ctx, InputConfig{Message: "Edad carga " + strconv.Itoa(i+1)})
			if err != nil {
				return err
			}
			ages[i] = v
		}
		err := s.SetDependentAges(ages)
		if err == nil {
			return nil
		}
		if !errors.Is(err, session.ErrDependentAges) {
			return err
		}
		r.say(ctx, r.theme.ErrorPrefix, "Ingresa una edad entre 0 y 120 para cada carga.")
	}
}

// promptAttachment asks for a PDF path. An empty answer skips unless
// required is set.
func (r *Runner) promptAttachment(ctx context.Context, s *session.Session, f form.Field, required bool) error {
	for {
		path, err := r.driver.Input(ctx, InputConfig{Message: label(f) + " (ruta al PDF)"})
		if err != nil {
			return err
		}
		path = strings.TrimSpace(path)
		if path == "" && !required {
			return nil
		}
		if path == "" {
			continue
		}
		data, err := r.readFile(path)
		if err != nil {
			r.say(ctx, r.theme.ErrorPrefix, fmt.Sprintf("No se pudo leer %s: %v", path, err))
			continue
		}
		att := form.Attachment{
			Name:      filepath.Base(path),
			MediaType: http.DetectContentType(data),
			Size:      int64(len(data)),
			Data:      data,
		}
		if err := s.Attach(att); err != nil {
			r.say(ctx, r.theme.ErrorPrefix, form.AttachmentMessage(err))
			continue
		}
		return nil
	}
}

func (r *Runner) reportErrors(ctx context.Context, s *session.Session, step form.Step) {
	for _, f := range step.Fields {
		if msg := s.Error(f.Name); msg != "" {
			r.say(ctx, r.theme.ErrorPrefix, fmt.Sprintf("%s: %s", label(f), msg))
		}
	}
}

func (r *Runner) say(ctx context.Context, prefix, msg string) {
	if prefix != "" {
		msg = prefix + " " + msg
	}
	_ = r.driver.Info(ctx, msg)
}

func label(f form.Field) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}
