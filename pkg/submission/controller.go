package submission

import (
	"context"
	"log/slog"
	"time"

	"github.com/goliatone/go-leadform/pkg/deeplink"
	"github.com/goliatone/go-leadform/pkg/form"
	"github.com/goliatone/go-leadform/pkg/session"
)

// NoticeDeliveryFailed is shown next to the success screen when the
// endpoint could not be reached.
const NoticeDeliveryFailed = "Hubo un error al enviar. Por favor, inténtelo de nuevo."

// Form is what the controller needs from a session. *session.Session
// satisfies it.
type Form interface {
	Definition() *form.Definition
	IsFormValid() bool
	Answers() map[string]string
	Attachment() *form.Attachment
	Attribution() session.Attribution
	Recovered() bool
	BeginSubmit() bool
	EndSubmit()
	ClearProgress(ctx context.Context) error
}

var _ Form = (*session.Session)(nil)

// Choice answers the missing-attachment prompt.
type Choice int

const (
	ChoiceAttach Choice = iota
	ChoiceSkip
)

// Confirmer asks the user whether to continue without an attachment.
type Confirmer interface {
	ConfirmMissingAttachment(ctx context.Context) (Choice, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context) (Choice, error)

func (fn ConfirmerFunc) ConfirmMissingAttachment(ctx context.Context) (Choice, error) {
	return fn(ctx)
}

// AbortReason explains why a submission did not start.
type AbortReason string

const (
	AbortNone               AbortReason = ""
	AbortInvalid            AbortReason = "invalid"
	AbortAwaitingAttachment AbortReason = "awaiting-attachment"
	AbortInFlight           AbortReason = "in-flight"
)

// Outcome is the result of Submit. Success is true whenever the payload was
// handed to the dispatcher, even if delivery failed.
type Outcome struct {
	Success   bool          `json:"success"`
	Aborted   AbortReason   `json:"aborted,omitempty"`
	Delivered bool          `json:"delivered"`
	Notice    string        `json:"notice,omitempty"`
	Link      deeplink.Link `json:"link"`
	Payload   Payload       `json:"-"`
}

// SubmitOptions carries per-request input.
type SubmitOptions struct {
	// SkipAttachment is the user's answer when they already declined to
	// attach a document.
	SkipAttachment bool
	Confirmer      Confirmer
	UserAgent      string
}

// Observer receives every outcome.
type Observer interface {
	Submitted(Outcome)
}

// Controller runs submissions.
type Controller struct {
	dispatcher Dispatcher
	links      *deeplink.Builder
	now        func() time.Time
	logger     *slog.Logger
	observer   Observer
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithObserver(o Observer) ControllerOption {
	return func(c *Controller) { c.observer = o }
}

func NewController(d Dispatcher, links *deeplink.Builder, opts ...ControllerOption) *Controller {
	c := &Controller{
		dispatcher: d,
		links:      links,
		now:        time.Now,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Submit runs one submission of f.
func (c *Controller) Submit(ctx context.Context, f Form, opts SubmitOptions) Outcome {
	out := c.submit(ctx, f, opts)
	if c.observer != nil {
		c.observer.Submitted(out)
	}
	return out
}

func (c *Controller) submit(ctx context.Context, f Form, opts SubmitOptions) Outcome {
	if !f.IsFormValid() {
		return Outcome{Aborted: AbortInvalid}
	}

	att := f.Attachment()
	if att.Empty() && !opts.SkipAttachment && !c.confirmSkip(ctx, opts.Confirmer) {
		return Outcome{Aborted: AbortAwaitingAttachment}
	}

	if !f.BeginSubmit() {
		return Outcome{Aborted: AbortInFlight}
	}
	defer f.EndSubmit()

	out := Outcome{Success: true}
	answers := f.Answers()
	if c.links != nil {
		link, err := c.links.Build(answers, !att.Empty(), opts.UserAgent)
		if err != nil {
			c.logger.Error("submission: build fallback link", "error", err)
		}
		out.Link = link
	}

	out.Payload = BuildPayload(f, c.now())

	if err := f.ClearProgress(ctx); err != nil {
		c.logger.Error("submission: clear saved progress", "error", err)
	}

	if c.dispatcher == nil {
		c.logger.Error("submission: deliver", "error", ErrEndpointNotConfigured)
		out.Notice = NoticeDeliveryFailed
		return out
	}
	if err := c.dispatcher.Dispatch(ctx, out.Payload); err != nil {
		c.logger.Error("submission: deliver", "error", err)
		out.Notice = NoticeDeliveryFailed
		return out
	}
	out.Delivered = true
	c.logger.Info("submission: delivered", "fields", len(out.Payload.Fields))
	return out
}

func (c *Controller) confirmSkip(ctx context.Context, confirmer Confirmer) bool {
	if confirmer == nil {
		return false
	}
	choice, err := confirmer.ConfirmMissingAttachment(ctx)
	if err != nil {
		c.logger.Warn("submission: attachment prompt", "error", err)
		return false
	}
	return choice == ChoiceSkip
}
