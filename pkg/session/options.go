package session

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-leadform/pkg/persist"
	"github.com/goliatone/go-leadform/pkg/validation"
	"github.com/goliatone/go-leadform/pkg/visibility"
)

const (
	// DefaultSaveTimeout bounds a single snapshot write.
	DefaultSaveTimeout = 5 * time.Second

	// Startup query parameters.
	ParamSheet    = "hoja"
	ParamSource   = "fuente"
	ParamCampaign = "campana"
)

// StartParams carries the values a host reads from the landing URL.
type StartParams struct {
	Sheet    string `json:"hoja,omitempty"`
	Source   string `json:"fuente,omitempty"`
	Campaign string `json:"campana,omitempty"`
}

// ParamsFromQuery reads StartParams from URL query values.
func ParamsFromQuery(q url.Values) StartParams {
	return StartParams{
		Sheet:    strings.TrimSpace(q.Get(ParamSheet)),
		Source:   strings.TrimSpace(q.Get(ParamSource)),
		Campaign: strings.TrimSpace(q.Get(ParamCampaign)),
	}
}

// Options configures a Session.
type Options struct {
	ID          string
	Validator   *validation.Validator
	Evaluator   visibility.Evaluator
	Localities  Localities
	Store       persist.Store
	Key         string
	Scheduler   persist.Scheduler
	Debounce    time.Duration
	SaveTimeout time.Duration
	Beacon      Beacon
	Observer    Observer
	Logger      *slog.Logger
	Params      StartParams
}

// Option mutates Options.
type Option func(*Options)

func newOptions(opts ...Option) Options {
	o := Options{
		Key:         persist.DefaultKey,
		Debounce:    persist.DefaultDebounce,
		SaveTimeout: DefaultSaveTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Key == "" {
		o.Key = persist.DefaultKey
	}
	if o.Debounce <= 0 {
		o.Debounce = persist.DefaultDebounce
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = DefaultSaveTimeout
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

func WithID(id string) Option {
	return func(o *Options) { o.ID = strings.TrimSpace(id) }
}

// WithValidator replaces the field validator. The default validator uses the
// session's localities.
func WithValidator(v *validation.Validator) Option {
	return func(o *Options) { o.Validator = v }
}

func WithEvaluator(e visibility.Evaluator) Option {
	return func(o *Options) { o.Evaluator = e }
}

func WithLocalities(l Localities) Option {
	return func(o *Options) { o.Localities = l }
}

// WithStore enables autosave into store under key. An empty key uses
// persist.DefaultKey.
func WithStore(store persist.Store, key string) Option {
	return func(o *Options) {
		o.Store = store
		o.Key = strings.TrimSpace(key)
	}
}

func WithScheduler(s persist.Scheduler) Option {
	return func(o *Options) { o.Scheduler = s }
}

func WithDebounce(d time.Duration) Option {
	return func(o *Options) { o.Debounce = d }
}

func WithSaveTimeout(d time.Duration) Option {
	return func(o *Options) { o.SaveTimeout = d }
}

func WithBeacon(b Beacon) Option {
	return func(o *Options) { o.Beacon = b }
}

func WithObserver(obs Observer) Option {
	return func(o *Options) { o.Observer = obs }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithParams(p StartParams) Option {
	return func(o *Options) { o.Params = p }
}
