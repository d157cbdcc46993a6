package localities

import "net/http"

// GuardFunc runs before every lookup. A non-nil error rejects the request;
// errors implementing HTTPError choose the status, anything else is a 403.
type GuardFunc func(r *http.Request) error

// Options configures how the component is exposed over HTTP.
type Options struct {
	RoutePath    string
	SearchParam  string
	LimitParam   string
	DefaultLimit int
	MaxLimit     int
	Guard        GuardFunc

	// Index replaces the embedded commune table.
	Index *Index
}

type OptionFn func(*Options)

const (
	defaultRoutePath = "/api/localities"
	defaultMaxLimit  = 50
)

func DefaultOptions() Options {
	return Options{
		RoutePath:    defaultRoutePath,
		SearchParam:  "q",
		LimitParam:   "limit",
		DefaultLimit: DefaultSuggestionLimit,
		MaxLimit:     defaultMaxLimit,
	}
}

// NewOptions applies fns over the defaults. Blank or non-positive settings
// fall back to their default.
func NewOptions(fns ...OptionFn) Options {
	o := DefaultOptions()
	for _, fn := range fns {
		if fn != nil {
			fn(&o)
		}
	}

	d := DefaultOptions()
	if o.RoutePath == "" {
		o.RoutePath = d.RoutePath
	}
	if o.SearchParam == "" {
		o.SearchParam = d.SearchParam
	}
	if o.LimitParam == "" {
		o.LimitParam = d.LimitParam
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = d.DefaultLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = d.MaxLimit
	}
	return o
}

func WithRoutePath(path string) OptionFn { return func(o *Options) { o.RoutePath = path } }

func WithSearchParam(name string) OptionFn { return func(o *Options) { o.SearchParam = name } }

func WithLimitParam(name string) OptionFn { return func(o *Options) { o.LimitParam = name } }

func WithDefaultLimit(n int) OptionFn { return func(o *Options) { o.DefaultLimit = n } }

func WithMaxLimit(n int) OptionFn { return func(o *Options) { o.MaxLimit = n } }

func WithGuard(guard GuardFunc) OptionFn { return func(o *Options) { o.Guard = guard } }

// WithIndex serves lookups from idx instead of the embedded table.
func WithIndex(idx *Index) OptionFn { return func(o *Options) { o.Index = idx } }

// WithEntries is shorthand for WithIndex(NewIndex(entries)).
func WithEntries(entries []Entry) OptionFn { return WithIndex(NewIndex(entries)) }

// limit turns the requested count into the number of results to return.
// Negative requests return nothing; zero uses DefaultLimit.
func (o Options) limit(requested int) int {
	switch {
	case requested < 0:
		return 0
	case requested == 0:
		requested = o.DefaultLimit
	}
	return min(requested, o.MaxLimit)
}
