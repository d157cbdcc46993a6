package localities

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// HTTPError lets guard errors pick the response status.
type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode())
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// Option is one autocomplete result as rendered to clients.
type Option struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Region string `json:"region"`
}

// Component answers autocomplete queries against a single resolved index.
// It is an http.Handler for GET and HEAD.
type Component struct {
	opts  Options
	index *Index
}

// New builds a component. Without WithIndex or WithEntries the embedded
// table is parsed once here.
func New(fns ...OptionFn) (*Component, error) {
	opts := NewOptions(fns...)
	idx := opts.Index
	if idx == nil {
		var err error
		if idx, err = DefaultIndex(); err != nil {
			return nil, fmt.Errorf("localities: load table: %w", err)
		}
	}
	return &Component{opts: opts, index: idx}, nil
}

func (c *Component) Options() Options { return c.opts }

func (c *Component) Index() *Index { return c.index }

// Search returns at most the clamped limit of options for query. It never
// returns nil.
func (c *Component) Search(query string, limit int) []Option {
	out := []Option{}
	n := c.opts.limit(limit)
	if n == 0 {
		return out
	}
	for _, e := range c.index.Suggestions(query, n) {
		out = append(out, Option{Value: e.Name, Label: e.Name, Region: e.Region})
	}
	return out
}

func (c *Component) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if c.opts.Guard != nil {
		if err := c.opts.Guard(r); err != nil {
			code := guardStatus(err)
			http.Error(w, http.StatusText(code), code)
			return
		}
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get(c.opts.LimitParam))
	results := c.Search(q.Get(c.opts.SearchParam), limit)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	_ = json.NewEncoder(w).Encode(struct {
		Data []Option `json:"data"`
	}{results})
}

func guardStatus(err error) int {
	var he HTTPError
	if errors.As(err, &he) && he.StatusCode() > 0 {
		return he.StatusCode()
	}
	return http.StatusForbidden
}
