package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-leadform/internal/metrics"
	"github.com/goliatone/go-leadform/pkg/persist"
	"github.com/goliatone/go-leadform/pkg/session"
)

var (
	ErrInvalidSessionID = errors.New("httpapi: invalid session id")
	ErrSessionNotFound  = errors.New("httpapi: session not found")
)

// SessionFactory builds a session for id. The factory decides the store key,
// usually SessionKey(id).
type SessionFactory func(id string, params session.StartParams) *session.Session

// SessionKey namespaces the progress key per client.
func SessionKey(id string) string {
	return persist.DefaultKey + ":" + id
}

// Registry holds live sessions keyed by client id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  SessionFactory
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type entry struct {
	s    *session.Session
	seen time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func WithRegistryMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRegistry(factory SessionFactory, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: map[string]*entry{},
		factory:  factory,
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Open returns the live session for id, or builds one and restores its
// saved progress. An empty id starts a new client.
func (r *Registry) Open(ctx context.Context, id string, params session.StartParams) (*session.Session, error) {
	if id == "" {
		id = uuid.NewString()
	} else {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSessionID, err)
		}
		id = parsed.String()
	}

	r.mu.Lock()
	if e, ok := r.sessions[id]; ok {
		e.seen = r.now()
		r.mu.Unlock()
		return e.s, nil
	}
	r.mu.Unlock()

	s := r.factory(id, params)
	if err := s.Restore(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.seen = r.now()
		return e.s, nil
	}
	r.sessions[id] = &entry{s: s, seen: r.now()}
	r.metrics.SessionOpened()
	r.logger.Debug("httpapi: session opened", "id", id, "recovered", s.Recovered())
	return s, nil
}

// Get returns the live session for id and marks it as seen.
func (r *Registry) Get(id string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.seen = r.now()
	return e.s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close tears the session down, reporting saved progress as abandoned.
func (r *Registry) Close(ctx context.Context, id string) error {
	s := r.take(id, time.Time{})
	if s == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s.Teardown(ctx)
}

// Release forgets id after writing any pending autosave. Stored progress is
// kept so a later Open resumes it.
func (r *Registry) Release(id string) bool {
	s := r.take(id, time.Time{})
	if s == nil {
		return false
	}
	s.FlushProgress()
	return true
}

// take removes id from the registry. A non-zero idleBefore only removes the
// session when it was last seen before that instant.
func (r *Registry) take(id string, idleBefore time.Time) *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil
	}
	if !idleBefore.IsZero() && !e.seen.Before(idleBefore) {
		return nil
	}
	delete(r.sessions, id)
	r.metrics.SessionClosed()
	return e.s
}

// Sweep closes sessions idle for longer than idle and returns how many were
// closed.
func (r *Registry) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []string
	for id, e := range r.sessions {
		if e.seen.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	closed := 0
	for _, id := range stale {
		s := r.take(id, cutoff)
		if s == nil {
			continue
		}
		closed++
		if err := s.Teardown(ctx); err != nil {
			r.logger.Warn("httpapi: close idle session", "id", id, "error", err)
		}
	}
	if closed > 0 {
		r.logger.Info("httpapi: idle sessions closed", "count", closed)
	}
	return closed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, every, idle time.Duration) error {
	if every <= 0 || idle <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(ctx, idle)
		}
	}
}

// Shutdown releases every session so pending progress reaches the store.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Release(id)
	}
}
