// Package httpapi exposes lead form sessions over HTTP.
//
// A browser host opens a session, forwards user intents as commands, uploads
// the optional document and finally submits. Every response carries the
// session view so the host only renders.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-leadform/components/localities"
	"github.com/goliatone/go-leadform/pkg/submission"
)

// DefaultRequestTimeout bounds a request, submission included.
const DefaultRequestTimeout = 60 * time.Second

// Server wires the session registry, the submission controller and the
// locality search into one router.
type Server struct {
	registry   *Registry
	controller *submission.Controller
	places     *localities.Index
	doc        *openapi3.T
	gatherer   prometheus.Gatherer
	logger     *slog.Logger
	timeout    time.Duration
	router     chi.Router
}

// Option configures a Server.
type Option func(*Server)

func WithLocalities(idx *localities.Index) Option {
	return func(s *Server) { s.places = idx }
}

// WithGatherer exposes g at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New builds the server and its routes.
func New(ctx context.Context, registry *Registry, controller *submission.Controller, opts ...Option) (*Server, error) {
	if registry == nil {
		return nil, errors.New("httpapi: registry is required")
	}
	if controller == nil {
		return nil, errors.New("httpapi: submission controller is required")
	}
	doc, err := LoadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}
	s := &Server{
		registry:   registry,
		controller: controller,
		doc:        doc,
		logger:     slog.New(slog.DiscardHandler),
		timeout:    DefaultRequestTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.places == nil {
		if s.places, err = localities.DefaultIndex(); err != nil {
			return nil, err
		}
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Router exposes the routes for inspection.
func (s *Server) Router() chi.Router { return s.router }

// Document returns the API description served at /openapi.json.
func (s *Server) Document() *openapi3.T { return s.doc }

func (s *Server) routes() error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/openapi.json", s.handleOpenAPI)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	if _, err := localities.RegisterRoutes(getOnly{r}, "", localities.WithIndex(s.places)); err != nil {
		return err
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleOpen)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleView)
			r.Delete("/", s.handleClose)
			r.Post("/commands", s.handleCommand)
			r.Put("/attachment", s.handleAttach)
			r.Delete("/attachment", s.handleClearAttachment)
			r.Post("/submit", s.handleSubmit)
		})
	})

	s.router = r
	return nil
}

// getOnly mounts component handlers for GET only.
type getOnly struct{ chi.Router }

func (g getOnly) Handle(pattern string, h http.Handler) {
	g.Router.Method(http.MethodGet, pattern, h)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "httpapi: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(s.doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
