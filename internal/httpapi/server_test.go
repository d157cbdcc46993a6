package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-leadform/internal/metrics"
	"github.com/goliatone/go-leadform/pkg/deeplink"
	"github.com/goliatone/go-leadform/pkg/persist"
	"github.com/goliatone/go-leadform/pkg/session"
	"github.com/goliatone/go-leadform/pkg/submission"
	"github.com/goliatone/go-leadform/pkg/testsupport"
)

type recorder struct {
	mu       sync.Mutex
	payloads []submission.Payload
	beacons  []map[string]string
}

func (r *recorder) Dispatch(_ context.Context, p submission.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return nil
}

func (r *recorder) Send(fields map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beacons = append(r.beacons, fields)
}

type fixture struct {
	t        *testing.T
	server   *Server
	registry *Registry
	store    *persist.MemoryStore
	sched    *testsupport.ManualScheduler
	sent     *recorder
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		store: persist.NewMemoryStore(),
		sched: testsupport.NewManualScheduler(),
		sent:  &recorder{},
		clock: time.Date(2026, 3, 4, 14, 25, 30, 0, time.UTC),
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	places := testsupport.MustLocalities(t)
	def := testsupport.MustDefinition(t)

	f.registry = NewRegistry(func(id string, params session.StartParams) *session.Session {
		return session.New(def,
			session.WithID(id),
			session.WithStore(f.store, SessionKey(id)),
			session.WithScheduler(f.sched),
			session.WithLocalities(places),
			session.WithBeacon(f.sent),
			session.WithObserver(m),
			session.WithParams(params),
		)
	}, WithRegistryMetrics(m), WithRegistryClock(func() time.Time { return f.clock }))

	links, err := deeplink.New()
	require.NoError(t, err)
	ctrl := submission.NewController(f.sent, links, submission.WithObserver(m))

	f.server, err = New(context.Background(), f.registry, ctrl, WithLocalities(places), WithGatherer(reg))
	require.NoError(t, err)
	return f
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(f.t, err)
		rdr = bytes.NewReader(data)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) open(path string, body any) session.View {
	f.t.Helper()
	rec := f.do(http.MethodPost, path, body)
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var view session.View
	require.NoError(f.t, json.NewDecoder(rec.Body).Decode(&view))
	return view
}

func (f *fixture) command(id string, cmd session.Command) (int, CommandResult) {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/sessions/"+id+"/commands", cmd)
	var res CommandResult
	require.NoError(f.t, json.NewDecoder(rec.Body).Decode(&res))
	return rec.Code, res
}

func (f *fixture) fillAll(id string) {
	f.t.Helper()
	s, err := f.registry.Get(id)
	require.NoError(f.t, err)
	for name, v := range testsupport.CompleteAnswers() {
		require.NoError(f.t, s.SetValue(name, v))
	}
}

func TestOpenSession_Attribution(t *testing.T) {
	f := newFixture(t)

	view := f.open("/api/sessions?fuente=Instagram&hoja=Leads2", nil)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, 0, view.CurrentStep)
	assert.Equal(t, 4, view.StepCount)
	assert.Equal(t, "Instagram", view.Source)
	assert.Equal(t, "No especificado", view.Campaign)
	assert.Equal(t, "Leads2", view.Values["sheetName"])

	other := f.open("/api/sessions", map[string]string{"campana": "verano"})
	assert.Equal(t, "Orgánico", other.Source)
	assert.Equal(t, "verano", other.Campaign)
	assert.NotEqual(t, view.ID, other.ID)
	assert.Equal(t, 2, f.registry.Len())
}

func TestOpenSession_RejectsBadID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/sessions", map[string]string{"id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommands_StepFlow(t *testing.T) {
	f := newFixture(t)
	id := f.open("/api/sessions", nil).ID

	code, res := f.command(id, session.Command{Intent: session.IntentAdvance})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, 0, res.View.CurrentStep)
	assert.Equal(t, "nombre", res.View.Focus)
	assert.Contains(t, res.View.Errors, "rut")

	for name, v := range testsupport.StepAnswers(t, 0) {
		code, _ = f.command(id, session.Command{Intent: session.IntentInput, Field: name, Value: v})
		require.Equal(t, http.StatusOK, code, name)
	}
	code, res = f.command(id, session.Command{Intent: session.IntentAdvance})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, res.View.CurrentStep)
	assert.Equal(t, session.DirectionForward, res.View.Direction)
	assert.Equal(t, []bool{true, false, false, false}, res.View.Completed)

	code, res = f.command(id, session.Command{Intent: session.IntentJump, Step: 3})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.NotEmpty(t, res.Error)
}

func TestCommands_BadRequests(t *testing.T) {
	f := newFixture(t)
	id := f.open("/api/sessions", nil).ID

	code, _ := f.command(id, session.Command{Intent: "teleport"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.command(id, session.Command{Intent: session.IntentInput, Field: "apodo", Value: "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	rec := f.do(http.MethodPost, "/api/sessions/"+id+"/commands", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/sessions/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func upload(t *testing.T, f *fixture, id, name, mediaType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/sessions/"+id+"/attachment", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAttachment(t *testing.T) {
	f := newFixture(t)
	id := f.open("/api/sessions", nil).ID

	rec := upload(t, f, id, "notas.txt", "text/plain", []byte("hola"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var res CommandResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "Solo se permiten archivos PDF.", res.Error)
	assert.False(t, res.View.HasAttachment)

	rec = upload(t, f, id, "cert.pdf", "application/pdf", testsupport.PDF("cert.pdf").Data)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.View.HasAttachment)

	rec = f.do(http.MethodDelete, "/api/sessions/"+id+"/attachment", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.False(t, res.View.HasAttachment)
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	id := f.open("/api/sessions", nil).ID

	rec := f.do(http.MethodPost, "/api/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	f.fillAll(id)
	rec = f.do(http.MethodPost, "/api/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var res SubmitResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, submission.AbortAwaitingAttachment, res.Outcome.Aborted)

	rec = f.do(http.MethodPost, "/api/sessions/"+id+"/submit", map[string]bool{"skipAttachment": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Outcome.Success)
	assert.True(t, res.Outcome.Delivered)
	assert.True(t, strings.HasPrefix(res.Outcome.Link.URL, "https://wa.me/"))
	assert.True(t, res.View.SubmitEnabled)

	require.Len(t, f.sent.payloads, 1)
	assert.Equal(t, "12.345.678-5", f.sent.payloads[0].Get("rut"))
	_, stored := f.store.Raw(SessionKey(id))
	assert.False(t, stored)

	s, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.True(t, s.Submitting())
	code, _ := f.command(id, session.Command{Intent: session.IntentInput, Field: "nombre", Value: "Otra"})
	require.Equal(t, http.StatusOK, code)
	f.sched.Advance(persist.DefaultDebounce)
	_, stored = f.store.Raw(SessionKey(id))
	assert.False(t, stored, "autosave after a submission must not bring progress back")
}

func TestResumeAndAbandon(t *testing.T) {
	f := newFixture(t)
	id := f.open("/api/sessions", nil).ID

	code, _ := f.command(id, session.Command{Intent: session.IntentInput, Field: "nombre", Value: "Ana"})
	require.Equal(t, http.StatusOK, code)
	f.sched.Advance(persist.DefaultDebounce)
	_, stored := f.store.Raw(SessionKey(id))
	require.True(t, stored)

	require.True(t, f.registry.Release(id))
	resumed := f.open("/api/sessions", map[string]string{"id": id})
	assert.Equal(t, id, resumed.ID)
	assert.True(t, resumed.Recovered)
	assert.Equal(t, "Ana", resumed.Values["nombre"])

	rec := f.do(http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, f.sent.beacons, 1)
	assert.Equal(t, session.StatusAbandoned, f.sent.beacons[0][session.FieldStatus])
	assert.Equal(t, 0, f.registry.Len())

	rec = f.do(http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistrySweep(t *testing.T) {
	f := newFixture(t)
	stale := f.open("/api/sessions", nil).ID
	f.clock = f.clock.Add(20 * time.Minute)
	fresh := f.open("/api/sessions", nil).ID
	f.clock = f.clock.Add(15 * time.Minute)

	assert.Equal(t, 1, f.registry.Sweep(context.Background(), 30*time.Minute))
	_, err := f.registry.Get(stale)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.registry.Get(fresh)
	assert.NoError(t, err)
}

func TestRegistrySweep_SkipsSessionTouchedAfterScan(t *testing.T) {
	f := newFixture(t)
	id := f.open("/api/sessions", nil).ID
	f.clock = f.clock.Add(45 * time.Minute)
	cutoff := f.clock.Add(-30 * time.Minute)

	// Get lands between the stale scan and the removal.
	_, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Nil(t, f.registry.take(id, cutoff))

	_, err = f.registry.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.registry.Len())
}

func TestAuxiliaryRoutes(t *testing.T) {
	f := newFixture(t)
	f.open("/api/sessions", nil)

	rec := f.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/openapi.json", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"openapi":"3.0.3"`)

	rec = f.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leadform_active_sessions 1")

	rec = f.do(http.MethodGet, "/api/localities?q=%C3%91u", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ñuñoa")
}

func TestEveryRouteIsDocumented(t *testing.T) {
	f := newFixture(t)

	documented := map[string]bool{}
	for _, op := range Operations(f.server.Document()) {
		documented[op.Method+" "+op.Path] = true
	}

	err := chi.Walk(f.server.Router(), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		assert.True(t, documented[method+" "+route], "undocumented route %s %s", method, route)
		return nil
	})
	require.NoError(t, err)
}
