package session_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-leadform/pkg/persist"
	"github.com/goliatone/go-leadform/pkg/session"
	"github.com/goliatone/go-leadform/pkg/testsupport"
)

func TestAutosave_CoalescesBurst(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 10; i++ {
		if err := h.s.SetValue("nombre", strings.Repeat("a", i+1)); err != nil {
			t.Fatalf("set: %v", err)
		}
		h.sched.Advance(50 * time.Millisecond)
	}
	if got := h.store.Saves(); got != 0 {
		t.Fatalf("expected no write during the burst, got %d", got)
	}

	h.sched.Advance(persist.DefaultDebounce)
	if got := h.store.Saves(); got != 1 {
		t.Fatalf("expected exactly one write, got %d", got)
	}
	snap, err := h.store.Load(context.Background(), persist.DefaultKey)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Values["nombre"] != strings.Repeat("a", 10) {
		t.Fatalf("expected last value saved, got %+v", snap)
	}
}

func TestAutosave_SkippedWhileSubmitting(t *testing.T) {
	h := newHarness(t)
	_ = h.s.SetValue("nombre", "Ana")

	if !h.s.BeginSubmit() {
		t.Fatalf("expected submission to start")
	}
	if h.s.BeginSubmit() {
		t.Fatalf("second submission must be refused while in flight")
	}
	_ = h.s.SetValue("nombre", "Ana María")
	h.sched.Advance(time.Second)
	if got := h.store.Saves(); got != 0 {
		t.Fatalf("expected no write while submitting, got %d", got)
	}

	h.s.EndSubmit()
	if !h.s.SubmitEnabled() || !h.s.Submitting() {
		t.Fatalf("expected submit control back with the latch kept")
	}
	_ = h.s.SetValue("nombre", "Ana")
	h.sched.Advance(time.Second)
	if got := h.store.Saves(); got != 0 {
		t.Fatalf("latched session must not autosave, got %d writes", got)
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	h := newHarness(t)
	h.store.Put(persist.DefaultKey, []byte(`{"rut":"12345678-5","currentStep":2,"unknown":"x"}`))

	if err := h.s.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !h.s.Recovered() {
		t.Fatalf("expected recovered session")
	}
	v := h.s.View()
	if v.CurrentStep != 2 {
		t.Fatalf("expected step 2, got %d", v.CurrentStep)
	}
	if diff := cmp.Diff([]bool{true, true, false, false}, v.Completed); diff != "" {
		t.Fatalf("completed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"rut": "12345678-5"}, v.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if err := h.s.JumpTo(0); err != nil {
		t.Fatalf("restored steps should be reachable: %v", err)
	}
}

func TestRestore_ClampsStep(t *testing.T) {
	h := newHarness(t)
	h.store.Put(persist.DefaultKey, []byte(`{"nombre":"Ana","currentStep":"42"}`))

	if err := h.s.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got, want := h.s.CurrentStep(), h.s.Definition().LastStep(); got != want {
		t.Fatalf("expected step %d, got %d", want, got)
	}
}

func TestRestore_DiscardsCorrupt(t *testing.T) {
	h := newHarness(t)
	h.store.Put(persist.DefaultKey, []byte(`{not json`))

	if err := h.s.Restore(context.Background()); err != nil {
		t.Fatalf("corrupt snapshot must not fail restore: %v", err)
	}
	if h.s.Recovered() {
		t.Fatalf("corrupt snapshot must not mark the session recovered")
	}
	if h.store.Len() != 0 {
		t.Fatalf("expected corrupt snapshot deleted")
	}
	if h.s.CurrentStep() != 0 {
		t.Fatalf("expected empty start")
	}
}

func TestRestore_Missing(t *testing.T) {
	h := newHarness(t)
	if err := h.s.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if h.s.Recovered() {
		t.Fatalf("nothing stored, nothing recovered")
	}
}

func TestTeardown_SendsAbandonment(t *testing.T) {
	h := newHarness(t, session.WithParams(session.StartParams{Campaign: "otoño"}))
	_ = h.s.SetValue("nombre", "Ana")
	_ = h.s.SetValue("email", "ana@correo.cl")
	h.s.ClickCTA("hero")
	h.sched.Advance(persist.DefaultDebounce)

	if err := h.s.Teardown(context.Background()); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if len(h.beacon.sends) != 1 {
		t.Fatalf("expected one beacon, got %d", len(h.beacon.sends))
	}
	want := map[string]string{
		"nombre":      "Ana",
		"email":       "ana@correo.cl",
		"currentStep": "0",
		"status":      session.StatusAbandoned,
		"fuente_cta":  "hero",
		"campana":     "otoño",
	}
	if diff := cmp.Diff(want, h.beacon.sends[0]); diff != "" {
		t.Fatalf("beacon mismatch (-want +got):\n%s", diff)
	}
	if h.store.Len() != 0 {
		t.Fatalf("expected snapshot deleted")
	}
	if !h.s.Closed() {
		t.Fatalf("expected closed session")
	}

	_ = h.s.SetValue("nombre", "Otra")
	h.sched.Advance(time.Second)
	if h.store.Len() != 0 {
		t.Fatalf("closed session must not autosave")
	}
}

func TestTeardown_DropsPendingSave(t *testing.T) {
	h := newHarness(t)
	_ = h.s.SetValue("nombre", "Ana")

	if err := h.s.Teardown(context.Background()); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if len(h.beacon.sends) != 0 {
		t.Fatalf("nothing was stored, expected no beacon")
	}
	if h.sched.Pending() != 0 {
		t.Fatalf("expected pending autosave cancelled")
	}
}

func TestTeardown_AfterSubmissionIsQuiet(t *testing.T) {
	h := newHarness(t)
	_ = h.s.SetValue("nombre", "Ana")
	h.sched.Advance(persist.DefaultDebounce)

	if err := h.s.ClearProgress(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := h.s.Teardown(context.Background()); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if len(h.beacon.sends) != 0 {
		t.Fatalf("expected no beacon after a cleared snapshot")
	}
}

func TestFlushProgress(t *testing.T) {
	h := newHarness(t)
	if h.s.FlushProgress() {
		t.Fatalf("nothing pending")
	}
	_ = h.s.SetValue("telefono", "+56 912345678")
	if !h.s.SavePending() {
		t.Fatalf("expected a pending save")
	}
	if !h.s.FlushProgress() {
		t.Fatalf("expected flush to run")
	}
	snap, err := h.store.Load(context.Background(), persist.DefaultKey)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(h.s.Snapshot(), snap); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestWithoutStore(t *testing.T) {
	s := session.New(testsupport.MustDefinition(t), session.WithScheduler(testsupport.NewManualScheduler()))
	_ = s.SetValue("nombre", "Ana")
	if s.SavePending() {
		t.Fatalf("no store, no autosave")
	}
	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if err := s.Teardown(context.Background()); err != nil {
		t.Fatalf("teardown: %v", err)
	}
}
