package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/goliatone/go-leadform/pkg/deeplink"
	"github.com/goliatone/go-leadform/pkg/session"
	"github.com/goliatone/go-leadform/pkg/submission"
	"github.com/goliatone/go-leadform/pkg/testsupport"
)

type scriptedDriver struct {
	inputs   map[string][]string
	choices  map[string][]string
	confirms []bool
	info     []string
}

func (d *scriptedDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	q := d.inputs[cfg.Message]
	if len(q) == 0 {
		return "", fmt.Errorf("no input scripted for %q", cfg.Message)
	}
	d.inputs[cfg.Message] = q[1:]
	return q[0], nil
}

func (d *scriptedDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	if len(d.confirms) == 0 {
		return false, fmt.Errorf("no confirm scripted for %q", cfg.Message)
	}
	v := d.confirms[0]
	d.confirms = d.confirms[1:]
	return v, nil
}

func (d *scriptedDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	q := d.choices[cfg.Message]
	if len(q) == 0 {
		return -1, fmt.Errorf("no choice scripted for %q", cfg.Message)
	}
	d.choices[cfg.Message] = q[1:]
	idx := indexOf(cfg.Options, q[0])
	if idx < 0 {
		return -1, fmt.Errorf("%q is not an option of %q", q[0], cfg.Message)
	}
	return idx, nil
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.info = append(d.info, msg)
	return nil
}

func (d *scriptedDriver) said(substr string) bool {
	for _, m := range d.info {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func fullScript() *scriptedDriver {
	return &scriptedDriver{
		inputs: map[string][]string{
			"Nombre":       {"Ana Pérez"},
			"RUT":          {"123456785"},
			"Email":        {"ana.correo.cl", "ana@correo.cl"},
			"Teléfono":     {"+56 912345678"},
			"Comuna":       {"Xyzzy", "Nunoa"},
			"Estatura":     {"1.70"},
			"Peso":         {"68"},
			"Edad carga 1": {"4"},
			"Edad carga 2": {"7"},
			"Certificado de cotizaciones (ruta al PDF)": {"/tmp/cert.pdf"},
		},
		choices: map[string][]string{
			"Edad":              {"36-45"},
			"Estado civil":      {"Casado(a)"},
			"Sistema de Salud":  {"Isapre"},
			"Isapre":            {"Colmena"},
			"Anualidad Isapre":  {"No"},
			"Cargas":            {"2"},
			"Costo plan actual": {"(omitir)"},
			"Interés":           {"Mejorar mis coberturas"},
			"Evaluar AFP":       {"Si"},
			"AFP actual":        {"Modelo"},
		},
	}
}

func readPDF(path string) ([]byte, error) {
	if path != "/tmp/cert.pdf" {
		return nil, os.ErrNotExist
	}
	return testsupport.PDF("cert.pdf").Data, nil
}

func newSession(t *testing.T) *session.Session {
	t.Helper()
	return session.New(testsupport.MustDefinition(t),
		session.WithLocalities(testsupport.MustLocalities(t)),
		session.WithScheduler(testsupport.NewManualScheduler()),
	)
}

func TestRunner_FillWalksEveryStep(t *testing.T) {
	driver := fullScript()
	s := newSession(t)
	r := New(WithPromptDriver(driver), WithSuggester(testsupport.MustLocalities(t)), WithReadFile(readPDF))

	if err := r.Fill(context.Background(), s); err != nil {
		t.Fatalf("fill: %v (said %v)", err, driver.info)
	}

	last := s.Definition().LastStep()
	if s.CurrentStep() != last || !s.Completed(last) {
		t.Fatalf("expected last step completed, at %d", s.CurrentStep())
	}
	want := map[string]string{
		"rut":         "12.345.678-5",
		"email":       "ana@correo.cl",
		"comuna":      "Ñuñoa",
		"region":      "Metropolitana de Santiago",
		"edad_cargas": "4, 7",
		"rango_costo": "",
		"pdf_file":    "cert.pdf",
	}
	for k, v := range want {
		if got := s.Value(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
	if !driver.said(`al menos un año en "Colmena"`) {
		t.Fatalf("expected annuity notice, said %v", driver.info)
	}
	if !driver.said("Paso 4 de 4") {
		t.Fatalf("expected step headers, said %v", driver.info)
	}
}

func TestRunner_SubmitAsksForAttachment(t *testing.T) {
	driver := fullScript()
	driver.inputs["Certificado de cotizaciones (ruta al PDF)"] = []string{"", "/tmp/missing.pdf", "/tmp/cert.pdf"}
	driver.confirms = []bool{false}
	s := newSession(t)
	r := New(WithPromptDriver(driver), WithReadFile(readPDF))

	if err := r.Fill(context.Background(), s); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if s.Attachment() != nil {
		t.Fatalf("blank path must skip the attachment")
	}

	var delivered []submission.Payload
	links, err := deeplink.New()
	if err != nil {
		t.Fatalf("deeplink: %v", err)
	}
	ctrl := submission.NewController(submission.DispatcherFunc(func(_ context.Context, p submission.Payload) error {
		delivered = append(delivered, p)
		return nil
	}), links)

	out, err := r.Submit(context.Background(), s, ctrl)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Delivered || len(delivered) != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if delivered[0].Get(submission.FieldBase64PDF) == "" {
		t.Fatalf("expected the attachment to be sent")
	}
	if !driver.said("No se pudo leer /tmp/missing.pdf") {
		t.Fatalf("expected read error, said %v", driver.info)
	}
	if !driver.said("wa.me/") {
		t.Fatalf("expected fallback link, said %v", driver.info)
	}
}

func TestRunner_SubmitSkipsAttachment(t *testing.T) {
	driver := fullScript()
	driver.inputs["Certificado de cotizaciones (ruta al PDF)"] = []string{""}
	driver.confirms = []bool{true}
	s := newSession(t)
	r := New(WithPromptDriver(driver))
	if err := r.Fill(context.Background(), s); err != nil {
		t.Fatalf("fill: %v", err)
	}

	links, _ := deeplink.New()
	ctrl := submission.NewController(submission.DispatcherFunc(func(context.Context, submission.Payload) error {
		return errors.New("offline")
	}), links)
	out, err := r.Submit(context.Background(), s, ctrl)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Success || out.Delivered {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !driver.said(submission.NoticeDeliveryFailed) {
		t.Fatalf("expected delivery notice, said %v", driver.info)
	}
}

func TestRunner_PropagatesAbort(t *testing.T) {
	driver := &scriptedDriver{inputs: map[string][]string{}, choices: map[string][]string{}}
	r := New(WithPromptDriver(abortingDriver{driver}))
	err := r.Fill(context.Background(), newSession(t))
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

type abortingDriver struct{ *scriptedDriver }

func (abortingDriver) Input(context.Context, InputConfig) (string, error) { return "", ErrAborted }
