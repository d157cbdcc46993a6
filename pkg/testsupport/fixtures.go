package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-leadform/components/localities"
	"github.com/goliatone/go-leadform/pkg/form"
)

// MustDefinition returns the embedded lead form definition.
func MustDefinition(t *testing.T) *form.Definition {
	t.Helper()

	def, err := form.Default()
	if err != nil {
		t.Fatalf("load definition: %v", err)
	}
	return def
}

// MustLocalities returns an index over the embedded commune table.
func MustLocalities(t *testing.T) *localities.Index {
	t.Helper()

	idx, err := localities.DefaultIndex()
	if err != nil {
		t.Fatalf("load localities: %v", err)
	}
	return idx
}

// CompleteAnswers returns answers that satisfy every required field of the
// default definition, with both conditional sections visible.
func CompleteAnswers() map[string]string {
	return map[string]string{
		"nombre":            "Ana Pérez",
		"rut":               "12.345.678-5",
		"email":             "ana@correo.cl",
		"telefono":          "+56 912345678",
		"rango_edad":        "36-45",
		"estado_civil":      "Casado(a)",
		"comuna":            "Ñuñoa",
		"region":            "Metropolitana de Santiago",
		"estatura":          "1.70",
		"peso":              "68",
		"sistema_actual":    "Isapre",
		"isapre_especifica": "Colmena",
		"anualidad_isapre":  "Si",
		"num_cargas":        "0",
		"rango_costo":       "$50.000 - $100.000",
		"interes":           "Mejorar mis coberturas",
		"evaluar_afp":       "Si",
		"afp_actual":        "Modelo",
	}
}

// StepAnswers returns the subset of CompleteAnswers that belongs to step.
func StepAnswers(t *testing.T, step int) map[string]string {
	t.Helper()

	def := MustDefinition(t)
	all := CompleteAnswers()
	out := map[string]string{}
	s, ok := def.Step(step)
	if !ok {
		t.Fatalf("unknown step %d", step)
	}
	for _, f := range s.Fields {
		if v, ok := all[f.Name]; ok {
			out[f.Name] = v
		}
	}
	return out
}

// PDF returns a small attachment that passes form.CheckAttachment.
func PDF(name string) *form.Attachment {
	data := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj <<>> endobj\ntrailer <<>>\n%%EOF\n")
	return &form.Attachment{Name: name, MediaType: form.PDFMediaType, Size: int64(len(data)), Data: data}
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}
