package localities

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleEntries() []Entry {
	return []Entry{
		{Name: "Santiago", Region: "Metropolitana de Santiago"},
		{Name: "Ñuñoa", Region: "Metropolitana de Santiago"},
		{Name: "Maipú", Region: "Metropolitana de Santiago"},
		{Name: "Providencia", Region: "Metropolitana de Santiago"},
		{Name: "Puente Alto", Region: "Metropolitana de Santiago"},
		{Name: "Pudahuel", Region: "Metropolitana de Santiago"},
		{Name: "San Miguel", Region: "Metropolitana de Santiago"},
		{Name: "Valparaíso", Region: "Valparaíso"},
	}
}

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestLoadEntries_SortsSkipsCommentsAndDuplicates(t *testing.T) {
	input := strings.NewReader(`
# comment
Valparaíso|Viña del Mar
Metropolitana de Santiago|Ñuñoa
Metropolitana de Santiago|Maipú

Otra|Maipú
`)
	entries, err := LoadEntries(input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []Entry{
		{Name: "Maipú", Region: "Metropolitana de Santiago"},
		{Name: "Viña del Mar", Region: "Valparaíso"},
		{Name: "Ñuñoa", Region: "Metropolitana de Santiago"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEntries_RejectsMalformedLine(t *testing.T) {
	if _, err := LoadEntries(strings.NewReader("Santiago\n")); err == nil {
		t.Fatalf("expected error for a line without a region")
	}
}

func TestDefaultEntries_CoversEveryCommune(t *testing.T) {
	entries, err := DefaultEntries()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 346 {
		t.Fatalf("expected 346 communes, got %d", len(entries))
	}
	regions := map[string]struct{}{}
	for _, e := range entries {
		regions[e.Region] = struct{}{}
	}
	if len(regions) != 16 {
		t.Fatalf("expected 16 regions, got %d", len(regions))
	}

	idx := NewIndex(entries)
	region, ok := idx.ResolveRegion("Ñuñoa")
	if !ok || region != "Metropolitana de Santiago" {
		t.Fatalf("unexpected region for Ñuñoa: %q (%v)", region, ok)
	}
}

func TestNormalize_FoldsCaseAndMarks(t *testing.T) {
	cases := map[string]string{
		"Ñuñoa":       "nunoa",
		"CONCEPCIÓN":  "concepcion",
		"Los Ángeles": "los angeles",
		"Ollagüe":     "ollague",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSuggestions_ContainsAfterFolding(t *testing.T) {
	idx := NewIndex(sampleEntries())

	got := names(idx.Suggestions("pu", 0))
	want := []string{"Maipú", "Pudahuel", "Puente Alto"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("suggestions mismatch (-want +got):\n%s", diff)
	}

	got = names(idx.Suggestions("NUN", 5))
	if diff := cmp.Diff([]string{"Ñuñoa"}, got); diff != "" {
		t.Fatalf("suggestions mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggestions_EmptyPrefixAndLimit(t *testing.T) {
	idx := NewIndex(sampleEntries())

	if got := idx.Suggestions("", 5); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %v", got)
	}
	got := names(idx.Suggestions("a", 2))
	if diff := cmp.Diff([]string{"Maipú", "Providencia"}, got); diff != "" {
		t.Fatalf("suggestions mismatch (-want +got):\n%s", diff)
	}
}

func TestNearestMatch(t *testing.T) {
	idx := NewIndex(sampleEntries())

	m, ok := idx.NearestMatch("nunoa")
	if !ok || m.Name != "Ñuñoa" || m.Distance != 0 {
		t.Fatalf("unexpected match: %+v (%v)", m, ok)
	}

	m, ok = idx.NearestMatch("Santiag")
	if !ok || m.Name != "Santiago" || m.Distance != 1 {
		t.Fatalf("unexpected match: %+v (%v)", m, ok)
	}

	if _, ok := idx.NearestMatch("   "); ok {
		t.Fatalf("expected no match for blank input")
	}
	if _, ok := NewIndex(nil).NearestMatch("santiago"); ok {
		t.Fatalf("expected no match on an empty index")
	}
}

func TestNearestMatch_TieKeepsEarlierName(t *testing.T) {
	idx := NewIndex([]Entry{{Name: "Ana", Region: "X"}, {Name: "Ama", Region: "X"}})
	m, ok := idx.NearestMatch("aya")
	if !ok || m.Name != "Ama" || m.Distance != 1 {
		t.Fatalf("unexpected match: %+v (%v)", m, ok)
	}
}

func TestNearestMatch_EveryEntryMatchesItself(t *testing.T) {
	idx, err := DefaultIndex()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, e := range idx.Entries() {
		m, ok := idx.NearestMatch(e.Name)
		if !ok || m.Distance != 0 || Normalize(m.Name) != Normalize(e.Name) {
			t.Fatalf("NearestMatch(%q) = %+v", e.Name, m)
		}
	}
}

func TestAutocorrect(t *testing.T) {
	idx := NewIndex(sampleEntries())

	cases := []struct {
		in   string
		want Correction
	}{
		{"Providenca", Correction{Value: "Providencia", Region: "Metropolitana de Santiago", Distance: 1, Corrected: true, Valid: true}},
		{"maipu", Correction{Value: "Maipú", Region: "Metropolitana de Santiago", Distance: 0, Corrected: true, Valid: true}},
		{"Maipú", Correction{Value: "Maipú", Region: "Metropolitana de Santiago", Distance: 0, Valid: true}},
		{"Santia", Correction{Value: "Santia", Distance: -1}},
		{"Xyzzy", Correction{Value: "Xyzzy", Distance: -1}},
		{"", Correction{}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, idx.Autocorrect(tc.in)); diff != "" {
			t.Fatalf("Autocorrect(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}
