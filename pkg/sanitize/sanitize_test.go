package sanitize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"Ana Pérez", "Ana Pérez"},
		{"  Ñuñoa ", "Ñuñoa"},
		{"Pérez & Cía", "Pérez & Cía"},
		{"<b>Ana</b>", "Ana"},
		{`<script>alert("x")</script>Ana`, "Ana"},
		{`<a href="javascript:alert(1)">clic</a>`, "clic"},
		{"$50.000 - $100.000", "$50.000 - $100.000"},
	}
	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Fatalf("Text(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValues(t *testing.T) {
	in := map[string]string{"nombre": "<i>Ana</i>", "comuna": "Maipú"}
	got := Values(in)
	want := map[string]string{"nombre": "Ana", "comuna": "Maipú"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if in["nombre"] != "<i>Ana</i>" {
		t.Fatalf("input must not be modified")
	}
}
