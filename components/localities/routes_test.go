package localities

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJoinPath(t *testing.T) {
	cases := map[string][2]string{
		"/form/api/localities": {"/form", defaultRoutePath},
		"/form/comunas":        {"form/", "comunas"},
		"/api/localities":      {"", defaultRoutePath},
		"/":                    {" ", ""},
	}
	for want, in := range cases {
		if got := JoinPath(in[0], in[1]); got != want {
			t.Fatalf("JoinPath(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}

func TestComponent_Mount(t *testing.T) {
	mux := http.NewServeMux()
	pattern, err := component(t, WithRoutePath("comunas")).Mount(mux, "/form")
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if pattern != "/form/comunas" {
		t.Fatalf("pattern = %q", pattern)
	}

	rec := serve(t, mux, http.MethodGet, pattern+"?q=san&limit=1")
	if opts := decodeOptions(t, rec); len(opts) != 1 || opts[0].Value != "San Miguel" {
		t.Fatalf("unexpected options %#v", opts)
	}
	if rec := serve(t, mux, http.MethodHead, pattern+"?q=san"); rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("head: status %d body %q", rec.Code, rec.Body.String())
	}
}

func TestRegisterRoutes_DefaultTable(t *testing.T) {
	mux := http.NewServeMux()
	pattern, err := RegisterRoutes(mux, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, pattern+"?q=nunoa", nil))
	if opts := decodeOptions(t, rec); len(opts) != 1 || opts[0].Region != "Metropolitana de Santiago" {
		t.Fatalf("unexpected options %#v", opts)
	}

	if _, err := RegisterRoutes(nil, "/"); err == nil {
		t.Fatalf("expected error for nil mux")
	}
}
