package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leadform.yaml")
	data := []byte(`
addr: ":9090"
log:
  level: debug
  format: json
store:
  driver: sqlite
  sqlite: /var/lib/leadform.db
submission:
  endpoint: https://script.example.com/exec
  timeout: 12s
sessions:
  debounce: 250ms
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := Default()
	want.Addr = ":9090"
	want.Log = Log{Level: "debug", Format: "json"}
	want.Store.Driver = StoreSQLite
	want.Store.SQLite = "/var/lib/leadform.db"
	want.Submission.Endpoint = "https://script.example.com/exec"
	want.Submission.Timeout = 12 * time.Second
	want.Sessions.Debounce = 250 * time.Millisecond
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_RejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("addr: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"LEADFORM_ADDR":      " :7000 ",
		"LEADFORM_STORE":     "redis",
		"LEADFORM_REDIS_URL": "redis://localhost:6379/0",
		"LEADFORM_DEBOUNCE":  "1s",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Addr != ":7000" || cfg.Store.Driver != StoreRedis || cfg.Store.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Sessions.Debounce != time.Second {
		t.Fatalf("debounce = %s", cfg.Sessions.Debounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	env["LEADFORM_IDLE_AFTER"] = "soon"
	if err := cfg.ApplyEnv(lookup); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown driver": func(c *Config) { c.Store.Driver = "etcd" },
		"redis no url":   func(c *Config) { c.Store.Driver = StoreRedis },
		"file no dir":    func(c *Config) { c.Store.Driver, c.Store.Dir = StoreFile, "" },
		"negative idle":  func(c *Config) { c.Sessions.IdleAfter = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
