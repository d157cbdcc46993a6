// Package config loads the leadform service configuration: defaults, then an
// optional YAML file, then LEADFORM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-leadform/pkg/deeplink"
	"github.com/goliatone/go-leadform/pkg/persist"
	"github.com/goliatone/go-leadform/pkg/submission"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "LEADFORM_"

// Store drivers.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the full service configuration.
type Config struct {
	Addr       string `yaml:"addr"`
	Definition string `yaml:"definition"`

	Log        Log        `yaml:"log"`
	Store      Store      `yaml:"store"`
	Submission Submission `yaml:"submission"`
	Sessions   Sessions   `yaml:"sessions"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Store selects where in-progress answers are kept.
type Store struct {
	Driver   string        `yaml:"driver"`
	Dir      string        `yaml:"dir"`
	RedisURL string        `yaml:"redis_url"`
	SQLite   string        `yaml:"sqlite"`
	TTL      time.Duration `yaml:"ttl"`
}

// Submission configures delivery and the fallback link.
type Submission struct {
	Endpoint      string        `yaml:"endpoint"`
	Timeout       time.Duration `yaml:"timeout"`
	BeaconTimeout time.Duration `yaml:"beacon_timeout"`
	Phone         string        `yaml:"phone"`
}

// Sessions configures the server-side session registry.
type Sessions struct {
	Debounce   time.Duration `yaml:"debounce"`
	IdleAfter  time.Duration `yaml:"idle_after"`
	SweepEvery time.Duration `yaml:"sweep_every"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr: ":8080",
		Log:  Log{Level: "info", Format: "text"},
		Store: Store{
			Driver: StoreMemory,
			Dir:    "progress",
			SQLite: "leadform.db",
			TTL:    7 * 24 * time.Hour,
		},
		Submission: Submission{
			Endpoint:      submission.EndpointPlaceholder,
			Timeout:       submission.DefaultTimeout,
			BeaconTimeout: submission.DefaultBeaconTimeout,
			Phone:         deeplink.DefaultPhone,
		},
		Sessions: Sessions{
			Debounce:   persist.DefaultDebounce,
			IdleAfter:  30 * time.Minute,
			SweepEvery: time.Minute,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LEADFORM_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	str := map[string]*string{
		"ADDR":           &c.Addr,
		"DEFINITION":     &c.Definition,
		"LOG_LEVEL":      &c.Log.Level,
		"LOG_FORMAT":     &c.Log.Format,
		"STORE":          &c.Store.Driver,
		"STORE_DIR":      &c.Store.Dir,
		"REDIS_URL":      &c.Store.RedisURL,
		"SQLITE_PATH":    &c.Store.SQLite,
		"ENDPOINT":       &c.Submission.Endpoint,
		"WHATSAPP_PHONE": &c.Submission.Phone,
	}
	for name, dst := range str {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	dur := map[string]*time.Duration{
		"STORE_TTL":      &c.Store.TTL,
		"SUBMIT_TIMEOUT": &c.Submission.Timeout,
		"DEBOUNCE":       &c.Sessions.Debounce,
		"IDLE_AFTER":     &c.Sessions.IdleAfter,
	}
	for name, dst := range dur {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}
	return nil
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreFile:
		if c.Store.Dir == "" {
			return errors.New("config: store.dir is required for the file store")
		}
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return errors.New("config: store.redis_url is required for the redis store")
		}
	case StoreSQLite:
		if c.Store.SQLite == "" {
			return errors.New("config: store.sqlite is required for the sqlite store")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Sessions.Debounce < 0 || c.Sessions.IdleAfter < 0 {
		return errors.New("config: session durations must not be negative")
	}
	return nil
}
