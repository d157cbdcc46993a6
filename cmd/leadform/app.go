package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goliatone/go-leadform/components/localities"
	"github.com/goliatone/go-leadform/internal/config"
	"github.com/goliatone/go-leadform/internal/logger"
	"github.com/goliatone/go-leadform/pkg/deeplink"
	"github.com/goliatone/go-leadform/pkg/form"
	"github.com/goliatone/go-leadform/pkg/persist"
	"github.com/goliatone/go-leadform/pkg/submission"
)

// app carries what every subcommand shares once the config is loaded.
type app struct {
	configPath string
	cfg        config.Config
	log        *slog.Logger
}

func (a *app) load(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) definition() (*form.Definition, error) {
	if a.cfg.Definition == "" {
		return form.Default()
	}
	data, err := os.ReadFile(a.cfg.Definition)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return form.Parse(data, a.cfg.Definition)
}

func (a *app) localities() (*localities.Index, error) {
	return localities.DefaultIndex()
}

func (a *app) links() (*deeplink.Builder, error) {
	return deeplink.New(deeplink.WithPhone(a.cfg.Submission.Phone))
}

// openStore returns the configured snapshot store and its closer.
func (a *app) openStore(ctx context.Context) (persist.Store, func() error, error) {
	nop := func() error { return nil }
	sc := a.cfg.Store
	switch sc.Driver {
	case config.StoreFile:
		st, err := persist.NewFileStore(sc.Dir)
		return st, nop, err
	case config.StoreRedis:
		client, err := persist.DialRedis(ctx, sc.RedisURL)
		if err != nil {
			return nil, nop, err
		}
		return persist.NewRedisStore(client, persist.WithTTL(sc.TTL)), client.Close, nil
	case config.StoreSQLite:
		st, err := persist.OpenSQLite(ctx, sc.SQLite)
		if err != nil {
			return nil, nop, err
		}
		return st, st.Close, nil
	default:
		return persist.NewMemoryStore(), nop, nil
	}
}

func (a *app) dispatcher() *submission.HTTPDispatcher {
	d := submission.NewHTTPDispatcher(a.cfg.Submission.Endpoint, submission.WithTimeout(a.cfg.Submission.Timeout))
	if !d.Configured() {
		a.log.Warn("submission endpoint is not configured; deliveries will fail", "endpoint", a.cfg.Submission.Endpoint)
	}
	return d
}
