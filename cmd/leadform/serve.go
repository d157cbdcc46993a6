package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-leadform/internal/httpapi"
	"github.com/goliatone/go-leadform/internal/metrics"
	"github.com/goliatone/go-leadform/pkg/session"
	"github.com/goliatone/go-leadform/pkg/submission"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve form sessions over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	log := a.log

	def, err := a.definition()
	if err != nil {
		return err
	}
	places, err := a.localities()
	if err != nil {
		return err
	}
	links, err := a.links()
	if err != nil {
		return err
	}
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("close store", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	dispatcher := a.dispatcher()
	beacon := submission.NewBeacon(dispatcher, a.cfg.Submission.BeaconTimeout, log)
	controller := submission.NewController(dispatcher, links,
		submission.WithLogger(log),
		submission.WithObserver(m),
	)

	registry := httpapi.NewRegistry(func(id string, params session.StartParams) *session.Session {
		return session.New(def,
			session.WithID(id),
			session.WithStore(store, httpapi.SessionKey(id)),
			session.WithLocalities(places),
			session.WithDebounce(a.cfg.Sessions.Debounce),
			session.WithBeacon(beacon),
			session.WithObserver(m),
			session.WithLogger(log.With("session", id)),
			session.WithParams(params),
		)
	}, httpapi.WithRegistryMetrics(m), httpapi.WithRegistryLogger(log))

	api, err := httpapi.New(ctx, registry, controller,
		httpapi.WithLocalities(places),
		httpapi.WithGatherer(reg),
		httpapi.WithLogger(log),
		httpapi.WithRequestTimeout(a.cfg.Submission.Timeout*2),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("leadform listening", "addr", srv.Addr, "store", a.cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return registry.Run(gctx, a.cfg.Sessions.SweepEvery, a.cfg.Sessions.IdleAfter)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		registry.Shutdown()
		beacon.Wait()
		return err
	})
	return g.Wait()
}
