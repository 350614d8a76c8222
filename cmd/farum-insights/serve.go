package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/farum-insights/internal/adapters/catalog"
	httpadapter "github.com/PabloGalante/farum-insights/internal/adapters/http"
	"github.com/PabloGalante/farum-insights/internal/adapters/sink"
	badgerstore "github.com/PabloGalante/farum-insights/internal/adapters/storage/badger"
	firestorestore "github.com/PabloGalante/farum-insights/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/farum-insights/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-insights/internal/app/analytics"
	"github.com/PabloGalante/farum-insights/internal/app/events"
	"github.com/PabloGalante/farum-insights/internal/app/experiments"
	"github.com/PabloGalante/farum-insights/internal/config"
	"github.com/PabloGalante/farum-insights/internal/domain"
	"github.com/PabloGalante/farum-insights/internal/observability"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := observability.Configure(os.Stdout, cfg.LogLevel)
	if cfg.Mode == config.ModeGCP {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	archive, closeArchive, err := openArchive(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeArchive()

	eventSink, closeSink := openSink(cfg)
	defer closeSink()

	queue := events.NewQueue(metrics)
	emitter := events.NewEmitter(queue, eventSink, cfg.FlushInterval, metrics)

	sessions := analytics.NewService(
		analytics.NewDetector(cfg.Crisis),
		queue,
		analytics.WithArchive(archive),
		analytics.WithResponder(sink.LogResponder{}),
		analytics.WithMetrics(metrics),
	)
	exps := experiments.NewService(experiments.WithPublisher(queue), experiments.WithMetrics(metrics))

	if cfg.ExperimentsFile != "" {
		if err := preloadExperiments(ctx, exps, cfg.ExperimentsFile); err != nil {
			return err
		}
	}

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewServer(sessions, exps, metricsHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Only Stop ends the emitter, after EndAllSessions has enqueued the
	// session-end events.
	if err := emitter.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("farum-insights listening", "addr", srv.Addr, "storage", cfg.StorageBackend, "sink", cfg.EventSink)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		reapIdleSessions(gctx, sessions, cfg.Crisis.SessionCheckInterval, cfg.Crisis.InactivityPeriod)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		ended := sessions.EndAllSessions(shutdownCtx)
		emitter.Stop()

		log.Info("farum-insights stopped", "sessions_finalized", ended)
		return err
	})

	return g.Wait()
}

// reapIdleSessions finalizes abandoned sessions until ctx is done.
func reapIdleSessions(ctx context.Context, sessions *analytics.Service, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.EndIdleSessions(ctx, idle); n > 0 {
				observability.Logger().Info("idle sessions finalized", "count", n)
			}
		}
	}
}

func openArchive(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.SessionArchive, func(), error) {
	switch cfg.StorageBackend {
	case "firestore":
		log.Info("using firestore archive", "project", cfg.GCPProjectID)
		a, err := firestorestore.NewArchive(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing firestore archive: %w", err)
		}
		return a, closer(log, "firestore", a), nil

	case "badger":
		log.Info("using badger archive", "path", cfg.BadgerPath)
		a, err := badgerstore.Open(badgerstore.Config{Path: cfg.BadgerPath, SyncWrites: true, Logger: log.With("component", "badger")})
		if err != nil {
			return nil, nil, err
		}
		return a, closer(log, "badger", a), nil

	default:
		log.Info("using in-memory archive")
		return memstore.NewArchive(), func() {}, nil
	}
}

func closer(log *slog.Logger, name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Error("closing archive", "backend", name, "error", err)
		}
	}
}

// openSink always logs events at debug; influx is added on top when enabled.
func openSink(cfg *config.Config) (domain.EventSink, func()) {
	logSink := sink.NewLogSink(slog.LevelDebug)
	if cfg.EventSink != "influx" {
		return logSink, func() {}
	}

	influx := sink.NewInfluxSink(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
	return sink.NewFanout(logSink, influx), influx.Close
}

func preloadExperiments(ctx context.Context, exps *experiments.Service, path string) error {
	cfgs, err := catalog.Load(path)
	if err != nil {
		return err
	}
	for _, c := range cfgs {
		exp, err := exps.CreateTest(ctx, c)
		if err != nil {
			return fmt.Errorf("creating experiment %q: %w", c.Name, err)
		}
		if err := exps.StartTest(ctx, exp.ID); err != nil {
			return fmt.Errorf("starting experiment %q: %w", c.Name, err)
		}
	}
	observability.Logger().Info("experiments preloaded", "count", len(cfgs))
	return nil
}
