package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zapreel_voiceworker_sweeps_total",
		Help: "Pending-row sweeps executed in database mode.",
	})
	voicesClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zapreel_voiceworker_voices_claimed_total",
		Help: "Voices rows claimed by this worker.",
	})
	sweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zapreel_voiceworker_sweep_errors_total",
		Help: "Sweeps that failed with an infrastructure error.",
	})
)

// RunDatabaseMode skips the broker entirely and sweeps pending rows on an
// interval until the context is cancelled. A small HTTP endpoint serves
// liveness and metrics while the loop runs, since this is the only worker
// shape that stays up long enough to scrape.
func (w *Worker) RunDatabaseMode(ctx context.Context) error {
	srv := w.metricsServer()
	go func() {
		slog.Info("metrics endpoint listening", "addr", w.cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("database mode: sweeping pending voices", "interval", w.cfg.SweepInterval)
	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		sweepsTotal.Inc()
		claimed, err := w.sweepPending(ctx, "", nil, w.cfg.OutputDir)
		if err != nil {
			sweepErrors.Inc()
			slog.Error("sweep failed", "error", err)
		}
		if claimed > 0 {
			voicesClaimed.Add(float64(claimed))
			slog.Info("sweep complete", "claimed", claimed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) metricsServer() *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	return &http.Server{Addr: w.cfg.MetricsAddr, Handler: r}
}
