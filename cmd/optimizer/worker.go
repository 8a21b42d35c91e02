package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pickem-optimizer/internal/health"
	"github.com/yourusername/pickem-optimizer/internal/metrics"
	"github.com/yourusername/pickem-optimizer/internal/scheduler"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run pending jobs until interrupted",
	Long:  `Polls for pending jobs on a schedule, runs them, and serves health and metrics endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runWorker(ctx)
	},
}

func runWorker(ctx context.Context) error {
	d, err := setupDependencies(ctx, true)
	if err != nil {
		return err
	}
	defer d.close()

	checks := make(map[string]health.Pinger, len(d.checks))
	for name, fn := range d.checks {
		checks[name] = health.PingFunc(fn)
	}
	healthServer := health.NewServer(health.Config{
		ServiceName:  cfg.App.Name,
		Version:      Version,
		Commit:       GitCommit,
		Port:         cfg.Health.Port,
		Logger:       appLog,
		Checks:       checks,
		FreeJobSlots: d.service.Available,
	})
	if err := healthServer.Start(ctx); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		startMetricsServer(ctx)
	}

	sched := scheduler.NewScheduler(d.service, appLog)
	if err := sched.SchedulePendingDispatch(cfg.PollInterval()); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	healthServer.SetReady(true)

	appLog.WithFields(logrus.Fields{
		"version":        Version,
		"environment":    cfg.App.Environment,
		"max_concurrent": cfg.Jobs.MaxConcurrent,
		"cache_backend":  cfg.Engine.Cache.Backend,
	}).Info("Worker started")

	<-ctx.Done()
	appLog.Info("Shutdown signal received")

	healthServer.SetReady(false)
	sched.Stop()
	d.service.Wait()
	appLog.Info("Worker stopped")
	return nil
}

func startMetricsServer(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Error("Metrics server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
