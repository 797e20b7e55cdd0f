package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/exam-audit-engine/internal/bootstrap"
	"github.com/kirillkom/exam-audit-engine/internal/config"
	"github.com/kirillkom/exam-audit-engine/internal/observability/logging"
	"github.com/kirillkom/exam-audit-engine/internal/observability/metrics"
)

const serviceName = "exam-audit-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	runMetrics := metrics.NewRunMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: runMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed",
		"subject", cfg.NATSSubject,
		"apply_change_min_confidence", app.ApplyChangeMinConfidence,
		"review_min_severity", app.Escalation.MinMaintenanceSeverity,
		"low_confidence_threshold", app.Escalation.LowConfidenceThreshold,
	)
	err = app.Queue.SubscribeRunRequested(ctx, func(handlerCtx context.Context, runID string) error {
		runLogger := logging.WithRun(logger, runID)
		processCtx, cancel := context.WithTimeout(handlerCtx, 15*time.Minute)
		defer cancel()

		if run, err := app.Repo.GetRun(processCtx, runID); err == nil {
			runMetrics.ObserveQueueLag(serviceName, time.Since(run.CreatedAt))
		}

		runMetrics.StartRun()
		start := time.Now()
		execErr := app.RunUC.ExecuteRun(processCtx, runID)
		runMetrics.FinishRun(serviceName, time.Since(start), execErr)
		if execErr != nil {
			runLogger.Error("audit_run_failed", "error", execErr)
			return execErr
		}

		if run, err := app.Repo.GetRun(processCtx, runID); err == nil {
			runMetrics.ObserveReport(serviceName, run.Report)
		}
		runLogger.Info("audit_run_processed", "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
