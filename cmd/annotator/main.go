package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/exam-audit-engine/internal/bootstrap"
	"github.com/kirillkom/exam-audit-engine/internal/config"
	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
	"github.com/kirillkom/exam-audit-engine/internal/observability/logging"
)

const serviceName = "exam-audit-annotator"

// annotator registers an audit run for a dataset and hands it to the workers.
// With -direct the run executes in-process instead, which is the mode used on
// developer machines without a worker fleet.
func main() {
	datasetPath := flag.String("dataset", "", "dataset JSON path (defaults to DATASET_PATH)")
	direct := flag.Bool("direct", false, "execute the run in-process instead of enqueuing it")
	flag.Parse()

	cfg := config.Load()
	if *datasetPath != "" {
		cfg.DatasetPath = *datasetPath
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	now := time.Now().UTC()
	run := &domain.AuditRun{
		ID:          uuid.NewString(),
		DatasetPath: cfg.DatasetPath,
		Status:      domain.RunStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := app.Repo.CreateRun(ctx, run); err != nil {
		log.Fatalf("create run error: %v", err)
	}

	runLogger := logging.WithRun(logger, run.ID)
	if *direct {
		if err := app.RunUC.ExecuteRun(ctx, run.ID); err != nil {
			log.Fatalf("execute run error: %v", err)
		}
		runLogger.Info("audit_run_completed", "dataset", cfg.DatasetPath)
		return
	}

	if err := app.Queue.PublishRunRequested(ctx, run.ID); err != nil {
		log.Fatalf("publish run error: %v", err)
	}
	runLogger.Info("audit_run_enqueued", "dataset", cfg.DatasetPath, "subject", cfg.NATSSubject)
}
