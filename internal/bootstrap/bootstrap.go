package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/exam-audit-engine/internal/config"
	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
	"github.com/kirillkom/exam-audit-engine/internal/core/ports"
	"github.com/kirillkom/exam-audit-engine/internal/core/usecase"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/corpus"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/dataset"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/imagestore"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/queue/nats"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/resilience"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/storage/contextfile"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/storage/indexfile"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.RunQueue
	Repo  ports.RunRepository
	RunUC ports.RunExecutor

	// Thresholds the oracle orchestration layer applies to this engine's
	// output; exposed so every process reports the same policy.
	Escalation               usecase.EscalationPolicy
	ApplyChangeMinConfidence float64

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewRunRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init run queue: %w", err)
	}

	chunks, images, diagnostics, err := loadKnowledge(ctx, cfg, logger)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}
	index, err := usecase.NewKnowledgeIndex(chunks, images)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("build knowledge index: %w", err)
	}

	var store ports.ImageStore
	if cfg.ImageZipPath != "" {
		zipStore, storeDiags, err := imagestore.LoadZipStore(cfg.ImageZipPath)
		if err != nil {
			queue.Close()
			_ = db.Close()
			return nil, fmt.Errorf("load image archive: %w", err)
		}
		diagnostics = append(diagnostics, storeDiags...)
		store = zipStore
	}

	runUC := usecase.NewAuditRunUseCase(
		repo,
		dataset.NewJSONLoader(),
		store,
		contextfile.NewWriter(cfg.ContextOutPath),
		index,
		diagnostics,
		logger,
		usecase.RunOptions{
			TopK:             cfg.RetrievalTopK,
			MinScore:         cfg.RetrievalMinScore,
			MaxEvidenceChars: cfg.RetrievalMaxChars,

			TextClusterSimilarity:        cfg.TextClusterSimilarity,
			AbstractionClusterSimilarity: cfg.AbstractionClusterSimilarity,
			ClusterPruneRatio:            cfg.ClusterPruneRatio,

			ImageClusterDistance:   cfg.ImageClusterMaxDistance,
			KnowledgeImageDistance: cfg.KnowledgeImageMaxDistance,

			Repeat: usecase.RepeatOptions{
				MinSimilarity:       cfg.RepeatMinSimilarity,
				MinAnchorConfidence: cfg.RepeatMinAnchorConfidence,
			},
		},
	)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Repo:   repo,
		RunUC:  runUC,

		Escalation: usecase.EscalationPolicy{
			MinMaintenanceSeverity: cfg.ReviewMinMaintenanceSeverity,
			LowConfidenceThreshold: cfg.LowConfMaintenanceThreshold,
		},
		ApplyChangeMinConfidence: cfg.ApplyChangeMinConfidence,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// loadKnowledge serves the retrieval index from the JSON cache when present,
// otherwise parses the knowledge archive and refreshes the cache.
func loadKnowledge(ctx context.Context, cfg config.Config, logger *slog.Logger) ([]domain.Chunk, []domain.KnowledgeImage, []string, error) {
	cache := indexfile.NewStore(cfg.IndexCachePath)
	if cache.Exists() {
		chunks, images, err := cache.Load()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load index cache: %w", err)
		}
		logger.Info("knowledge_index_cached", "chunks", len(chunks), "images", len(images))
		return chunks, images, nil, nil
	}

	source := corpus.NewZipCorpus(cfg.KnowledgeZipPath, cfg.ChunkChars, cfg.SubjectHint)
	chunks, images, diagnostics, err := source.Load(ctx)
	if err != nil {
		return nil, nil, diagnostics, fmt.Errorf("load knowledge corpus: %w", err)
	}
	if err := cache.Save(chunks, images); err != nil {
		return nil, nil, diagnostics, fmt.Errorf("save index cache: %w", err)
	}
	logger.Info("knowledge_index_built",
		"chunks", len(chunks),
		"images", len(images),
		"diagnostics", len(diagnostics),
	)
	return chunks, images, diagnostics, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
