package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
	"github.com/kirillkom/exam-audit-engine/internal/core/ports"
)

// RunOptions bundles the thresholds of one audit run.
type RunOptions struct {
	TopK             int
	MinScore         float64
	MaxEvidenceChars int

	TextClusterSimilarity        float64
	AbstractionClusterSimilarity float64
	ClusterPruneRatio            float64

	ImageClusterDistance   int
	KnowledgeImageDistance int

	Repeat RepeatOptions
}

// AuditRunUseCase executes the deterministic batch over one dataset:
// preflight gates, content/abstraction/image clustering, per-question
// evidence retrieval and cross-year repeat reconstruction. It sequences no
// oracle calls; that is the orchestrator's job.
type AuditRunUseCase struct {
	repo    ports.RunRepository
	dataset ports.DatasetSource
	images  ports.ImageStore
	writer  ports.ContextWriter
	index   *KnowledgeIndex
	logger  *slog.Logger
	opts    RunOptions

	corpusDiagnostics []string
}

func NewAuditRunUseCase(
	repo ports.RunRepository,
	dataset ports.DatasetSource,
	images ports.ImageStore,
	writer ports.ContextWriter,
	index *KnowledgeIndex,
	corpusDiagnostics []string,
	logger *slog.Logger,
	opts RunOptions,
) *AuditRunUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditRunUseCase{
		repo:              repo,
		dataset:           dataset,
		images:            images,
		writer:            writer,
		index:             index,
		logger:            logger,
		opts:              opts,
		corpusDiagnostics: corpusDiagnostics,
	}
}

// ExecuteRun loads the run, executes the batch and persists report,
// suggestions and dataset context.
func (uc *AuditRunUseCase) ExecuteRun(ctx context.Context, runID string) error {
	run, err := uc.repo.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("fetch run: %w", err)
	}
	if err := uc.repo.UpdateRunStatus(ctx, runID, domain.RunStatusRunning, ""); err != nil {
		return fmt.Errorf("set status=running: %w", err)
	}

	dataset, suggestions, err := uc.executeBatch(ctx, run)
	if err != nil {
		if failErr := uc.repo.UpdateRunStatus(ctx, runID, domain.RunStatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveReport(ctx, runID, &dataset.Report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if err := uc.repo.SaveSuggestions(ctx, runID, suggestions); err != nil {
		return fmt.Errorf("save suggestions: %w", err)
	}
	if uc.writer != nil {
		if err := uc.writer.WriteContext(ctx, runID, dataset); err != nil {
			return fmt.Errorf("write dataset context: %w", err)
		}
	}
	if err := uc.repo.UpdateRunStatus(ctx, runID, domain.RunStatusCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

func (uc *AuditRunUseCase) executeBatch(ctx context.Context, run *domain.AuditRun) (*domain.DatasetContext, map[string]domain.RepeatSuggestion, error) {
	questions, err := uc.dataset.LoadQuestions(ctx, run.DatasetPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load dataset: %w", err)
	}
	if len(questions) == 0 {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "load dataset", fmt.Errorf("no questions in %s", run.DatasetPath))
	}

	uc.logger.Info("audit_run_started", "run_id", run.ID, "questions", len(questions))

	dataset, suggestions := uc.buildDatasetContext(run.ID, questions)
	uc.logger.Info("audit_run_context_built",
		"run_id", run.ID,
		"content_clusters", dataset.Report.ContentClusters,
		"repeat_suggestions", dataset.Report.Repeat.Suggestions,
	)
	return dataset, suggestions, nil
}

// buildDatasetContext is the pure batch core; it touches no external systems.
func (uc *AuditRunUseCase) buildDatasetContext(runID string, questions []domain.Question) (*domain.DatasetContext, map[string]domain.RepeatSuggestion) {
	report := domain.RunReport{
		TotalQuestions:     len(questions),
		MaintenanceReasons: make(map[string]int),
		Diagnostics:        append([]string(nil), uc.corpusDiagnostics...),
	}

	content := ClusterQuestionContent(questions, uc.opts.TextClusterSimilarity, uc.opts.ClusterPruneRatio)
	abstractions := make(map[string]string, len(questions))
	for i := range questions {
		if questions[i].PriorAudit != nil {
			abstractions[questions[i].ID] = questions[i].PriorAudit.AbstractionSummary
		}
	}
	abstraction := ClusterAbstractions(questions, abstractions, uc.opts.AbstractionClusterSimilarity, uc.opts.ClusterPruneRatio)
	report.ContentClusters = len(content.ClusterMembers)
	report.AbstractionCluster = len(abstraction.ClusterMembers)

	var imageClusters domain.ImageClusterSet
	knowledgeMatches := map[string][]domain.QuestionImageMatch{}
	if uc.images != nil {
		entries := uc.images.Entries()
		imageClusters = BuildImageClusters(entries, uc.opts.ImageClusterDistance)
		report.ImageClusters = len(imageClusters.Clusters)
		if uc.index != nil {
			knowledgeMatches = MatchKnowledgeImages(entries, uc.index, uc.opts.KnowledgeImageDistance)
		}
	}

	suggestions, repeatSummary := ComputeRepeatSuggestions(questions, uc.opts.Repeat)
	report.Repeat = repeatSummary

	contexts := make([]domain.QuestionContext, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		qc := domain.QuestionContext{
			QuestionID:           q.ID,
			Preflight:            PreflightAssess(q),
			ContentClusterID:     content.QuestionToCluster[q.ID],
			AbstractionClusterID: abstraction.QuestionToCluster[q.ID],
			ImageClusterIDs:      imageClusters.QuestionToClusters[q.ID],
			KnowledgeImages:      knowledgeMatches[q.ID],
		}
		if peers := content.ClusterMembers[qc.ContentClusterID]; len(peers) > 1 {
			qc.ContentClusterPeers = peers
		}
		if uc.images != nil {
			qc.Images, qc.MissingImageRefs = PrepareQuestionImages(uc.images, q)
		}

		for _, reason := range qc.Preflight.Reasons {
			report.MaintenanceReasons[string(reason)]++
		}
		if !qc.Preflight.Gates.RunOracle {
			report.Preflight.OracleSkipped++
		}
		if !qc.Preflight.Gates.AllowAutoChange {
			report.Preflight.AutoChangeBlocked++
		}
		if qc.Preflight.Gates.ForceManualReview {
			report.Preflight.ForcedReview++
		}

		if uc.index != nil {
			evidence, quality := uc.index.Retrieve(BuildQueryText(q), uc.opts.TopK, uc.opts.MinScore, uc.opts.MaxEvidenceChars)
			qc.Evidence = evidence
			qc.RetrievalQuality = quality
			if len(evidence) > 0 {
				report.EvidenceQuestions++
			}
		}

		if s, ok := suggestions[q.ID]; ok {
			suggestion := s
			qc.RepeatSuggestion = &suggestion
		}

		contexts = append(contexts, qc)
	}

	return &domain.DatasetContext{
		RunID:     runID,
		Questions: contexts,
		Report:    report,
	}, suggestions
}
