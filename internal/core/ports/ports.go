package ports

import (
	"context"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

// DatasetSource loads the question set under audit.
type DatasetSource interface {
	LoadQuestions(ctx context.Context, path string) ([]domain.Question, error)
}

// CorpusSource ingests the knowledge corpus. Per-item failures are returned
// as diagnostics; the error is non-nil only when zero usable chunks result.
type CorpusSource interface {
	Load(ctx context.Context) (chunks []domain.Chunk, images []domain.KnowledgeImage, diagnostics []string, err error)
}

// ImageStore serves the dataset's question images.
type ImageStore interface {
	Entries() []domain.QuestionImage
	ByQuestion(questionID string) []domain.QuestionImage
	ByStem(stem string) (domain.QuestionImage, bool)
}

// IndexCache round-trips the built retrieval index so reruns skip corpus
// parsing without losing retrieval determinism.
type IndexCache interface {
	Save(chunks []domain.Chunk, images []domain.KnowledgeImage) error
	Load() (chunks []domain.Chunk, images []domain.KnowledgeImage, err error)
	Exists() bool
}

// RunRepository persists audit runs, their reports and repeat suggestions.
type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.AuditRun) error
	GetRun(ctx context.Context, id string) (*domain.AuditRun, error)
	UpdateRunStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error
	SaveReport(ctx context.Context, id string, report *domain.RunReport) error
	SaveSuggestions(ctx context.Context, runID string, suggestions map[string]domain.RepeatSuggestion) error
}

// RunQueue hands audit runs from the enqueuing process to workers.
type RunQueue interface {
	PublishRunRequested(ctx context.Context, runID string) error
	SubscribeRunRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// ContextWriter emits the dataset context produced by a run.
type ContextWriter interface {
	WriteContext(ctx context.Context, runID string, dataset *domain.DatasetContext) error
}

// RunExecutor is the inbound port driving one audit run.
type RunExecutor interface {
	ExecuteRun(ctx context.Context, runID string) error
}
