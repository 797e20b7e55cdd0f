package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across enqueuer/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS audit_runs (
	id TEXT PRIMARY KEY,
	dataset_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	report JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS repeat_suggestions (
	run_id TEXT NOT NULL REFERENCES audit_runs(id) ON DELETE CASCADE,
	question_id TEXT NOT NULL,
	cluster_id INTEGER NOT NULL,
	anchor_question_id TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	suggested_correct_indices JSONB NOT NULL DEFAULT '[]'::jsonb,
	matched_correct_texts JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_audit_runs_status ON audit_runs(status);
CREATE INDEX IF NOT EXISTS idx_audit_runs_created_at ON audit_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_repeat_suggestions_anchor ON repeat_suggestions(anchor_question_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) CreateRun(ctx context.Context, run *domain.AuditRun) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_runs (id, dataset_path, status, error_message, report, created_at, updated_at)
VALUES ($1,$2,$3,$4,NULL,$5,$6)
`, run.ID, run.DatasetPath, string(run.Status), run.Error, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert audit run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id string) (*domain.AuditRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, dataset_path, status, error_message, report, created_at, updated_at
FROM audit_runs
WHERE id = $1
`, id)

	var (
		run       domain.AuditRun
		status    string
		errMsg    sql.NullString
		reportRaw []byte
	)
	err := row.Scan(&run.ID, &run.DatasetPath, &status, &errMsg, &reportRaw, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get audit run", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get audit run: %w", err)
	}
	run.Status = domain.RunStatus(status)
	run.Error = errMsg.String
	if len(reportRaw) > 0 {
		var report domain.RunReport
		if err := json.Unmarshal(reportRaw, &report); err != nil {
			return nil, fmt.Errorf("decode run report: %w", err)
		}
		run.Report = &report
	}
	return &run, nil
}

func (r *RunRepository) UpdateRunStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE audit_runs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update run status", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (r *RunRepository) SaveReport(ctx context.Context, id string, report *domain.RunReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE audit_runs
SET report = $2, updated_at = $3
WHERE id = $1
`, id, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save run report: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save run report rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "save run report", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (r *RunRepository) SaveSuggestions(ctx context.Context, runID string, suggestions map[string]domain.RepeatSuggestion) error {
	if len(suggestions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin suggestions tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	// Stable insert order keeps replays and test expectations deterministic.
	questionIDs := make([]string, 0, len(suggestions))
	for qid := range suggestions {
		questionIDs = append(questionIDs, qid)
	}
	sort.Strings(questionIDs)

	for _, qid := range questionIDs {
		s := suggestions[qid]
		indicesJSON, err := json.Marshal(s.SuggestedCorrectIndices)
		if err != nil {
			return fmt.Errorf("marshal suggested indices: %w", err)
		}
		textsJSON, err := json.Marshal(s.MatchedCorrectTexts)
		if err != nil {
			return fmt.Errorf("marshal matched texts: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO repeat_suggestions (run_id, question_id, cluster_id, anchor_question_id, confidence, suggested_correct_indices, matched_correct_texts, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (run_id, question_id) DO UPDATE
SET cluster_id = EXCLUDED.cluster_id,
	anchor_question_id = EXCLUDED.anchor_question_id,
	confidence = EXCLUDED.confidence,
	suggested_correct_indices = EXCLUDED.suggested_correct_indices,
	matched_correct_texts = EXCLUDED.matched_correct_texts
`, runID, qid, s.ClusterID, s.AnchorQuestionID, s.Confidence, indicesJSON, textsJSON, now)
		if err != nil {
			return fmt.Errorf("insert repeat suggestion: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit suggestions tx: %w", err)
	}
	return nil
}
