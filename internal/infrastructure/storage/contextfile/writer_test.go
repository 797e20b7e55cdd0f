package contextfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

func TestWriteContextCreatesRunFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "contexts")
	w := NewWriter(dir)

	dataset := &domain.DatasetContext{
		RunID:  "r-1",
		Report: domain.RunReport{TotalQuestions: 3},
	}
	if err := w.WriteContext(context.Background(), "r-1", dataset); err != nil {
		t.Fatalf("WriteContext() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "context_r-1.json"))
	if err != nil {
		t.Fatalf("read context file: %v", err)
	}
	var decoded domain.DatasetContext
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode context file: %v", err)
	}
	if decoded.RunID != "r-1" || decoded.Report.TotalQuestions != 3 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
	if _, err := os.Stat(filepath.Join(dir, "context_r-1.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp file must be renamed away, stat err = %v", err)
	}
}

func TestWriteContextHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWriter(t.TempDir())
	if err := w.WriteContext(ctx, "r-1", &domain.DatasetContext{RunID: "r-1"}); err == nil {
		t.Fatalf("expected context error")
	}
}
