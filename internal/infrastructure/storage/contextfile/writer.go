package contextfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

// Writer emits the per-run dataset context as one pretty-printed JSON file
// under the configured directory, named by run id.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer { return &Writer{dir: dir} }

func (w *Writer) WriteContext(ctx context.Context, runID string, dataset *domain.DatasetContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset context: %w", err)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}
	path := filepath.Join(w.dir, fmt.Sprintf("context_%s.json", runID))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write dataset context: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace dataset context: %w", err)
	}
	return nil
}
