package imagestore

import (
	"archive/zip"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"path"
	"sort"
	"strings"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/imaging"
)

// ZipStore holds the dataset's question images, loaded once from a ZIP
// archive and indexed by filename stem and by owning question.
type ZipStore struct {
	entries    []domain.QuestionImage
	byStem     map[string]domain.QuestionImage
	byQuestion map[string][]domain.QuestionImage
}

// LoadZipStore reads every image entry of the archive. Non-image entries are
// skipped silently; an unreadable archive is an error, unreadable single
// entries are not.
func LoadZipStore(zipPath string) (*ZipStore, []string, error) {
	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open image zip %s: %w", zipPath, err)
	}
	defer archive.Close()

	store := &ZipStore{
		byStem:     make(map[string]domain.QuestionImage),
		byQuestion: make(map[string][]domain.QuestionImage),
	}
	var diagnostics []string
	for _, f := range archive.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(f.Name))
		mimeType := mime.TypeByExtension(ext)
		if !strings.HasPrefix(mimeType, "image/") {
			continue
		}
		raw, err := readEntry(f)
		if err != nil {
			diagnostics = append(diagnostics, fmt.Sprintf("unreadable image %s: %v", f.Name, err))
			continue
		}
		basename := path.Base(f.Name)
		stem := strings.TrimSuffix(basename, path.Ext(basename))
		img := domain.QuestionImage{
			ArchivePath:    f.Name,
			Stem:           stem,
			QuestionID:     questionIDFromStem(stem),
			MimeType:       mimeType,
			DataURL:        fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(raw)),
			PerceptualHash: imaging.PerceptualHash(raw),
		}
		store.entries = append(store.entries, img)
	}

	sort.Slice(store.entries, func(i, j int) bool {
		return store.entries[i].Stem < store.entries[j].Stem
	})
	for _, img := range store.entries {
		store.byStem[img.Stem] = img
		if img.QuestionID != "" {
			store.byQuestion[img.QuestionID] = append(store.byQuestion[img.QuestionID], img)
		}
	}
	return store, diagnostics, nil
}

func (s *ZipStore) Entries() []domain.QuestionImage { return s.entries }

func (s *ZipStore) ByQuestion(questionID string) []domain.QuestionImage {
	return s.byQuestion[questionID]
}

func (s *ZipStore) ByStem(stem string) (domain.QuestionImage, bool) {
	img, ok := s.byStem[stem]
	return img, ok
}

// questionIDFromStem decodes the img_<questionId>_<index> naming convention.
// The trailing _<index> segment is dropped; stems without it keep everything
// after the prefix. Stems without the img_ prefix own no question.
func questionIDFromStem(stem string) string {
	rest, ok := strings.CutPrefix(stem, "img_")
	if !ok {
		return ""
	}
	if i := strings.LastIndex(rest, "_"); i > 0 {
		return rest[:i]
	}
	return rest
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
