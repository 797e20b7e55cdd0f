package corpus

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
	"github.com/kirillkom/exam-audit-engine/internal/core/usecase"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/chunking"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/exam-audit-engine/internal/infrastructure/imaging"
)

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".webp": {},
}

// ZipCorpus ingests a knowledge ZIP of PDF/TXT/MD files (plus standalone
// image files for the knowledge-image pool). Archive layout does not matter;
// files can live at the root or in subfolders.
type ZipCorpus struct {
	path        string
	splitter    *chunking.Splitter
	subjectHint string
}

func NewZipCorpus(zipPath string, chunkChars int, subjectHint string) *ZipCorpus {
	return &ZipCorpus{
		path:        zipPath,
		splitter:    chunking.NewSplitter(chunkChars),
		subjectHint: subjectHint,
	}
}

// Load parses the archive. Per-file failures are recorded as diagnostics and
// skipped; the error is non-nil only when zero usable chunks result.
func (c *ZipCorpus) Load(ctx context.Context) ([]domain.Chunk, []domain.KnowledgeImage, []string, error) {
	archive, err := zip.OpenReader(c.path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open knowledge zip %s: %w", c.path, err)
	}
	defer archive.Close()

	type entry struct {
		file           *zip.File
		lower          string
		matchesSubject bool
	}

	subjectTokens := subjectTokenSet(c.subjectHint)
	entries := make([]entry, 0, len(archive.File))
	hasSubjectOverlap := false
	for _, f := range archive.File {
		if f.FileInfo().IsDir() {
			continue
		}
		lower := strings.ToLower(f.Name)
		ext := path.Ext(lower)
		_, isImage := imageExtensions[ext]
		if ext != ".pdf" && ext != ".txt" && ext != ".md" && !isImage {
			continue
		}
		matches := true
		if len(subjectTokens) > 0 {
			matches = filenameMatchesSubject(f.Name, subjectTokens)
			hasSubjectOverlap = hasSubjectOverlap || matches
		}
		entries = append(entries, entry{file: f, lower: lower, matchesSubject: matches})
	}

	// The hint filter only engages when at least one filename matched it;
	// otherwise it would silently empty the corpus.
	applyFilter := len(subjectTokens) > 0 && hasSubjectOverlap

	var (
		chunks      []domain.Chunk
		images      []domain.KnowledgeImage
		diagnostics []string
	)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		if applyFilter && !e.matchesSubject {
			diagnostics = append(diagnostics, fmt.Sprintf("skipped by subject hint: %s", e.file.Name))
			continue
		}

		raw, err := readZipFile(e.file)
		if err != nil {
			diagnostics = append(diagnostics, fmt.Sprintf("unreadable entry %s: %v", e.file.Name, err))
			continue
		}
		basename := path.Base(e.file.Name)

		switch {
		case strings.HasSuffix(e.lower, ".pdf"):
			fileChunks, err := c.pdfChunks(raw, basename)
			if err != nil {
				diagnostics = append(diagnostics, fmt.Sprintf("unparsable pdf %s: %v", e.file.Name, err))
				continue
			}
			if len(fileChunks) == 0 {
				diagnostics = append(diagnostics, fmt.Sprintf("no extractable text: %s", e.file.Name))
			}
			chunks = append(chunks, fileChunks...)
		case strings.HasSuffix(e.lower, ".txt") || strings.HasSuffix(e.lower, ".md"):
			fileChunks := c.textChunks(string(raw), basename)
			if len(fileChunks) == 0 {
				diagnostics = append(diagnostics, fmt.Sprintf("no extractable text: %s", e.file.Name))
			}
			chunks = append(chunks, fileChunks...)
		default:
			images = append(images, domain.KnowledgeImage{
				ID:             fmt.Sprintf("%s#i%d", basename, len(images)+1),
				Source:         basename,
				Page:           0,
				PerceptualHash: imaging.PerceptualHash(raw),
			})
		}
	}

	if len(chunks) == 0 {
		return nil, nil, diagnostics, domain.WrapError(domain.ErrEmptyCorpus, "load knowledge zip",
			fmt.Errorf("no extractable chunks in %s (supported: pdf/txt/md); %d diagnostics", c.path, len(diagnostics)))
	}
	return chunks, images, diagnostics, nil
}

func (c *ZipCorpus) pdfChunks(raw []byte, source string) ([]domain.Chunk, error) {
	pages, err := pdftext.ExtractPages(raw)
	if err != nil {
		return nil, err
	}
	var out []domain.Chunk
	for _, page := range pages {
		for i, text := range c.splitter.Split(page.Text) {
			id := fmt.Sprintf("%s#p%dc%d", source, page.Number, i+1)
			if chunk, ok := usecase.BuildChunk(id, source, page.Number, text); ok {
				out = append(out, chunk)
			}
		}
	}
	return out, nil
}

func (c *ZipCorpus) textChunks(text, source string) []domain.Chunk {
	var out []domain.Chunk
	for i, part := range c.splitter.Split(text) {
		id := fmt.Sprintf("%s#t%d", source, i+1)
		if chunk, ok := usecase.BuildChunk(id, source, 0, part); ok {
			out = append(out, chunk)
		}
	}
	return out
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func subjectTokenSet(hint string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.Fields(strings.ToLower(hint)) {
		t = strings.TrimFunc(t, func(r rune) bool {
			return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == 'ä' || r == 'ö' || r == 'ü' || r == 'ß')
		})
		if len(t) >= 2 {
			out[t] = struct{}{}
		}
	}
	return out
}

func filenameMatchesSubject(name string, subjectTokens map[string]struct{}) bool {
	lower := strings.ToLower(name)
	for t := range subjectTokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
