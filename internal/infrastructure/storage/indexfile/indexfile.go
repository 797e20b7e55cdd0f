package indexfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
	"github.com/kirillkom/exam-audit-engine/internal/core/usecase"
)

// Store persists the built retrieval index as JSON so reruns against the same
// corpus skip PDF parsing. The cached file is an internal artifact; a
// malformed one is an error, not a silent rebuild.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

type chunkRecord struct {
	ChunkID  string         `json:"chunkId"`
	Source   string         `json:"source"`
	Page     int            `json:"page"`
	Text     string         `json:"text"`
	Tokens   []string       `json:"tokens"`
	TermFreq map[string]int `json:"termFreq"`
	Length   int            `json:"length"`
}

type imageRecord struct {
	ImageID        string `json:"imageId"`
	Source         string `json:"source"`
	Page           int    `json:"page"`
	PerceptualHash string `json:"perceptualHash"`
}

type indexFile struct {
	Chunks []chunkRecord `json:"chunks"`
	Images []imageRecord `json:"images"`
}

func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

func (s *Store) Save(chunks []domain.Chunk, images []domain.KnowledgeImage) error {
	file := indexFile{
		Chunks: make([]chunkRecord, 0, len(chunks)),
		Images: make([]imageRecord, 0, len(images)),
	}
	for _, c := range chunks {
		tokens := make([]string, 0, len(c.Tokens))
		for t := range c.Tokens {
			tokens = append(tokens, t)
		}
		sort.Strings(tokens)
		file.Chunks = append(file.Chunks, chunkRecord{
			ChunkID:  c.ID,
			Source:   c.Source,
			Page:     c.Page,
			Text:     c.Text,
			Tokens:   tokens,
			TermFreq: c.TermFreq,
			Length:   c.Length,
		})
	}
	for _, img := range images {
		file.Images = append(file.Images, imageRecord{
			ImageID:        img.ID,
			Source:         img.Source,
			Page:           img.Page,
			PerceptualHash: img.PerceptualHash,
		})
	}

	raw, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode index cache: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create index cache dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write index cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace index cache: %w", err)
	}
	return nil
}

func (s *Store) Load() ([]domain.Chunk, []domain.KnowledgeImage, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("read index cache %s: %w", s.path, err)
	}
	var file indexFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "parse index cache",
			fmt.Errorf("%s: %w", s.path, err))
	}

	chunks := make([]domain.Chunk, 0, len(file.Chunks))
	for _, rec := range file.Chunks {
		if len(rec.Tokens) == 0 || len(rec.TermFreq) == 0 || rec.Length == 0 {
			// Derived fields missing from an older cache get recomputed
			// from the stored text.
			rebuilt, ok := usecase.BuildChunk(rec.ChunkID, rec.Source, rec.Page, rec.Text)
			if ok {
				chunks = append(chunks, rebuilt)
			}
			continue
		}
		tokens := make(map[string]struct{}, len(rec.Tokens))
		for _, t := range rec.Tokens {
			tokens[t] = struct{}{}
		}
		chunks = append(chunks, domain.Chunk{
			ID:       rec.ChunkID,
			Source:   rec.Source,
			Page:     rec.Page,
			Text:     rec.Text,
			Tokens:   tokens,
			TermFreq: rec.TermFreq,
			Length:   rec.Length,
		})
	}

	images := make([]domain.KnowledgeImage, 0, len(file.Images))
	for _, rec := range file.Images {
		images = append(images, domain.KnowledgeImage{
			ID:             rec.ImageID,
			Source:         rec.Source,
			Page:           rec.Page,
			PerceptualHash: rec.PerceptualHash,
		})
	}
	return chunks, images, nil
}
