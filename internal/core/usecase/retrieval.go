package usecase

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

// BM25 parameters tuned for short exam questions against textbook chunks.
const (
	bm25K1 = 1.4
	bm25B  = 0.72

	// Diversity bonus applied to candidates from a source that has not yet
	// contributed a selected chunk.
	diversityBonus = 0.12

	// Minimum remaining character budget worth filling with a truncated
	// snippet; below this the selection loop stops instead.
	truncationFloor = 220

	// Slope of the score-to-quality mapping 1 - exp(-slope * meanScore).
	qualitySlope = 0.35

	maxImageMatches = 8
)

// KnowledgeIndex answers ranked, budget-constrained, source-diverse evidence
// queries over an immutable chunk collection. Rebuilding requires full
// reconstruction; there is no incremental update.
type KnowledgeIndex struct {
	chunks []domain.Chunk
	images []domain.KnowledgeImage

	docCount int
	avgLen   float64
	docFreq  map[string]int
}

// NewKnowledgeIndex derives document statistics at construction. An empty
// chunk collection is a fatal construction error.
func NewKnowledgeIndex(chunks []domain.Chunk, images []domain.KnowledgeImage) (*KnowledgeIndex, error) {
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyCorpus, "build knowledge index", errors.New("zero chunks"))
	}

	totalLen := 0
	docFreq := make(map[string]int)
	for _, c := range chunks {
		totalLen += c.Length
		for t := range c.Tokens {
			docFreq[t]++
		}
	}

	return &KnowledgeIndex{
		chunks:   chunks,
		images:   images,
		docCount: len(chunks),
		avgLen:   float64(totalLen) / float64(len(chunks)),
		docFreq:  docFreq,
	}, nil
}

// BuildChunk tokenizes one corpus text into an index-ready chunk. ok is false
// when the text yields no tokens.
func BuildChunk(id, source string, page int, text string) (domain.Chunk, bool) {
	tokens := retrievalTokens(text)
	if len(tokens) == 0 {
		return domain.Chunk{}, false
	}
	tf := termFrequency(tokens)
	length := 0
	for _, n := range tf {
		length += n
	}
	if length < 1 {
		length = 1
	}
	return domain.Chunk{
		ID:       id,
		Source:   source,
		Page:     page,
		Text:     text,
		Tokens:   toSet(tokens),
		TermFreq: tf,
		Length:   length,
	}, true
}

// Chunks exposes the ingested chunks for persistence; callers must not
// mutate them.
func (idx *KnowledgeIndex) Chunks() []domain.Chunk { return idx.chunks }

// Images exposes the ingested knowledge images for persistence.
func (idx *KnowledgeIndex) Images() []domain.KnowledgeImage { return idx.images }

// DocCount reports the number of indexed chunks (always >= 1).
func (idx *KnowledgeIndex) DocCount() int { return idx.docCount }

type scoredChunk struct {
	score float64
	chunk *domain.Chunk
}

// Retrieve ranks chunks sharing at least one query token with BM25, then
// performs diversity-aware greedy selection under the character budget.
// The returned quality maps the mean selected score into [0,1); an empty
// query or empty selection yields an explicit empty result with quality 0.
func (idx *KnowledgeIndex) Retrieve(queryText string, topK int, minScore float64, maxChars int) ([]domain.EvidenceChunk, float64) {
	queryTokens := retrievalTokens(queryText)
	if len(queryTokens) == 0 || topK <= 0 {
		return nil, 0
	}
	unique := toSet(queryTokens)

	scored := make([]scoredChunk, 0, 32)
	for i := range idx.chunks {
		chunk := &idx.chunks[i]
		score := 0.0
		matched := false
		for term := range unique {
			tf := chunk.TermFreq[term]
			if tf <= 0 {
				continue
			}
			matched = true
			df := idx.docFreq[term]
			idf := math.Log((float64(idx.docCount)-float64(df)+0.5)/(float64(df)+0.5) + 1.0)
			denom := float64(tf) + bm25K1*(1.0-bm25B+bm25B*float64(chunk.Length)/idx.avgLen)
			score += idf * (float64(tf) * (bm25K1 + 1.0)) / denom
		}
		if matched && score >= minScore {
			scored = append(scored, scoredChunk{score: score, chunk: chunk})
		}
	}
	if len(scored) == 0 {
		return nil, 0
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	pool := topK * 6
	if pool < 1 {
		pool = 1
	}
	if pool > len(scored) {
		pool = len(scored)
	}
	candidates := scored[:pool]

	selected := make([]domain.EvidenceChunk, 0, topK)
	selectedSources := make(map[string]struct{})
	usedChars := 0
	totalScore := 0.0

	remainingCandidates := append([]scoredChunk(nil), candidates...)
	for len(remainingCandidates) > 0 && len(selected) < topK {
		bestIdx := 0
		bestValue := math.Inf(-1)
		for i, cand := range remainingCandidates {
			value := cand.score
			if _, seen := selectedSources[cand.chunk.Source]; !seen {
				value += diversityBonus
			}
			if value > bestValue {
				bestValue = value
				bestIdx = i
			}
		}

		cand := remainingCandidates[bestIdx]
		remainingCandidates = append(remainingCandidates[:bestIdx], remainingCandidates[bestIdx+1:]...)

		snippet := strings.TrimSpace(cand.chunk.Text)
		if snippet == "" {
			continue
		}
		remaining := maxChars - usedChars
		if remaining <= 0 {
			break
		}
		if len(snippet) > remaining {
			if remaining < truncationFloor {
				break
			}
			snippet = truncateAtWord(snippet, remaining)
		}

		selected = append(selected, domain.EvidenceChunk{
			ChunkID: cand.chunk.ID,
			Source:  cand.chunk.Source,
			Page:    cand.chunk.Page,
			Score:   round4(cand.score),
			Text:    snippet,
		})
		usedChars += len(snippet)
		totalScore += cand.score
		selectedSources[cand.chunk.Source] = struct{}{}
	}

	if len(selected) == 0 {
		return nil, 0
	}
	meanScore := totalScore / float64(len(selected))
	quality := round4(1.0 - math.Exp(-qualitySlope*meanScore))
	return selected, quality
}

// FindSimilarImages returns up to eight knowledge images within the Hamming
// distance limit, sorted by ascending distance, ties broken by ingestion
// order.
func (idx *KnowledgeIndex) FindSimilarImages(perceptualHash string, maxDistance int) []domain.KnowledgeImageMatch {
	type hit struct {
		dist  int
		order int
		image *domain.KnowledgeImage
	}
	hits := make([]hit, 0, maxImageMatches)
	for i := range idx.images {
		dist := domain.HammingDistance(perceptualHash, idx.images[i].PerceptualHash)
		if dist <= maxDistance {
			hits = append(hits, hit{dist: dist, order: i, image: &idx.images[i]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if len(hits) > maxImageMatches {
		hits = hits[:maxImageMatches]
	}
	out := make([]domain.KnowledgeImageMatch, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.KnowledgeImageMatch{
			ImageID:         h.image.ID,
			Source:          h.image.Source,
			Page:            h.image.Page,
			HammingDistance: h.dist,
		})
	}
	return out
}

// BuildQueryText joins question text, explanation and answer texts into the
// evidence retrieval query.
func BuildQueryText(q *domain.Question) string {
	parts := make([]string, 0, 2+len(q.Answers))
	if q.QuestionText != "" {
		parts = append(parts, q.QuestionText)
	}
	if q.ExplanationText != "" {
		parts = append(parts, q.ExplanationText)
	}
	for _, a := range q.Answers {
		if a.Text != "" {
			parts = append(parts, a.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// truncateAtWord cuts at the last word boundary within limit bytes and
// appends an ellipsis marker.
func truncateAtWord(s string, limit int) string {
	for limit > 0 && !isRuneStart(s[limit]) {
		limit--
	}
	cut := s[:limit]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + " …"
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
