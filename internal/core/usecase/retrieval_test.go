package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

func mustChunk(t *testing.T, id, source string, page int, text string) domain.Chunk {
	t.Helper()
	chunk, ok := BuildChunk(id, source, page, text)
	if !ok {
		t.Fatalf("expected tokenizable chunk for %q", id)
	}
	return chunk
}

func mustIndex(t *testing.T, chunks []domain.Chunk, images []domain.KnowledgeImage) *KnowledgeIndex {
	t.Helper()
	idx, err := NewKnowledgeIndex(chunks, images)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return idx
}

func TestNewKnowledgeIndexRejectsEmptyCorpus(t *testing.T) {
	_, err := NewKnowledgeIndex(nil, nil)
	if !domain.IsKind(err, domain.ErrEmptyCorpus) {
		t.Fatalf("expected empty corpus error, got %v", err)
	}
}

func TestRetrieveRanksMatchingChunksFirst(t *testing.T) {
	idx := mustIndex(t, []domain.Chunk{
		mustChunk(t, "c1", "biologie.pdf", 1, "Mitochondrien erzeugen ATP durch oxidative Phosphorylierung."),
		mustChunk(t, "c2", "biologie.pdf", 2, "Der Zellkern speichert die DNA der Zelle."),
		mustChunk(t, "c3", "biologie.pdf", 3, "Ribosomen bauen Proteine aus Aminosäuren zusammen."),
	}, nil)

	evidence, quality := idx.Retrieve("Wo wird ATP erzeugt?", 3, 0.01, 4000)
	if len(evidence) == 0 {
		t.Fatalf("expected at least one evidence chunk")
	}
	if evidence[0].ChunkID != "c1" {
		t.Fatalf("expected c1 first, got %s", evidence[0].ChunkID)
	}
	if quality <= 0 || quality >= 1 {
		t.Fatalf("expected quality in (0,1), got %v", quality)
	}
}

func TestRetrieveScoresRepeatedTermsHigher(t *testing.T) {
	// Same length, same vocabulary size; c1 mentions the query term twice.
	idx := mustIndex(t, []domain.Chunk{
		mustChunk(t, "c1", "s", 1, "herz herz kammer klappe ventil druck"),
		mustChunk(t, "c2", "s", 2, "herz lunge kammer klappe ventil druck"),
	}, nil)

	evidence, _ := idx.Retrieve("herz", 2, 0, 4000)
	if len(evidence) != 2 {
		t.Fatalf("expected both chunks, got %d", len(evidence))
	}
	if evidence[0].ChunkID != "c1" {
		t.Fatalf("expected higher term frequency to rank first, got %s", evidence[0].ChunkID)
	}
	if evidence[0].Score <= evidence[1].Score {
		t.Fatalf("expected strictly decreasing scores, got %v then %v", evidence[0].Score, evidence[1].Score)
	}
}

func TestRetrievePrefersUnseenSources(t *testing.T) {
	text := "mitochondrien erzeugen atp energie für die zelle"
	idx := mustIndex(t, []domain.Chunk{
		mustChunk(t, "a1", "lehrbuch_a.pdf", 1, text),
		mustChunk(t, "a2", "lehrbuch_a.pdf", 2, text),
		mustChunk(t, "b1", "lehrbuch_b.pdf", 1, text),
	}, nil)

	evidence, _ := idx.Retrieve("mitochondrien atp", 2, 0, 4000)
	if len(evidence) != 2 {
		t.Fatalf("expected two chunks, got %d", len(evidence))
	}
	sources := map[string]bool{}
	for _, e := range evidence {
		sources[e.Source] = true
	}
	if len(sources) != 2 {
		t.Fatalf("expected two distinct sources with equal scores, got %v", sources)
	}
}

func TestRetrieveStopsBelowTruncationFloor(t *testing.T) {
	long := strings.Repeat("mitochondrien atp zellatmung energie ", 20)
	idx := mustIndex(t, []domain.Chunk{
		mustChunk(t, "c1", "s", 1, long),
	}, nil)

	evidence, quality := idx.Retrieve("mitochondrien", 1, 0, 100)
	if len(evidence) != 0 || quality != 0 {
		t.Fatalf("expected empty result under a tiny budget, got %d chunks quality %v", len(evidence), quality)
	}
}

func TestRetrieveTruncatesAtWordBoundary(t *testing.T) {
	long := strings.Repeat("mitochondrien atp zellatmung energie ", 20)
	idx := mustIndex(t, []domain.Chunk{
		mustChunk(t, "c1", "s", 1, long),
	}, nil)

	evidence, _ := idx.Retrieve("mitochondrien", 1, 0, 300)
	if len(evidence) != 1 {
		t.Fatalf("expected one truncated chunk, got %d", len(evidence))
	}
	if !strings.HasSuffix(evidence[0].Text, "…") {
		t.Fatalf("expected ellipsis marker, got %q", evidence[0].Text)
	}
	if strings.Contains(evidence[0].Text, "  ") {
		t.Fatalf("unexpected double space in truncated snippet")
	}
}

func TestRetrieveEmptyQueryYieldsNothing(t *testing.T) {
	idx := mustIndex(t, []domain.Chunk{
		mustChunk(t, "c1", "s", 1, "irgendein inhalt"),
	}, nil)

	if evidence, quality := idx.Retrieve("", 3, 0, 4000); evidence != nil || quality != 0 {
		t.Fatalf("expected empty result for empty query")
	}
	if evidence, quality := idx.Retrieve("???", 3, 0, 4000); evidence != nil || quality != 0 {
		t.Fatalf("expected empty result for tokenless query")
	}
}

func TestFindSimilarImagesOrdersByDistanceAndCaps(t *testing.T) {
	images := make([]domain.KnowledgeImage, 0, 12)
	// Ten identical hashes plus one near and one far.
	for i := 0; i < 10; i++ {
		images = append(images, domain.KnowledgeImage{ID: "same", PerceptualHash: "0000000000000000"})
	}
	images = append(images,
		domain.KnowledgeImage{ID: "near", PerceptualHash: "0000000000000003"},
		domain.KnowledgeImage{ID: "far", PerceptualHash: "ffffffffffffffff"},
	)
	idx := mustIndex(t, []domain.Chunk{mustChunk(t, "c1", "s", 1, "platzhalter inhalt")}, images)

	matches := idx.FindSimilarImages("0000000000000000", 8)
	if len(matches) != 8 {
		t.Fatalf("expected cap of 8 matches, got %d", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].HammingDistance < matches[i-1].HammingDistance {
			t.Fatalf("expected ascending distances, got %v", matches)
		}
	}
	for _, m := range matches {
		if m.ImageID == "far" {
			t.Fatalf("far image must not match within distance 8")
		}
	}
}

func TestBuildQueryTextJoinsQuestionParts(t *testing.T) {
	q := &domain.Question{
		QuestionText:    "Wo wird ATP erzeugt?",
		ExplanationText: "Zellatmung",
		Answers: []domain.Answer{
			{ExternalIndex: 1, Text: "Mitochondrien"},
			{ExternalIndex: 2, Text: ""},
			{ExternalIndex: 3, Text: "Zellkern"},
		},
	}
	got := BuildQueryText(q)
	want := "Wo wird ATP erzeugt?\nZellatmung\nMitochondrien\nZellkern"
	if got != want {
		t.Fatalf("unexpected query text:\n%q\nwant\n%q", got, want)
	}
}
