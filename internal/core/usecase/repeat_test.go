package usecase

import (
	"reflect"
	"testing"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

func repeatOpts() RepeatOptions {
	return RepeatOptions{
		MinSimilarity:       0.72,
		MinAnchorConfidence: 0.82,
	}
}

func anchorQuestion(id, year string) domain.Question {
	return domain.Question{
		ID:           id,
		QuestionText: "Welche Struktur produziert das meiste ATP in der Zelle?",
		Answers: []domain.Answer{
			{ExternalIndex: 1, Text: "Zellkern"},
			{ExternalIndex: 2, Text: "Mitochondrium"},
			{ExternalIndex: 3, Text: "Ribosom"},
		},
		CorrectIndices: []int{2},
		ExamYear:       year,
		PriorAudit: &domain.PriorAudit{
			Status:     domain.AuditStatusCompleted,
			Confidence: 0.93,
		},
	}
}

func degradedCopy(id, year string) domain.Question {
	q := anchorQuestion(id, year)
	// Same options under different external indices, no recorded answer.
	q.Answers = []domain.Answer{
		{ExternalIndex: 4, Text: "Mitochondrium"},
		{ExternalIndex: 5, Text: "Zellkern"},
		{ExternalIndex: 6, Text: "Ribosom"},
	}
	q.CorrectIndices = nil
	q.PriorAudit = &domain.PriorAudit{
		Status:     domain.AuditStatusCompleted,
		Confidence: 0.4,
		Maintenance: domain.Maintenance{
			NeedsMaintenance: true,
			Severity:         2,
			Reasons:          []string{"missing_correct_indices"},
		},
	}
	return q
}

func TestComputeRepeatSuggestionsProjectsAnchorAnswer(t *testing.T) {
	questions := []domain.Question{
		anchorQuestion("q-anchor", "2019"),
		degradedCopy("q-target", "2021"),
	}

	suggestions, summary := ComputeRepeatSuggestions(questions, repeatOpts())

	s, ok := suggestions["q-target"]
	if !ok {
		t.Fatalf("expected suggestion for degraded duplicate, got %v", suggestions)
	}
	if s.AnchorQuestionID != "q-anchor" {
		t.Fatalf("expected q-anchor as anchor, got %s", s.AnchorQuestionID)
	}
	if !reflect.DeepEqual(s.SuggestedCorrectIndices, []int{4}) {
		t.Fatalf("expected projected externalIndex 4, got %v", s.SuggestedCorrectIndices)
	}
	if !reflect.DeepEqual(s.MatchedCorrectTexts, []string{"mitochondrium"}) {
		t.Fatalf("expected normalized matched text, got %v", s.MatchedCorrectTexts)
	}
	if s.Confidence != 0.93 {
		t.Fatalf("expected anchor confidence, got %v", s.Confidence)
	}
	if _, selfSuggested := suggestions["q-anchor"]; selfSuggested {
		t.Fatalf("anchor must never receive a suggestion from itself")
	}
	if summary.CrossYearClusters != 1 || summary.Suggestions != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestComputeRepeatSuggestionsRequiresCrossYear(t *testing.T) {
	questions := []domain.Question{
		anchorQuestion("q1", "2020"),
		degradedCopy("q2", "2020"),
	}

	suggestions, summary := ComputeRepeatSuggestions(questions, repeatOpts())
	if len(suggestions) != 0 {
		t.Fatalf("same-year duplicates must not yield suggestions, got %v", suggestions)
	}
	if summary.ClustersConsidered != 1 || summary.CrossYearClusters != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestComputeRepeatSuggestionsCountsAnchorlessClusters(t *testing.T) {
	a := degradedCopy("q1", "2019")
	b := degradedCopy("q2", "2021")
	suggestions, summary := ComputeRepeatSuggestions([]domain.Question{a, b}, repeatOpts())

	if len(suggestions) != 0 {
		t.Fatalf("cluster without anchor must not suggest, got %v", suggestions)
	}
	if summary.AnchorlessClusters != 1 {
		t.Fatalf("expected one anchorless cluster, got %+v", summary)
	}
}

func TestComputeRepeatSuggestionsSkipsHealthyTargets(t *testing.T) {
	healthy := anchorQuestion("q-healthy", "2021")
	questions := []domain.Question{
		anchorQuestion("q-anchor", "2019"),
		healthy,
	}
	suggestions, _ := ComputeRepeatSuggestions(questions, repeatOpts())
	if len(suggestions) != 0 {
		t.Fatalf("high-confidence clean duplicates need no suggestion, got %v", suggestions)
	}
}

func TestIsQualifyingAnchorChecks(t *testing.T) {
	q := anchorQuestion("q", "2019")
	if !isQualifyingAnchor(&q, 0.82) {
		t.Fatalf("expected qualifying anchor")
	}

	noAudit := q
	noAudit.PriorAudit = nil
	if isQualifyingAnchor(&noAudit, 0.82) {
		t.Fatalf("question without audit must not anchor")
	}

	flagged := anchorQuestion("q", "2019")
	flagged.PriorAudit.Maintenance.NeedsMaintenance = true
	if isQualifyingAnchor(&flagged, 0.82) {
		t.Fatalf("maintenance-flagged question must not anchor")
	}

	lowConf := anchorQuestion("q", "2019")
	lowConf.PriorAudit.Confidence = 0.5
	if isQualifyingAnchor(&lowConf, 0.82) {
		t.Fatalf("low-confidence question must not anchor")
	}

	noAnswer := anchorQuestion("q", "2019")
	noAnswer.CorrectIndices = nil
	if isQualifyingAnchor(&noAnswer, 0.82) {
		t.Fatalf("question without correct answers must not anchor")
	}
}

func TestCorrectAnswersPrefersIndicesOverFlags(t *testing.T) {
	q := domain.Question{
		Answers: []domain.Answer{
			{ExternalIndex: 1, Text: "A", IsCorrect: true},
			{ExternalIndex: 2, Text: "B"},
		},
		CorrectIndices: []int{2},
	}
	got := correctAnswers(&q)
	if len(got) != 1 || got[0].ExternalIndex != 2 {
		t.Fatalf("expected correctIndices to win, got %v", got)
	}

	q.CorrectIndices = nil
	got = correctAnswers(&q)
	if len(got) != 1 || got[0].ExternalIndex != 1 {
		t.Fatalf("expected isCorrect fallback, got %v", got)
	}
}

func TestMapAnchorTextsToIndicesSortsAndDedupes(t *testing.T) {
	target := domain.Question{
		Answers: []domain.Answer{
			{ExternalIndex: 7, Text: "  Beta  Blocker "},
			{ExternalIndex: 3, Text: "beta blocker"},
			{ExternalIndex: 5, Text: "diuretikum"},
		},
	}
	got := mapAnchorTextsToIndices(&target, []string{"beta blocker"})
	if !reflect.DeepEqual(got, []int{3, 7}) {
		t.Fatalf("expected sorted indices [3 7], got %v", got)
	}
}
