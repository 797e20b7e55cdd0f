package usecase

import (
	"reflect"
	"testing"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

func cleanQuestion() domain.Question {
	return domain.Question{
		ID:           "q1",
		QuestionText: "Welche Aussage zur glomerulären Filtration ist richtig?",
		Answers: []domain.Answer{
			{ExternalIndex: 1, Text: "Sie steigt bei Vasokonstriktion"},
			{ExternalIndex: 2, Text: "Sie hängt vom Filtrationsdruck ab"},
		},
		CorrectIndices: []int{2},
	}
}

func TestPreflightCleanQuestionPassesAllGates(t *testing.T) {
	q := cleanQuestion()
	a := PreflightAssess(&q)
	if len(a.Reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", a.Reasons)
	}
	if !a.Gates.RunOracle || !a.Gates.AllowAutoChange || a.Gates.ForceManualReview {
		t.Fatalf("unexpected gates %+v", a.Gates)
	}
	if a.QualityScore != 1 {
		t.Fatalf("expected quality 1, got %v", a.QualityScore)
	}
}

func TestPreflightMissingCorrectIndicesIsHardBlocker(t *testing.T) {
	q := cleanQuestion()
	q.CorrectIndices = nil
	a := PreflightAssess(&q)

	if !reflect.DeepEqual(a.HardBlockers, []domain.MaintenanceReason{domain.ReasonMissingCorrectIndices}) {
		t.Fatalf("expected hard blocker, got %+v", a)
	}
	if a.Gates.AllowAutoChange || !a.Gates.ForceManualReview {
		t.Fatalf("hard blocker must block auto change and force review, got %+v", a.Gates)
	}
	if a.QualityScore != 0.62 {
		t.Fatalf("expected quality 1-0.38, got %v", a.QualityScore)
	}
}

func TestPreflightFlagsPlaceholderAnswer(t *testing.T) {
	q := cleanQuestion()
	q.Answers[1].Text = "?"
	a := PreflightAssess(&q)
	if !containsReason(a.Reasons, domain.ReasonInvalidAnswerOption) {
		t.Fatalf("expected invalid answer reason, got %v", a.Reasons)
	}
}

func TestPreflightImageHintWithoutAssetIsContextBlocker(t *testing.T) {
	q := cleanQuestion()
	q.QuestionText = "Welche Struktur zeigt die Abbildung im anatomischen Schnitt?"
	a := PreflightAssess(&q)

	if !containsReason(a.ContextBlockers, domain.ReasonMissingImageAsset) {
		t.Fatalf("expected missing image asset blocker, got %+v", a)
	}
	if a.Gates.AllowAutoChange {
		t.Fatalf("context blocker must block auto change")
	}

	// The same question with an attached image is clean.
	q.ImageRefs = []string{"img_q1_0.png"}
	a = PreflightAssess(&q)
	if containsReason(a.Reasons, domain.ReasonMissingImageAsset) {
		t.Fatalf("attached image satisfies the hint, got %v", a.Reasons)
	}
}

func TestPreflightShortQuestionIsSoftBlocker(t *testing.T) {
	q := cleanQuestion()
	q.QuestionText = "EKG Befund?"
	a := PreflightAssess(&q)

	if !containsReason(a.SoftBlockers, domain.ReasonInsufficientContext) {
		t.Fatalf("expected insufficient context, got %+v", a)
	}
	// Soft blockers alone never force review.
	if a.Gates.ForceManualReview {
		t.Fatalf("soft blocker must not force review")
	}
	if a.QualityScore != 0.9 {
		t.Fatalf("expected quality 1-0.10, got %v", a.QualityScore)
	}
}

func TestPreflightUncertainSourceNote(t *testing.T) {
	q := cleanQuestion()
	q.Answers[0].Text = "vielleicht die Niere, unsicher"
	a := PreflightAssess(&q)
	if !containsReason(a.Reasons, domain.ReasonUncertainSource) {
		t.Fatalf("expected uncertain source reason, got %v", a.Reasons)
	}
}

func TestPreflightEmptyQuestionSkipsOracle(t *testing.T) {
	q := domain.Question{ID: "q1", QuestionText: "   "}
	a := PreflightAssess(&q)
	if a.Gates.RunOracle {
		t.Fatalf("blank question must skip the oracle")
	}
}

func containsReason(reasons []domain.MaintenanceReason, want domain.MaintenanceReason) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}
