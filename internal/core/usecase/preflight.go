package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

var (
	imageHintRe     = regexp.MustCompile(`(?i)\b(bild|abbildung|grafik|schema|figure)\b`)
	uncertainNoteRe = regexp.MustCompile(`(?i)\b(irgendwas|vielleicht|kann\s+sich\s+jemand\s+erinnern|unsicher|notiz)\b`)
)

var (
	hardBlockers    = reasonSet(domain.ReasonMissingCorrectIndices, domain.ReasonInvalidAnswerOption)
	contextBlockers = reasonSet(domain.ReasonMissingImageAsset)
	softBlockers    = reasonSet(domain.ReasonInsufficientContext, domain.ReasonUncertainSource)
)

func reasonSet(reasons ...domain.MaintenanceReason) map[domain.MaintenanceReason]struct{} {
	out := make(map[domain.MaintenanceReason]struct{}, len(reasons))
	for _, r := range reasons {
		out[r] = struct{}{}
	}
	return out
}

// QualityMaintenanceReasons derives deterministic maintenance reasons from
// structural data-quality signals, in a fixed order.
func QualityMaintenanceReasons(q *domain.Question) []domain.MaintenanceReason {
	var reasons []domain.MaintenanceReason

	if len(q.CorrectIndices) == 0 {
		reasons = append(reasons, domain.ReasonMissingCorrectIndices)
	}

	for _, a := range q.Answers {
		text := strings.TrimSpace(a.Text)
		if text == "" || text == "?" {
			reasons = append(reasons, domain.ReasonInvalidAnswerOption)
			break
		}
	}

	if imageHintRe.MatchString(q.QuestionText) && !q.HasImages() {
		reasons = append(reasons, domain.ReasonMissingImageAsset)
	}

	if questionWordCount(q) <= 3 {
		reasons = append(reasons, domain.ReasonInsufficientContext)
	}

	blob := q.QuestionText
	for _, a := range q.Answers {
		blob += "\n" + a.Text
	}
	if uncertainNoteRe.MatchString(blob) {
		reasons = append(reasons, domain.ReasonUncertainSource)
	}

	return reasons
}

// PreflightAssess runs the deterministic pre-oracle quality check: classify
// reasons into blocker tiers, derive execution gates and a transparency
// score. Total for all inputs; never errors.
func PreflightAssess(q *domain.Question) domain.PreflightAssessment {
	reasons := QualityMaintenanceReasons(q)

	assessment := domain.PreflightAssessment{Reasons: reasons}
	for _, r := range reasons {
		switch {
		case inSet(hardBlockers, r):
			assessment.HardBlockers = append(assessment.HardBlockers, r)
		case inSet(contextBlockers, r):
			assessment.ContextBlockers = append(assessment.ContextBlockers, r)
		case inSet(softBlockers, r):
			assessment.SoftBlockers = append(assessment.SoftBlockers, r)
		}
	}

	blocked := len(assessment.HardBlockers) > 0 || len(assessment.ContextBlockers) > 0
	assessment.Gates = domain.PreflightGates{
		// Extremely malformed entries skip the oracle entirely.
		RunOracle:         strings.TrimSpace(q.QuestionText) != "" && len(q.Answers) > 0,
		AllowAutoChange:   !blocked,
		ForceManualReview: blocked,
	}

	penalty := 0.38*float64(len(assessment.HardBlockers)) +
		0.24*float64(len(assessment.ContextBlockers)) +
		0.10*float64(len(assessment.SoftBlockers))
	if penalty > 1 {
		penalty = 1
	}
	assessment.QualityScore = round4(1 - penalty)
	return assessment
}

func inSet(set map[domain.MaintenanceReason]struct{}, r domain.MaintenanceReason) bool {
	_, ok := set[r]
	return ok
}

func questionWordCount(q *domain.Question) int {
	return len(strings.Fields(strings.TrimSpace(q.QuestionText)))
}
