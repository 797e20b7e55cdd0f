package usecase

import (
	"sort"
	"strings"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

// RepeatOptions controls cross-year duplicate detection.
type RepeatOptions struct {
	MinSimilarity       float64
	MinAnchorConfidence float64

	// Accepted for configuration compatibility but not threaded into the
	// detection logic; see DESIGN.md.
	MinAnchorConsensus int
	MinMatchRatio      float64
}

// ComputeRepeatSuggestions finds clusters of questions repeated across exam
// years, picks the most trustworthy member as anchor, and projects its
// correct-answer texts onto maintenance-flagged or low-confidence duplicates.
// A cluster without a qualifying anchor, or a target without a textual match,
// yields no suggestion rather than a guess.
func ComputeRepeatSuggestions(questions []domain.Question, opts RepeatOptions) (map[string]domain.RepeatSuggestion, domain.RepeatSummary) {
	sets := make([]map[string]struct{}, len(questions))
	for i := range questions {
		sets[i] = repeatTokenSet(&questions[i])
	}

	// Repeat detection deliberately uses the plain-Jaccard variant; option
	// ordering and phrasing vary little between repeated exam questions, so
	// idf weighting buys nothing here.
	labels := clusterBySimilarity(sets, opts.MinSimilarity, clusterOptions{weighted: false})

	clusterMembers := make(map[int][]int)
	clusterOrder := make([]int, 0)
	for i, label := range labels {
		if _, seen := clusterMembers[label]; !seen {
			clusterOrder = append(clusterOrder, label)
		}
		clusterMembers[label] = append(clusterMembers[label], i)
	}

	suggestions := make(map[string]domain.RepeatSuggestion)
	var summary domain.RepeatSummary

	for _, label := range clusterOrder {
		members := clusterMembers[label]
		if len(members) <= 1 {
			continue
		}
		summary.ClustersConsidered++

		years := make(map[string]struct{})
		for _, m := range members {
			if y := questions[m].ExamYear; y != "" {
				years[y] = struct{}{}
			}
		}
		if len(years) < 2 {
			continue
		}
		summary.CrossYearClusters++

		anchors := make([]int, 0, len(members))
		for _, m := range members {
			if isQualifyingAnchor(&questions[m], opts.MinAnchorConfidence) {
				anchors = append(anchors, m)
			}
		}
		if len(anchors) == 0 {
			summary.AnchorlessClusters++
			continue
		}
		// Highest recorded confidence wins; stable sort keeps scan order on ties.
		sort.SliceStable(anchors, func(i, j int) bool {
			return questions[anchors[i]].AuditConfidence() > questions[anchors[j]].AuditConfidence()
		})
		anchorIdx := anchors[0]
		anchor := &questions[anchorIdx]
		anchorTexts := anchorCorrectTexts(anchor)

		for _, m := range members {
			if m == anchorIdx {
				continue
			}
			target := &questions[m]
			if target.ID == "" {
				continue
			}
			lowQuality := target.NeedsMaintenance() || target.AuditConfidence() < opts.MinAnchorConfidence
			if !lowQuality {
				continue
			}
			indices := mapAnchorTextsToIndices(target, anchorTexts)
			if len(indices) == 0 {
				continue
			}
			suggestions[target.ID] = domain.RepeatSuggestion{
				ClusterID:               label,
				AnchorQuestionID:        anchor.ID,
				Confidence:              round4(anchor.AuditConfidence()),
				SuggestedCorrectIndices: indices,
				MatchedCorrectTexts:     anchorTexts,
			}
			summary.Suggestions++
		}
	}

	return suggestions, summary
}

func repeatTokenSet(q *domain.Question) map[string]struct{} {
	parts := []string{q.QuestionText, q.ExplanationText}
	for _, a := range q.Answers {
		parts = append(parts, a.Text)
	}
	return clusterTokenSet(strings.Join(parts, "\n"))
}

// isQualifyingAnchor accepts completed, maintenance-clean, high-confidence
// members with at least one recorded correct answer.
func isQualifyingAnchor(q *domain.Question, minConfidence float64) bool {
	if q.PriorAudit == nil || q.PriorAudit.Status != domain.AuditStatusCompleted {
		return false
	}
	if q.NeedsMaintenance() {
		return false
	}
	if q.AuditConfidence() < minConfidence {
		return false
	}
	return len(correctAnswers(q)) > 0
}

// correctAnswers resolves the recorded correct options, preferring explicit
// correctIndices over per-answer flags.
func correctAnswers(q *domain.Question) []domain.Answer {
	if len(q.CorrectIndices) > 0 {
		wanted := make(map[int]struct{}, len(q.CorrectIndices))
		for _, idx := range q.CorrectIndices {
			wanted[idx] = struct{}{}
		}
		out := make([]domain.Answer, 0, len(wanted))
		for _, a := range q.Answers {
			if _, ok := wanted[a.ExternalIndex]; ok {
				out = append(out, a)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	var out []domain.Answer
	for _, a := range q.Answers {
		if a.IsCorrect {
			out = append(out, a)
		}
	}
	return out
}

func anchorCorrectTexts(q *domain.Question) []string {
	answers := correctAnswers(q)
	texts := make([]string, 0, len(answers))
	for _, a := range answers {
		if t := normalizeAnswerText(a.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}

// mapAnchorTextsToIndices finds target answers whose normalized text matches
// any anchor correct text and returns their sorted, deduplicated
// externalIndex values.
func mapAnchorTextsToIndices(target *domain.Question, anchorTexts []string) []int {
	if len(anchorTexts) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(anchorTexts))
	for _, t := range anchorTexts {
		wanted[t] = struct{}{}
	}
	seen := make(map[int]struct{})
	out := make([]int, 0, 2)
	for _, a := range target.Answers {
		t := normalizeAnswerText(a.Text)
		if t == "" {
			continue
		}
		if _, ok := wanted[t]; !ok {
			continue
		}
		if _, dup := seen[a.ExternalIndex]; dup {
			continue
		}
		seen[a.ExternalIndex] = struct{}{}
		out = append(out, a.ExternalIndex)
	}
	sort.Ints(out)
	return out
}

// normalizeAnswerText case-folds and collapses whitespace so option-order and
// formatting differences between years do not break text matching.
func normalizeAnswerText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
