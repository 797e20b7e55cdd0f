package domain

type AuditStatus string

const (
	AuditStatusCompleted AuditStatus = "completed"
	AuditStatusSkipped   AuditStatus = "skipped"
	AuditStatusFailed    AuditStatus = "failed"
)

// Answer carries the stable 1-based external index of an answer option.
// ExternalIndex is independent of slice position; all index-bearing fields
// on audits and suggestions refer to it, never to raw positions.
type Answer struct {
	ExternalIndex int    `json:"answerIndex"`
	Text          string `json:"text"`
	IsCorrect     bool   `json:"isCorrect,omitempty"`
}

// Question is the engine's read-only view of a dataset question.
type Question struct {
	ID              string   `json:"id"`
	QuestionText    string   `json:"questionText"`
	ExplanationText string   `json:"explanationText,omitempty"`
	Answers         []Answer `json:"answers"`
	CorrectIndices  []int    `json:"correctIndices,omitempty"`
	ExamYear        string   `json:"examYear,omitempty"`
	ImageRefs       []string `json:"imageFiles,omitempty"`
	ImageURLs       []string `json:"imageUrls,omitempty"`

	PriorAudit *PriorAudit `json:"priorAudit,omitempty"`
}

// PriorAudit is the fixed shape of an earlier oracle pass that the engine
// reads. A nil PriorAudit or a missing field means the neutral default:
// zero confidence, no maintenance flag, severity 1.
type PriorAudit struct {
	Status             AuditStatus `json:"status"`
	Confidence         float64     `json:"confidence"`
	Maintenance        Maintenance `json:"maintenance"`
	AbstractionSummary string      `json:"abstractionSummary,omitempty"`
}

type Maintenance struct {
	NeedsMaintenance bool     `json:"needsMaintenance"`
	Severity         int      `json:"severity,omitempty"`
	Reasons          []string `json:"reasons,omitempty"`
}

// AuditConfidence returns the recorded combined confidence, 0 when absent.
func (q *Question) AuditConfidence() float64 {
	if q == nil || q.PriorAudit == nil {
		return 0
	}
	return q.PriorAudit.Confidence
}

// NeedsMaintenance reports the prior maintenance flag, false when absent.
func (q *Question) NeedsMaintenance() bool {
	if q == nil || q.PriorAudit == nil {
		return false
	}
	return q.PriorAudit.Maintenance.NeedsMaintenance
}

// MaintenanceSeverity returns the recorded severity, defaulting to 1.
func (q *Question) MaintenanceSeverity() int {
	if q == nil || q.PriorAudit == nil || q.PriorAudit.Maintenance.Severity <= 0 {
		return 1
	}
	return q.PriorAudit.Maintenance.Severity
}

// HasImages reports whether any image reference or URL is attached.
func (q *Question) HasImages() bool {
	return len(q.ImageRefs) > 0 || len(q.ImageURLs) > 0
}
