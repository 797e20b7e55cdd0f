package domain

// MaintenanceReason is a deterministic data-quality finding.
type MaintenanceReason string

const (
	ReasonMissingCorrectIndices MaintenanceReason = "missing_correct_indices"
	ReasonInvalidAnswerOption   MaintenanceReason = "invalid_answer_option"
	ReasonMissingImageAsset     MaintenanceReason = "missing_required_image_asset"
	ReasonInsufficientContext   MaintenanceReason = "insufficient_question_context"
	ReasonUncertainSource       MaintenanceReason = "non_exam_question_or_uncertain_source"
)

// PreflightGates are the execution gates derived from structural signals
// before any oracle call.
type PreflightGates struct {
	RunOracle         bool `json:"runLlm"`
	AllowAutoChange   bool `json:"allowAutoChange"`
	ForceManualReview bool `json:"forceManualReview"`
}

// PreflightAssessment classifies maintenance reasons into blocker tiers and
// carries a transparency score in [0,1].
type PreflightAssessment struct {
	Reasons         []MaintenanceReason `json:"reasons"`
	HardBlockers    []MaintenanceReason `json:"hardBlockers"`
	ContextBlockers []MaintenanceReason `json:"contextBlockers"`
	SoftBlockers    []MaintenanceReason `json:"softBlockers"`
	Gates           PreflightGates      `json:"gates"`
	QualityScore    float64             `json:"qualityScore"`
}
