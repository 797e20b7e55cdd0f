package domain

// QuestionContext is the deterministic per-question support record handed to
// the oracle orchestration layer.
type QuestionContext struct {
	QuestionID           string                `json:"questionId"`
	Preflight            PreflightAssessment   `json:"preflight"`
	ContentClusterID     int                   `json:"contentClusterId"`
	ContentClusterPeers  []string              `json:"contentClusterPeers,omitempty"`
	AbstractionClusterID int                   `json:"abstractionClusterId"`
	ImageClusterIDs      []string              `json:"imageClusterIds,omitempty"`
	Images               []QuestionImage       `json:"images,omitempty"`
	MissingImageRefs     []string              `json:"missingImageRefs,omitempty"`
	Evidence             []EvidenceChunk       `json:"evidence,omitempty"`
	RetrievalQuality     float64               `json:"retrievalQuality"`
	KnowledgeImages      []QuestionImageMatch  `json:"knowledgeImageMatches,omitempty"`
	RepeatSuggestion     *RepeatSuggestion     `json:"repeatSuggestion,omitempty"`
}

// DatasetContext is the full output of one audit run.
type DatasetContext struct {
	RunID     string            `json:"runId"`
	Questions []QuestionContext `json:"questions"`
	Report    RunReport         `json:"report"`
}
