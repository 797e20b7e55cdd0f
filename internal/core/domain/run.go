package domain

import "time"

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// AuditRun is one batch execution of the deterministic engine over a dataset.
type AuditRun struct {
	ID          string     `json:"id"`
	DatasetPath string     `json:"datasetPath"`
	Status      RunStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	Report      *RunReport `json:"report,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// RunReport aggregates dataset-wide counters for one run.
type RunReport struct {
	TotalQuestions     int               `json:"totalQuestions"`
	Preflight          PreflightReport   `json:"preprocessing"`
	MaintenanceReasons map[string]int    `json:"maintenanceReasons"`
	Repeat             RepeatSummary     `json:"repeatReconstruction"`
	ContentClusters    int               `json:"contentClusters"`
	AbstractionCluster int               `json:"abstractionClusters"`
	ImageClusters      int               `json:"imageClusters"`
	EvidenceQuestions  int               `json:"questionsWithEvidence"`
	Diagnostics        []string          `json:"diagnostics,omitempty"`
}

type PreflightReport struct {
	OracleSkipped     int `json:"runLlmFalse"`
	AutoChangeBlocked int `json:"allowAutoChangeFalse"`
	ForcedReview      int `json:"forceManualReview"`
}
