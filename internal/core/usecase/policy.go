package usecase

// VerifierVerdict is the tri-state outcome of an independent verification
// pass: agreed, disagreed, or not run.
type VerifierVerdict int

const (
	VerifierNotRun VerifierVerdict = iota
	VerifierAgreed
	VerifierDisagreed
)

// ConfidenceSignals are the already-computed inputs to confidence
// composition. The engine never produces them itself; they arrive from the
// oracle layer and the retrieval index.
type ConfidenceSignals struct {
	AnswerConfidence float64
	TopicConfidence  float64
	RetrievalQuality float64
	Verifier         VerifierVerdict
	EvidenceCount    int
}

// ComposeConfidence combines the signals into a single [0,1] score. This is a
// calibration heuristic, not a probability: the weights reward verifier
// agreement and available evidence without any statistical claim.
func ComposeConfidence(s ConfidenceSignals) float64 {
	agreement := 0.45
	switch s.Verifier {
	case VerifierAgreed:
		agreement = 1.0
	case VerifierDisagreed:
		agreement = 0.2
	}

	evidencePrior := 0.35
	switch {
	case s.EvidenceCount >= 3:
		evidencePrior = 1.0
	case s.EvidenceCount == 2:
		evidencePrior = 0.8
	case s.EvidenceCount == 1:
		evidencePrior = 0.55
	}

	score := 0.34*s.AnswerConfidence +
		0.24*s.TopicConfidence +
		0.20*s.RetrievalQuality +
		0.14*agreement +
		0.08*evidencePrior
	return clamp01(round4(score))
}

// ChangeProposal describes a verifier-backed answer correction.
type ChangeProposal struct {
	CurrentIndices     []int
	ProposedIndices    []int
	CannotJudge        bool
	VerifierAgreed     bool
	VerifierConfidence float64
	RetrievalQuality   float64
	EvidenceCount      int
}

// ShouldApplyChange gates automatic answer corrections. Every failing
// condition vetoes the change; uncertainty always loses.
func ShouldApplyChange(p ChangeProposal, minConfidence float64) bool {
	if p.CannotJudge {
		return false
	}
	if !p.VerifierAgreed {
		return false
	}
	if len(p.ProposedIndices) == 0 || equalIntSlices(p.ProposedIndices, p.CurrentIndices) {
		return false
	}
	if p.VerifierConfidence < minConfidence {
		return false
	}
	if p.EvidenceCount <= 0 && p.RetrievalQuality < 0.08 {
		return false
	}
	return true
}

// EscalationSignals feed the decision to run a deeper review stage.
type EscalationSignals struct {
	NeedsMaintenance    bool
	MaintenanceSeverity int
	DisagreesWithStored bool
	CombinedConfidence  float64
	InitialTopicKey     string
	FinalTopicKey       string
}

// EscalationPolicy carries the configured review thresholds.
type EscalationPolicy struct {
	MinMaintenanceSeverity int
	LowConfidenceThreshold float64
}

// ShouldEscalate reports whether a question must go to the deeper review
// stage.
func ShouldEscalate(s EscalationSignals, policy EscalationPolicy) bool {
	if s.NeedsMaintenance && s.MaintenanceSeverity >= policy.MinMaintenanceSeverity {
		return true
	}
	if s.DisagreesWithStored && s.CombinedConfidence < 0.85 {
		return true
	}
	if s.InitialTopicKey != s.FinalTopicKey {
		return true
	}
	floor := policy.LowConfidenceThreshold - 0.1
	if floor < 0.45 {
		floor = 0.45
	}
	return s.CombinedConfidence < floor
}

func equalIntSlices(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
