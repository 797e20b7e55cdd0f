package usecase

import "testing"

func TestComposeConfidenceRewardsAgreementAndEvidence(t *testing.T) {
	base := ConfidenceSignals{
		AnswerConfidence: 0.8,
		TopicConfidence:  0.7,
		RetrievalQuality: 0.5,
	}

	agreed := base
	agreed.Verifier = VerifierAgreed
	agreed.EvidenceCount = 3

	disagreed := base
	disagreed.Verifier = VerifierDisagreed

	if ComposeConfidence(agreed) <= ComposeConfidence(base) {
		t.Fatalf("verifier agreement must raise confidence")
	}
	if ComposeConfidence(disagreed) >= ComposeConfidence(base) {
		t.Fatalf("verifier disagreement must lower confidence")
	}
}

func TestComposeConfidenceStaysInUnitInterval(t *testing.T) {
	low := ComposeConfidence(ConfidenceSignals{})
	high := ComposeConfidence(ConfidenceSignals{
		AnswerConfidence: 1,
		TopicConfidence:  1,
		RetrievalQuality: 1,
		Verifier:         VerifierAgreed,
		EvidenceCount:    5,
	})
	if low < 0 || low > 1 || high < 0 || high > 1 {
		t.Fatalf("confidence out of [0,1]: low=%v high=%v", low, high)
	}
	if high <= low {
		t.Fatalf("expected strong signals to outscore empty signals")
	}
}

func validProposal() ChangeProposal {
	return ChangeProposal{
		CurrentIndices:     []int{1},
		ProposedIndices:    []int{2},
		VerifierAgreed:     true,
		VerifierConfidence: 0.9,
		RetrievalQuality:   0.4,
		EvidenceCount:      2,
	}
}

func TestShouldApplyChangeVetoChain(t *testing.T) {
	if !ShouldApplyChange(validProposal(), 0.8) {
		t.Fatalf("fully supported proposal must pass")
	}

	cannotJudge := validProposal()
	cannotJudge.CannotJudge = true
	if ShouldApplyChange(cannotJudge, 0.8) {
		t.Fatalf("cannot-judge always vetoes")
	}

	noAgreement := validProposal()
	noAgreement.VerifierAgreed = false
	if ShouldApplyChange(noAgreement, 0.8) {
		t.Fatalf("missing verifier agreement vetoes")
	}

	noChange := validProposal()
	noChange.ProposedIndices = []int{1}
	if ShouldApplyChange(noChange, 0.8) {
		t.Fatalf("identical indices veto")
	}

	empty := validProposal()
	empty.ProposedIndices = nil
	if ShouldApplyChange(empty, 0.8) {
		t.Fatalf("empty proposal vetoes")
	}

	lowConf := validProposal()
	lowConf.VerifierConfidence = 0.7
	if ShouldApplyChange(lowConf, 0.8) {
		t.Fatalf("confidence below threshold vetoes")
	}

	noEvidence := validProposal()
	noEvidence.EvidenceCount = 0
	noEvidence.RetrievalQuality = 0.05
	if ShouldApplyChange(noEvidence, 0.8) {
		t.Fatalf("no evidence and weak retrieval vetoes")
	}
}

func TestShouldEscalateBranches(t *testing.T) {
	policy := EscalationPolicy{MinMaintenanceSeverity: 2, LowConfidenceThreshold: 0.65}

	if ShouldEscalate(EscalationSignals{CombinedConfidence: 0.9}, policy) {
		t.Fatalf("confident clean question must not escalate")
	}
	if !ShouldEscalate(EscalationSignals{NeedsMaintenance: true, MaintenanceSeverity: 2, CombinedConfidence: 0.9}, policy) {
		t.Fatalf("severe maintenance must escalate")
	}
	if ShouldEscalate(EscalationSignals{NeedsMaintenance: true, MaintenanceSeverity: 1, CombinedConfidence: 0.9}, policy) {
		t.Fatalf("mild maintenance alone must not escalate")
	}
	if !ShouldEscalate(EscalationSignals{DisagreesWithStored: true, CombinedConfidence: 0.8}, policy) {
		t.Fatalf("disagreement below 0.85 must escalate")
	}
	if ShouldEscalate(EscalationSignals{DisagreesWithStored: true, CombinedConfidence: 0.9}, policy) {
		t.Fatalf("high-confidence disagreement must not escalate")
	}
	if !ShouldEscalate(EscalationSignals{InitialTopicKey: "a", FinalTopicKey: "b", CombinedConfidence: 0.95}, policy) {
		t.Fatalf("topic drift must escalate")
	}
	if !ShouldEscalate(EscalationSignals{CombinedConfidence: 0.5}, policy) {
		t.Fatalf("confidence below the floor must escalate")
	}
}

func TestShouldEscalateFloorNeverBelow045(t *testing.T) {
	policy := EscalationPolicy{MinMaintenanceSeverity: 2, LowConfidenceThreshold: 0.3}
	if !ShouldEscalate(EscalationSignals{CombinedConfidence: 0.44}, policy) {
		t.Fatalf("floor is clamped to 0.45; 0.44 must escalate")
	}
	if ShouldEscalate(EscalationSignals{CombinedConfidence: 0.46}, policy) {
		t.Fatalf("0.46 is above the clamped floor")
	}
}
