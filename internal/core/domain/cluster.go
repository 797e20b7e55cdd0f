package domain

// ClusterAssignment maps question ids to integer cluster ids (>= 1) and back.
// Cluster ids are assigned in first-encountered scan order over the input, so
// assignments are reproducible for a fixed input order and threshold but not
// stable across reorderings.
type ClusterAssignment struct {
	QuestionToCluster map[string]int   `json:"questionToCluster"`
	ClusterMembers    map[int][]string `json:"clusterMembers"`
}

// RepeatSuggestion proposes the anchor's correct-answer texts onto a degraded
// cross-year duplicate. SuggestedCorrectIndices are sorted externalIndex
// values that exist among the target's answers; the target is never the
// anchor itself.
type RepeatSuggestion struct {
	ClusterID               int      `json:"clusterId"`
	AnchorQuestionID        string   `json:"anchorQuestionId"`
	Confidence              float64  `json:"confidence"`
	SuggestedCorrectIndices []int    `json:"suggestedCorrectIndices"`
	MatchedCorrectTexts     []string `json:"matchedCorrectTexts"`
}

// RepeatSummary carries run-level repeat-detection counters.
type RepeatSummary struct {
	ClustersConsidered int `json:"clustersConsidered"`
	CrossYearClusters  int `json:"crossYearClusters"`
	AnchorlessClusters int `json:"anchorlessClusters"`
	Suggestions        int `json:"suggestions"`
}
