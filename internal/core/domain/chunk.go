package domain

// Chunk is one retrievable unit of the knowledge corpus. Chunks are owned by
// the retrieval index and immutable after ingestion.
type Chunk struct {
	ID       string
	Source   string
	Page     int
	Text     string
	Tokens   map[string]struct{}
	TermFreq map[string]int
	Length   int // total term count, minimum 1
}

// EvidenceChunk is a ranked retrieval result handed to the oracle layer.
type EvidenceChunk struct {
	ChunkID string  `json:"chunkId"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// KnowledgeImage is an image extracted from the corpus. Knowledge images are
// queried for similarity against question images but never clustered among
// themselves.
type KnowledgeImage struct {
	ID             string
	Source         string
	Page           int
	PerceptualHash string // 16 hex chars, 64 bits
}

// KnowledgeImageMatch is one similarity hit against the knowledge image pool.
type KnowledgeImageMatch struct {
	ImageID         string `json:"imageId"`
	Source          string `json:"source"`
	Page            int    `json:"page"`
	HammingDistance int    `json:"hammingDistance"`
}
