package domain

// QuestionImage is one image file from the dataset's image archive.
type QuestionImage struct {
	ArchivePath    string
	Stem           string // filename without extension, used for exact-reference lookups
	QuestionID     string // derived from the img_<questionId>_<index> convention
	MimeType       string
	DataURL        string // base64 data URL of the raw payload
	PerceptualHash string // 16 hex chars, 64 bits
}

// ImageCluster groups visually similar dataset images.
type ImageCluster struct {
	ID                 string   `json:"clusterId"`
	RepresentativeRef  string   `json:"representativeRef"`
	Members            []string `json:"members"`
	MemberArchivePaths []string `json:"memberArchivePaths"`
}

// ImageClusterSet is the dataset-wide self-clustering result.
type ImageClusterSet struct {
	Clusters           []ImageCluster      `json:"clusters"`
	QuestionToClusters map[string][]string `json:"questionToClusters"`
}

// QuestionImageMatch links one dataset image to a knowledge-base image.
type QuestionImageMatch struct {
	QuestionImageRef string `json:"questionImageRef"`
	ArchivePath      string `json:"questionImageArchivePath"`
	KnowledgeImageID string `json:"knowledgeImageId"`
	KnowledgeSource  string `json:"knowledgeSource"`
	KnowledgePage    int    `json:"knowledgePage"`
	HammingDistance  int    `json:"hammingDistance"`
}
