package usecase

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
	"github.com/kirillkom/exam-audit-engine/internal/core/ports"
)

const (
	// Self-clustering tolerates recompression noise; knowledge matching is
	// slightly laxer because corpus scans degrade more.
	DefaultImageClusterDistance   = 8
	DefaultKnowledgeImageDistance = 10
)

// BuildImageClusters groups the dataset's own images by visual similarity.
// Images are visited in a fixed order; each not-yet-claimed image seeds one
// cluster containing every image within maxDistance. Later images already
// claimed are skipped as seeds but remain members of their cluster.
func BuildImageClusters(images []domain.QuestionImage, maxDistance int) domain.ImageClusterSet {
	set := domain.ImageClusterSet{
		QuestionToClusters: make(map[string][]string),
	}

	claimed := make(map[string]struct{}, len(images))
	counter := 1
	for i := range images {
		seed := &images[i]
		if _, ok := claimed[seed.ArchivePath]; ok {
			continue
		}

		cluster := domain.ImageCluster{
			ID:                fmt.Sprintf("img-cluster-%d", counter),
			RepresentativeRef: seed.Stem,
		}
		counter++

		for j := range images {
			member := &images[j]
			if domain.HammingDistance(seed.PerceptualHash, member.PerceptualHash) > maxDistance {
				continue
			}
			cluster.Members = append(cluster.Members, member.Stem)
			cluster.MemberArchivePaths = append(cluster.MemberArchivePaths, member.ArchivePath)
			claimed[member.ArchivePath] = struct{}{}
			if member.QuestionID != "" {
				set.QuestionToClusters[member.QuestionID] = append(set.QuestionToClusters[member.QuestionID], cluster.ID)
			}
		}

		set.Clusters = append(set.Clusters, cluster)
	}
	return set
}

// PrepareQuestionImages resolves a question's declared image refs against the
// store. Refs resolve by filename stem; every image filed under the question
// id joins the result as well, so partial declarations still yield the full
// set. Deduplicated by archive path, ordered by stem. Unresolvable refs are
// returned alongside.
func PrepareQuestionImages(store ports.ImageStore, q *domain.Question) ([]domain.QuestionImage, []string) {
	if store == nil || q == nil {
		return nil, nil
	}
	seen := make(map[string]struct{})
	var resolved []domain.QuestionImage
	var missing []string
	add := func(img domain.QuestionImage) {
		if _, dup := seen[img.ArchivePath]; dup {
			return
		}
		seen[img.ArchivePath] = struct{}{}
		resolved = append(resolved, img)
	}

	for _, ref := range q.ImageRefs {
		base := path.Base(strings.TrimSpace(ref))
		stem := strings.TrimSuffix(base, path.Ext(base))
		if img, ok := store.ByStem(stem); ok {
			add(img)
			continue
		}
		missing = append(missing, ref)
	}
	for _, img := range store.ByQuestion(q.ID) {
		add(img)
	}

	sort.Slice(resolved, func(i, j int) bool { return resolved[i].Stem < resolved[j].Stem })
	return resolved, missing
}

// MatchKnowledgeImages looks every dataset image up against the knowledge
// image pool, keyed by owning question. Matching is independent of
// self-clustering.
func MatchKnowledgeImages(images []domain.QuestionImage, index *KnowledgeIndex, maxDistance int) map[string][]domain.QuestionImageMatch {
	out := make(map[string][]domain.QuestionImageMatch)
	if index == nil {
		return out
	}
	for i := range images {
		img := &images[i]
		if img.QuestionID == "" {
			continue
		}
		for _, hit := range index.FindSimilarImages(img.PerceptualHash, maxDistance) {
			out[img.QuestionID] = append(out[img.QuestionID], domain.QuestionImageMatch{
				QuestionImageRef: img.Stem,
				ArchivePath:      img.ArchivePath,
				KnowledgeImageID: hit.ImageID,
				KnowledgeSource:  hit.Source,
				KnowledgePage:    hit.Page,
				HammingDistance:  hit.HammingDistance,
			})
		}
	}
	return out
}
