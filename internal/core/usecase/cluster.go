package usecase

import (
	"math"
	"sort"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

const (
	// Per left-hand document, only the strongest candidate neighbors are
	// kept, bounding pair evaluation to O(n*k).
	maxCandidateNeighbors = 80

	// Weighted clustering rejects pairs that share no token rarer than this
	// idf, so documents never link on common words alone.
	rareTokenIDF = 2.2

	// Token sets smaller than this are too sparse to judge similarity.
	minJudgeableTokens = 6
)

// clusterOptions selects between the idf-weighted variant used for question
// content and abstractions, and the plain-Jaccard variant used for repeat
// detection.
type clusterOptions struct {
	weighted   bool
	pruneRatio float64 // document-frequency pruning ratio, 0 disables
}

// clusterBySimilarity assigns an integer cluster id (>= 1) to every token
// set. Ids are handed out in increasing order of first root encountered while
// scanning the input in original order, which makes the labeling
// deterministic for fixed input and threshold. The routine is purely a
// function of token sets and a threshold.
func clusterBySimilarity(sets []map[string]struct{}, threshold float64, opts clusterOptions) []int {
	n := len(sets)
	if n == 0 {
		return nil
	}

	work := sets
	if opts.weighted {
		work = pruneFrequentTokens(sets, opts.pruneRatio)
	}

	df := make(map[string]int)
	for _, set := range work {
		for t := range set {
			df[t]++
		}
	}
	idf := func(t string) float64 {
		d := df[t]
		if d <= 0 {
			return 0
		}
		return math.Log(float64(n) / float64(d))
	}

	uf := newUnionFind(n)
	for _, pair := range candidatePairs(work, idf, opts.weighted) {
		left, right := work[pair.a], work[pair.b]
		if opts.weighted && !judgeablePair(left, right, idf) {
			continue
		}
		var sim float64
		if opts.weighted {
			sim = weightedJaccard(left, right, idf)
		} else {
			sim = plainJaccard(left, right)
		}
		if sim >= threshold {
			uf.union(pair.a, pair.b)
		}
	}

	rootToCluster := make(map[int]int, n)
	labels := make([]int, n)
	next := 1
	for i := 0; i < n; i++ {
		root := uf.find(i)
		id, ok := rootToCluster[root]
		if !ok {
			id = next
			next++
			rootToCluster[root] = id
		}
		labels[i] = id
	}
	return labels
}

type docPair struct{ a, b int }

// candidatePairs builds an inverted index and keeps, per left-hand document,
// the top neighbors by accumulated co-occurrence score (idf-weighted for the
// weighted variant, uniform otherwise).
func candidatePairs(sets []map[string]struct{}, idf func(string) float64, weighted bool) []docPair {
	inverted := make(map[string][]int)
	for i, set := range sets {
		for t := range set {
			inverted[t] = append(inverted[t], i)
		}
	}

	acc := make([]map[int]float64, len(sets))
	for token, postings := range inverted {
		if len(postings) <= 1 {
			continue
		}
		weight := 1.0
		if weighted {
			weight = idf(token)
		}
		for x := 0; x < len(postings); x++ {
			for y := x + 1; y < len(postings); y++ {
				a, b := postings[x], postings[y]
				if acc[a] == nil {
					acc[a] = make(map[int]float64)
				}
				acc[a][b] += weight
			}
		}
	}

	pairs := make([]docPair, 0, len(sets)*4)
	for a, neighbors := range acc {
		if len(neighbors) == 0 {
			continue
		}
		ordered := make([]int, 0, len(neighbors))
		for b := range neighbors {
			ordered = append(ordered, b)
		}
		sort.Slice(ordered, func(i, j int) bool {
			si, sj := neighbors[ordered[i]], neighbors[ordered[j]]
			if si != sj {
				return si > sj
			}
			return ordered[i] < ordered[j]
		})
		if len(ordered) > maxCandidateNeighbors {
			ordered = ordered[:maxCandidateNeighbors]
		}
		for _, b := range ordered {
			pairs = append(pairs, docPair{a: a, b: b})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})
	return pairs
}

// judgeablePair requires both sets to be large enough to judge and at least
// one shared token with rare-evidence idf.
func judgeablePair(a, b map[string]struct{}, idf func(string) float64) bool {
	if len(a) < minJudgeableTokens || len(b) < minJudgeableTokens {
		return false
	}
	for t := range a {
		if _, ok := b[t]; !ok {
			continue
		}
		if idf(t) >= rareTokenIDF {
			return true
		}
	}
	return false
}

func weightedJaccard(a, b map[string]struct{}, idf func(string) float64) float64 {
	var inter, union float64
	for t := range a {
		w := idf(t)
		union += w
		if _, ok := b[t]; ok {
			inter += w
		}
	}
	for t := range b {
		if _, ok := a[t]; !ok {
			union += idf(t)
		}
	}
	if union <= 0 {
		return 0
	}
	return inter / union
}

func plainJaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// unionFind is a flat parent-index array over the stable input order; merges
// are index-based, never identity-based.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

// ClusterQuestionContent clusters questions by their text and answer tokens
// with the idf-weighted variant.
func ClusterQuestionContent(questions []domain.Question, threshold, pruneRatio float64) domain.ClusterAssignment {
	sets := make([]map[string]struct{}, len(questions))
	for i := range questions {
		parts := questions[i].QuestionText
		for _, a := range questions[i].Answers {
			parts += "\n" + a.Text
		}
		sets[i] = clusterTokenSet(parts)
	}
	labels := clusterBySimilarity(sets, threshold, clusterOptions{weighted: true, pruneRatio: pruneRatio})
	return buildAssignment(questions, labels)
}

// ClusterAbstractions clusters questions by oracle-produced abstraction
// summaries, falling back to the question text when no summary exists.
func ClusterAbstractions(questions []domain.Question, abstractions map[string]string, threshold, pruneRatio float64) domain.ClusterAssignment {
	sets := make([]map[string]struct{}, len(questions))
	for i := range questions {
		text := abstractions[questions[i].ID]
		if text == "" {
			text = questions[i].QuestionText
		}
		sets[i] = clusterTokenSet(text)
	}
	labels := clusterBySimilarity(sets, threshold, clusterOptions{weighted: true, pruneRatio: pruneRatio})
	return buildAssignment(questions, labels)
}

func buildAssignment(questions []domain.Question, labels []int) domain.ClusterAssignment {
	assignment := domain.ClusterAssignment{
		QuestionToCluster: make(map[string]int, len(questions)),
		ClusterMembers:    make(map[int][]string, len(questions)),
	}
	for i, label := range labels {
		qid := questions[i].ID
		if qid == "" {
			continue
		}
		assignment.QuestionToCluster[qid] = label
		assignment.ClusterMembers[label] = append(assignment.ClusterMembers[label], qid)
	}
	return assignment
}
