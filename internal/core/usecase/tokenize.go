package usecase

import (
	"strings"
	"unicode"
)

// tokenizeMin splits text into lowercase alphanumeric tokens (Latin letters,
// digits and the German umlauts/ß) of at least minLen runes. Everything else
// is a separator.
func tokenizeMin(s string, minLen int) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			if tok := b.String(); len([]rune(tok)) >= minLen {
				out = append(out, tok)
			}
			b.Reset()
		}
	}
	for _, r := range s {
		r = unicode.ToLower(r)
		if isTokenRune(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return out
}

func isTokenRune(r rune) bool {
	if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
		return true
	}
	switch r {
	case 'ä', 'ö', 'ü', 'ß':
		return true
	}
	return false
}

// retrievalTokens uses the retrieval minimum length of 2.
func retrievalTokens(s string) []string {
	return tokenizeMin(s, 2)
}

// clusterTokenSet uses the clustering minimum length of 3; very short tokens
// carry no discriminative weight for similarity linking.
func clusterTokenSet(s string) map[string]struct{} {
	return toSet(tokenizeMin(s, 3))
}

func toSet(tokens []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		out[t] = struct{}{}
	}
	return out
}

func termFrequency(tokens []string) map[string]int {
	out := make(map[string]int, len(tokens))
	for _, t := range tokens {
		out[t]++
	}
	return out
}

// pruneFrequentTokens removes tokens present in more than ratio*len(sets)
// documents. Pruning only engages for five or more documents; below that the
// document frequencies are too coarse to call anything boilerplate.
func pruneFrequentTokens(sets []map[string]struct{}, ratio float64) []map[string]struct{} {
	n := len(sets)
	if n < 5 || ratio <= 0 {
		return sets
	}
	df := make(map[string]int)
	for _, set := range sets {
		for t := range set {
			df[t]++
		}
	}
	limit := ratio * float64(n)
	if limit < 2 {
		// Small collections: never prune tokens shared by just two documents.
		limit = 2
	}
	pruned := make([]map[string]struct{}, n)
	for i, set := range sets {
		kept := make(map[string]struct{}, len(set))
		for t := range set {
			if float64(df[t]) <= limit {
				kept[t] = struct{}{}
			}
		}
		pruned[i] = kept
	}
	return pruned
}
