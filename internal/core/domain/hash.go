package domain

import (
	"math/bits"
	"strconv"
)

// maxHammingDistance is the sentinel for unparseable hashes; it can never
// satisfy a similarity threshold.
const maxHammingDistance = 64

// HammingDistance compares two 16-hex-char perceptual hashes bitwise. A hash
// that does not parse as a 64-bit hex value yields the maximal distance so it
// never spuriously matches.
func HammingDistance(a, b string) int {
	av, err := strconv.ParseUint(a, 16, 64)
	if err != nil {
		return maxHammingDistance
	}
	bv, err := strconv.ParseUint(b, 16, 64)
	if err != nil {
		return maxHammingDistance
	}
	return bits.OnesCount64(av ^ bv)
}
