package matcher

import (
	"github.com/antzucaro/matchr"
)

// matrix represents a 2 dimensional matrix.
type matrix struct {
	nRow, nCol int
	data       []int // row-major nRow*nCol array.
}

func newMatrix(n, m int) matrix {
	return matrix{nRow: n, nCol: m, data: make([]int, n*m)}
}

func (m matrix) computeCell(i, j int, r1, r2 []byte) {
	if i == 0 {
		m.data[i*m.nCol+j] = j
		return
	}
	if j == 0 {
		m.data[i*m.nCol+j] = i
		return
	}
	cost := 1
	if basesMatch(r1[i-1], r2[j-1]) || basesMatch(r2[j-1], r1[i-1]) {
		cost = 0
	}
	down := m.data[(i-1)*m.nCol+j] + 1
	diagonal := m.data[(i-1)*m.nCol+(j-1)] + cost
	right := m.data[i*m.nCol+(j-1)] + 1
	m.data[i*m.nCol+j] = min3(down, diagonal, right)
}

// ReferenceDistance computes the ambiguity-aware Levenshtein distance
// between text and pattern, honoring 'N' as a wildcard in either argument.
// It exists to cross-check the bit-parallel matcher in Best against a
// straightforward O(n*m) implementation; it is not on the hot path.
//
// Adapted from the downstream-extension Levenshtein routine in
// util/distance.go: the traversal structure is unchanged, the cost function
// is generalized to treat 'N' as a wildcard instead of requiring byte
// equality.
func ReferenceDistance(text, pattern string) int {
	r1 := []byte(text)
	r2 := []byte(pattern)
	m := newMatrix(len(r1)+1, len(r2)+1)
	for i := 0; i <= len(r1); i++ {
		for j := 0; j <= len(r2); j++ {
			m.computeCell(i, j, r1, r2)
		}
	}
	return m.data[len(r1)*m.nCol+len(r2)]
}

// HammingPrecheck reports the Hamming distance between text and pattern when
// they are the same length, using antzucaro/matchr. Best calls this before
// running the bit-parallel scan when pattern has no 'N': a same-length exact
// match (dist==0) is then already the global minimum score, so the scan can
// be skipped outright.
// Any nonzero distance is not a substitute for the real edit-distance score
// (equal-length strings can still have an edit distance below their Hamming
// distance, e.g. via a matched delete/insert pair), so it is only usable to
// short-circuit the zero case, never to approximate a nonzero one.
func HammingPrecheck(text, pattern string) (dist int, ok bool) {
	if len(text) != len(pattern) {
		return 0, false
	}
	d, err := matchr.Hamming(text, pattern)
	if err != nil {
		return 0, false
	}
	return d, true
}
