// Package matcher implements approximate string matching for short DNA
// markers against long read sequences, using a bit-parallel edit-distance
// scan (Myers 1999) with ambiguity-class expansion for the 'N' wildcard.
package matcher

import (
	"math"
	"strings"
)

// wordBits is the machine word size the bit-parallel scan is built around.
// Patterns longer than this fall back to the plain DP matcher bestByDP below.
const wordBits = 64

// Match describes the best occurrence of a pattern within a text window.
// Coordinates are relative to the start of the text slice passed to Best;
// callers translate them into read coordinates by adding the window offset.
type Match struct {
	Score  int
	YStart int
	YEnd   int
	Found  bool
}

// EffectiveLength returns the pattern length with leading/trailing 'N'
// trimmed, the basis for the allowed-error budget.
func EffectiveLength(pattern string) int {
	return len(strings.Trim(pattern, "N"))
}

// MaxAllowed returns the largest edit distance that still counts as a hit
// for pattern at the given error rate.
func MaxAllowed(pattern string, errRate float64) int {
	return int(math.Floor(float64(EffectiveLength(pattern)) * errRate))
}

// Best finds the lowest edit-distance occurrence of pattern in text. Ties on
// score return the leftmost end position. It returns Match{Found: false} if
// no occurrence scores at or below MaxAllowed(pattern, errRate).
func Best(text []byte, pattern string, errRate float64) Match {
	if len(pattern) == 0 {
		return Match{Found: false}
	}
	maxAllowed := MaxAllowed(pattern, errRate)
	if len(pattern) > wordBits {
		return bestByDP(text, pattern, maxAllowed)
	}

	if len(text) == len(pattern) && !strings.Contains(pattern, "N") {
		if dist, ok := HammingPrecheck(string(text), pattern); ok && dist == 0 {
			return Match{Score: 0, YStart: 0, YEnd: len(pattern), Found: true}
		}
	}

	scores := bitVectorScan(text, pattern)
	bestScore := maxAllowed + 1
	bestEnd := -1
	for j, s := range scores {
		if s <= maxAllowed && s < bestScore {
			bestScore = s
			bestEnd = j + 1
		}
	}
	if bestEnd < 0 {
		return Match{Found: false}
	}
	yStart := backtraceStart(text, pattern, bestEnd, bestScore)
	return Match{Score: bestScore, YStart: yStart, YEnd: bestEnd, Found: true}
}

// peqTable builds the Myers "Peq" bit vectors: for each of the four DNA
// symbols, peq[c] has bit i set when pattern[i] can match c — directly when
// pattern[i]==c, or unconditionally when pattern[i]=='N' (ambiguity
// expansion).
func peqTable(pattern string) map[byte]uint64 {
	peq := map[byte]uint64{'A': 0, 'C': 0, 'G': 0, 'T': 0}
	for i := 0; i < len(pattern); i++ {
		bit := uint64(1) << uint(i)
		switch pattern[i] {
		case 'A', 'C', 'G', 'T':
			peq[pattern[i]] |= bit
		case 'N':
			peq['A'] |= bit
			peq['C'] |= bit
			peq['G'] |= bit
			peq['T'] |= bit
		}
	}
	return peq
}

// bitVectorScan runs the Myers bit-parallel automaton over text and returns,
// for every ending position j, the edit distance of the best alignment of
// pattern ending at text[j] (i.e. yEnd = j+1).
func bitVectorScan(text []byte, pattern string) []int {
	m := len(pattern)
	peq := peqTable(pattern)
	pv := ^uint64(0)
	mv := uint64(0)
	score := m
	last := uint64(1) << uint(m-1)

	scores := make([]int, len(text))
	for j, c := range text {
		eq := peq[normalizeBase(c)]
		xv := eq | mv
		xh := (((eq & pv) + pv) ^ pv) | eq
		ph := mv | ^(xh | pv)
		mh := pv & xh
		if ph&last != 0 {
			score++
		} else if mh&last != 0 {
			score--
		}
		ph = ph << 1
		mh = mh << 1
		pv = mh | ^(xv | ph)
		mv = ph & xv
		scores[j] = score
	}
	return scores
}

// normalizeBase maps any text byte outside ACGT to 'N' for the purpose of
// the bit-vector scan, so that sequencer no-calls never match spuriously.
func normalizeBase(c byte) byte {
	switch c {
	case 'A', 'C', 'G', 'T':
		return c
	default:
		return 'N'
	}
}

// backtraceStart recovers y_start for a known (yEnd, score) pair by
// searching a small window of candidate starts: it tries the pattern-length
// window first, then widens it one base at a time to the left, and returns
// the first start whose ambiguity-aware edit distance equals score.
// The window is bounded by pattern length plus score, so this stays cheap
// even though it revisits work the forward scan already did.
func backtraceStart(text []byte, pattern string, yEnd, score int) int {
	m := len(pattern)
	lo := yEnd - m - score
	if lo < 0 {
		lo = 0
	}
	for start := yEnd - m; start >= lo; start-- {
		if start < 0 {
			break
		}
		if ambiguityEditDistance(text[start:yEnd], pattern) == score {
			return start
		}
	}
	// Fall back to scanning forward from lo if no window of length m or wider
	// matched; this reaches the windows shorter than m (deletions).
	for start := lo; start <= yEnd; start++ {
		if ambiguityEditDistance(text[start:yEnd], pattern) == score {
			return start
		}
	}
	return lo
}

// ambiguityEditDistance is a small, ambiguity-aware Levenshtein distance used
// only for the bounded backtrace window above; ReferenceDistance in
// reference.go is the full cross-check matcher used by tests.
func ambiguityEditDistance(text []byte, pattern string) int {
	n, m := len(text), len(pattern)
	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}
	for i := 1; i <= n; i++ {
		cur[0] = i
		for j := 1; j <= m; j++ {
			cost := 1
			if basesMatch(text[i-1], pattern[j-1]) {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			cur[j] = min3(del, ins, sub)
		}
		prev, cur = cur, prev
	}
	return prev[m]
}

func basesMatch(textBase byte, patternBase byte) bool {
	if patternBase == 'N' {
		return textBase == 'A' || textBase == 'C' || textBase == 'G' || textBase == 'T'
	}
	return textBase == patternBase
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// bestByDP is the fallback path for patterns longer than one machine word;
// it runs the full ambiguity-aware DP over every candidate end position.
// Markers in this domain are short oligomers, so this path is cold.
func bestByDP(text []byte, pattern string, maxAllowed int) Match {
	m := len(pattern)
	bestScore := maxAllowed + 1
	bestEnd := -1
	for end := 1; end <= len(text); end++ {
		lo := end - m - maxAllowed
		if lo < 0 {
			lo = 0
		}
		for start := lo; start <= end; start++ {
			if end-start < 1 {
				continue
			}
			d := ambiguityEditDistance(text[start:end], pattern)
			if d <= maxAllowed && d < bestScore {
				bestScore = d
				bestEnd = end
			}
		}
	}
	if bestEnd < 0 {
		return Match{Found: false}
	}
	yStart := backtraceStart(text, pattern, bestEnd, bestScore)
	return Match{Score: bestScore, YStart: yStart, YEnd: bestEnd, Found: true}
}
