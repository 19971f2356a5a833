// Package splitter implements the layered approximate-match state machine:
// for a single read and a sequence of marker-catalog layers, it searches
// left and right windows, classifies each layer's outcome, and refines the
// search window for the next layer when configured to do so.
package splitter

import (
	"sort"

	"github.com/cherryamme/jasper/catalog"
	"github.com/cherryamme/jasper/matcher"
)

// MatchPolicy is the per-layer minimum acceptance requirement.
type MatchPolicy int

const (
	// PolicySingle accepts any non-"unknown" classification.
	PolicySingle MatchPolicy = iota
	// PolicyDual requires classification == "dual".
	PolicyDual
)

// LayerConfig configures one pass of the splitter over one marker catalog.
type LayerConfig struct {
	Catalog         *catalog.PatternCatalog
	ErrRateLeft     float64
	ErrRateRight    float64
	MaxDist         int
	Shift           int
	RefineFromPrior bool
	MatchPolicy     MatchPolicy
}

// SplitType is the outcome of one layer's search against one read.
type SplitType struct {
	Classification string // "dual", "left", "right", "unknown"
	PairKey        string
	Label          string
	StrandTag      string
	LeftName       string
	RightName      string
	Left           matcher.Match
	Right          matcher.Match
}

// classRank gives classifications an explicit total order, strictest first,
// in place of the fragile lexicographic string comparison the original
// implementation relied on ("dual" < "single" < "unknown" happens to also
// sort alphabetically, but that is not a safe assumption to build on).
var classRank = map[string]int{"dual": 0, "left": 1, "right": 1, "unknown": 2}

// Passes reports whether st satisfies policy.
func (st SplitType) Passes(policy MatchPolicy) bool {
	if policy == PolicyDual {
		return st.Classification == "dual"
	}
	return classRank[st.Classification] < classRank["unknown"]
}

type window struct{ start, end int }

// SplitRead runs every layer's search in order against seq, returning one
// SplitType per layer. wLeft/wRight are the global initial window sizes.
func SplitRead(seq []byte, layers []LayerConfig, wLeft, wRight int) []SplitType {
	seqLen := len(seq)
	left := window{0, minInt(wLeft, seqLen)}
	right := window{maxInt(0, seqLen-wRight), seqLen}

	result := make([]SplitType, len(layers))
	for i, layer := range layers {
		leftMatch, leftName := bestOverCatalog(seq, left, layer.Catalog.Forward, layer.ErrRateLeft)
		rightMatch, rightName := bestOverCatalog(seq, right, layer.Catalog.Reverse, layer.ErrRateRight)

		result[i] = classifyLayer(leftMatch, leftName, rightMatch, rightName, layer)

		if i+1 >= len(layers) {
			break
		}
		if layer.RefineFromPrior && leftMatch.Found && rightMatch.Found {
			nextLen := maxPatternLen(layers[i+1].Catalog)
			left = window{
				maxInt(0, leftMatch.YStart-layer.Shift-nextLen),
				minInt(seqLen, leftMatch.YStart+layer.Shift),
			}
			right = window{
				maxInt(0, rightMatch.YEnd-layer.Shift),
				minInt(seqLen, rightMatch.YEnd+layer.Shift+nextLen),
			}
		} else {
			left = window{0, minInt(wLeft, seqLen)}
			right = window{maxInt(0, seqLen-wRight), seqLen}
		}
	}
	return result
}

// bestOverCatalog finds the global best match across every pattern in
// patterns, over seq[win.start:win.end]. Ties on score are broken by
// leftmost end position, then by pattern name sort order (S6), by iterating
// candidate names in sorted order and only replacing the incumbent on a
// strict improvement.
func bestOverCatalog(seq []byte, win window, patterns map[string]string, errRate float64) (matcher.Match, string) {
	if win.start >= win.end {
		return matcher.Match{Found: false}, ""
	}
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)

	text := seq[win.start:win.end]
	var best matcher.Match
	var bestName string
	for _, name := range names {
		m := matcher.Best(text, patterns[name], errRate)
		if !m.Found {
			continue
		}
		m.YStart += win.start
		m.YEnd += win.start
		if !best.Found || m.Score < best.Score || (m.Score == best.Score && m.YEnd < best.YEnd) {
			best = m
			bestName = name
		}
	}
	return best, bestName
}

func classifyLayer(leftMatch matcher.Match, leftName string, rightMatch matcher.Match, rightName string, layer LayerConfig) SplitType {
	st := SplitType{Left: leftMatch, Right: rightMatch, LeftName: leftName, RightName: rightName}
	switch {
	case leftMatch.Found && rightMatch.Found:
		delta := absInt(rightMatch.Score - leftMatch.Score)
		pairKey := leftName + "_" + rightName
		entry, isPair := layer.Catalog.PairLabel[pairKey]
		if delta <= layer.MaxDist && isPair {
			st.Classification = "dual"
			st.PairKey = entry.PairKey
			st.Label = entry.Label
			st.StrandTag = entry.StrandTag
		} else if leftMatch.Score <= rightMatch.Score {
			st.Classification = "left"
			st.PairKey = leftName + "_"
		} else {
			st.Classification = "right"
			st.PairKey = "_" + rightName
		}
	case leftMatch.Found:
		st.Classification = "left"
		st.PairKey = leftName + "_"
	case rightMatch.Found:
		st.Classification = "right"
		st.PairKey = "_" + rightName
	default:
		st.Classification = "unknown"
	}
	return st
}

func maxPatternLen(cat *catalog.PatternCatalog) int {
	maxLen := 0
	for _, seq := range cat.Forward {
		if len(seq) > maxLen {
			maxLen = len(seq)
		}
	}
	for _, seq := range cat.Reverse {
		if len(seq) > maxLen {
			maxLen = len(seq)
		}
	}
	return maxLen
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
