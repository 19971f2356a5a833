// Package classify derives read-level classification, routing keys, trim
// windows, and diagnostics from a read's per-layer splitter output.
package classify

import (
	"fmt"
	"strings"

	"github.com/cherryamme/jasper/catalog"
	"github.com/cherryamme/jasper/splitter"
)

// ReadClass is the terminal classification of a read.
type ReadClass string

const (
	ClassValid    ReadClass = "valid"
	ClassFiltered ReadClass = "filtered"
	ClassUnknown  ReadClass = "unknown"
	ClassFusion   ReadClass = "fusion"
)

// WriteType selects whether out_key/out_id are built from pair-key "types"
// or from human-readable labels ("names").
type WriteType int

const (
	WriteTypeType WriteType = iota
	WriteTypeNames
)

// padLength is the fixed width match_names/match_types are padded to,
// giving every out_key a stable directory depth regardless of layer count.
const padLength = 3

// Config carries the per-run settings the classifier needs beyond what the
// splitter layers already encode.
type Config struct {
	TrimN         int
	MinLength     int
	WriteType     WriteType
	IDSep         string
	FusionCatalog *catalog.FusionCatalog // nil disables the fusion pass
	FusionErrRate float64
}

// ClassifiedRead is the terminal, read-level record the pipeline's writer
// and counter stages consume.
type ClassifiedRead struct {
	ID          string
	Seq         []byte
	Qual        []byte
	Layers      []splitter.SplitType
	MatchNames  []string
	MatchTypes  []string
	ReadClass   ReadClass
	Strand      string
	OutKey      string
	OutID       string
	TrimStart   int
	TrimEnd     int
	HasTrim     bool
	EmitToFastq bool
	DiagLine    string
}

// Classify computes every read-level field from a read's per-layer splitter
// output. policies must be parallel to layers, giving each layer's minimum
// acceptance requirement.
func Classify(id string, seq, qual []byte, layers []splitter.SplitType, policies []splitter.MatchPolicy, cfg Config) ClassifiedRead {
	seqLen := len(seq)

	matchNames := make([]string, len(layers))
	matchTypes := make([]string, len(layers))
	strandTags := map[string]bool{}
	allPass := true
	for i, st := range layers {
		if st.Passes(policies[i]) {
			matchNames[i] = st.Label
			matchTypes[i] = st.PairKey
			if st.StrandTag != "" && st.StrandTag != "unknown" {
				strandTags[st.StrandTag] = true
			}
		} else {
			matchNames[i] = "unknown"
			matchTypes[i] = "unknown"
			allPass = false
		}
	}
	matchNames = padTo(matchNames, padLength, "default")
	matchTypes = padTo(matchTypes, padLength, "default")

	strand := "unknown"
	if len(strandTags) == 1 {
		for s := range strandTags {
			strand = s
		}
	}

	routingFields := matchTypes
	if cfg.WriteType == WriteTypeNames {
		routingFields = matchNames
	}
	outKey := strings.Join(reversed(routingFields), "/")
	outID := strings.Join(routingFields, cfg.IDSep)

	cr := ClassifiedRead{
		ID: id, Seq: seq, Qual: qual, Layers: layers,
		MatchNames: matchNames, MatchTypes: matchTypes,
		Strand: strand, OutKey: outKey, OutID: outID,
	}

	switch {
	case seqLen <= cfg.MinLength:
		cr.ReadClass = ClassFiltered
	case !allPass:
		cr.ReadClass = ClassUnknown
	default:
		cr.classifyTrimmed(cfg)
	}
	cr.DiagLine = diagLine(id, seqLen, layers)
	return cr
}

func (cr *ClassifiedRead) classifyTrimmed(cfg Config) {
	trimLayer := cr.Layers[cfg.TrimN]
	l := trimLayer.Left.YStart
	r := trimLayer.Right.YEnd
	if r == 0 {
		r = len(cr.Seq)
	}
	if l >= r {
		cr.ReadClass = ClassUnknown
		return
	}
	cr.TrimStart, cr.TrimEnd, cr.HasTrim = l, r, true

	if cfg.FusionCatalog != nil && detectFusion(cr.Seq[l:r], cfg.FusionCatalog, cfg.FusionErrRate) {
		cr.ReadClass = ClassFusion
		return
	}

	cr.ReadClass = ClassValid
	cr.EmitToFastq = true
}

func padTo(xs []string, n int, fill string) []string {
	if len(xs) >= n {
		return xs
	}
	out := make([]string, n)
	copy(out, xs)
	for i := len(xs); i < n; i++ {
		out[i] = fill
	}
	return out
}

func reversed(xs []string) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[len(xs)-1-i] = x
	}
	return out
}

func diagLine(id string, seqLen int, layers []splitter.SplitType) string {
	parts := make([]string, 0, len(layers)+2)
	parts = append(parts, id, fmt.Sprintf("%d", seqLen))
	for _, st := range layers {
		parts = append(parts, layerInfo(st))
	}
	return strings.Join(parts, "\t")
}

func layerInfo(st splitter.SplitType) string {
	left := fmt.Sprintf("(%s, %d, %d, %d)", st.LeftName, st.Left.Score, st.Left.YStart, st.Left.YEnd)
	right := fmt.Sprintf("(%s, %d, %d, %d)", st.RightName, st.Right.Score, st.Right.YStart, st.Right.YEnd)
	return fmt.Sprintf("%s\t%s\t%s\t%s:%s;%s", st.Classification, st.PairKey, st.Label, st.StrandTag, left, right)
}
