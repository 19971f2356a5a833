package pipeline

import (
	"strings"
	"testing"

	"github.com/cherryamme/jasper/catalog"
	"github.com/cherryamme/jasper/classify"
	"github.com/cherryamme/jasper/splitter"
	"github.com/stretchr/testify/require"
)

// alphaCatalog is a single-layer, single-pair marker catalog shared by the
// writer and counter tests below, mirroring classify package's own test
// fixture so both exercise the identical S1/S7 scenarios end to end.
func alphaCatalog(t *testing.T) *catalog.PatternCatalog {
	t.Helper()
	p1rc, err := catalog.ReverseComplement("ACGTACGT")
	require.NoError(t, err)
	p2rc, err := catalog.ReverseComplement("TTGGCCAA")
	require.NoError(t, err)
	return &catalog.PatternCatalog{
		Forward: map[string]string{"P1": "ACGTACGT", "P2": "TTGGCCAA"},
		Reverse: map[string]string{"P1": p1rc, "P2": p2rc},
		PairLabel: map[string]catalog.PairEntry{
			"P1_P2": {PairKey: "P1_P2", Label: "alpha", StrandTag: "fs"},
			"P2_P1": {PairKey: "P2_P1", Label: "alpha", StrandTag: "rs"},
		},
	}
}

// classifyOne runs the full splitter+classify pass for one synthetic read
// against alphaCatalog, producing a real classify.ClassifiedRead the same
// way the worker pool does in workerpool.go.
func classifyOne(t *testing.T, id, seq string, cfg classify.Config) classify.ClassifiedRead {
	t.Helper()
	cat := alphaCatalog(t)
	layers := splitter.SplitRead([]byte(seq), []splitter.LayerConfig{{
		Catalog: cat, ErrRateLeft: 0.1, ErrRateRight: 0.1, MaxDist: 2,
	}}, 50, 50)
	qual := strings.Repeat("I", len(seq))
	return classify.Classify(id, []byte(seq), []byte(qual), layers,
		[]splitter.MatchPolicy{splitter.PolicyDual}, cfg)
}
