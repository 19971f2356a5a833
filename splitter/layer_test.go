package splitter

import (
	"strings"
	"testing"

	"github.com/cherryamme/jasper/catalog"
)

func alphaCatalog(t *testing.T) *catalog.PatternCatalog {
	t.Helper()
	p2rc, err := catalog.ReverseComplement("TTGGCCAA")
	if err != nil {
		t.Fatal(err)
	}
	return &catalog.PatternCatalog{
		Forward: map[string]string{"P1": "ACGTACGT", "P2": "TTGGCCAA"},
		Reverse: map[string]string{"P1": mustRC(t, "ACGTACGT"), "P2": p2rc},
		PairLabel: map[string]catalog.PairEntry{
			"P1_P2": {PairKey: "P1_P2", Label: "alpha", StrandTag: "fs"},
			"P2_P1": {PairKey: "P2_P1", Label: "alpha", StrandTag: "rs"},
		},
	}
}

func mustRC(t *testing.T, s string) string {
	t.Helper()
	rc, err := catalog.ReverseComplement(s)
	if err != nil {
		t.Fatal(err)
	}
	return rc
}

// S1 — exact dual hit.
func TestSplitReadDualHit(t *testing.T) {
	cat := alphaCatalog(t)
	seq := "ACGTACGT" + strings.Repeat("A", 300) + "TTGGCCAA"
	layers := []LayerConfig{{
		Catalog: cat, ErrRateLeft: 0.1, ErrRateRight: 0.1, MaxDist: 2,
	}}
	result := SplitRead([]byte(seq), layers, 50, 50)
	st := result[0]
	if st.Classification != "dual" {
		t.Fatalf("classification = %q, want dual", st.Classification)
	}
	if st.PairKey != "P1_P2" {
		t.Errorf("pair key = %q, want P1_P2", st.PairKey)
	}
	if st.Label != "alpha" || st.StrandTag != "fs" {
		t.Errorf("label/strand = %q/%q, want alpha/fs", st.Label, st.StrandTag)
	}
	if st.Left.YStart != 0 || st.Left.YEnd != 8 {
		t.Errorf("left window = [%d,%d), want [0,8)", st.Left.YStart, st.Left.YEnd)
	}
}

// S2 — single-end hit only.
func TestSplitReadSingleEndOnly(t *testing.T) {
	cat := alphaCatalog(t)
	seq := strings.Repeat("N", 200) + "TTGGCCAA"
	layers := []LayerConfig{{
		Catalog: cat, ErrRateLeft: 0.1, ErrRateRight: 0.1, MaxDist: 2,
	}}
	result := SplitRead([]byte(seq), layers, 50, 50)
	if result[0].Classification != "right" {
		t.Fatalf("classification = %q, want right", result[0].Classification)
	}
}

// S4 — reversed orientation: rc(P2) then rc(P1) resolves to strand "rs".
func TestSplitReadReversedOrientation(t *testing.T) {
	cat := alphaCatalog(t)
	rcP2 := mustRC(t, "TTGGCCAA")
	rcP1 := mustRC(t, "ACGTACGT")
	seq := rcP2 + strings.Repeat("A", 300) + rcP1
	layers := []LayerConfig{{
		Catalog: cat, ErrRateLeft: 0.1, ErrRateRight: 0.1, MaxDist: 2,
	}}
	result := SplitRead([]byte(seq), layers, 50, 50)
	st := result[0]
	if st.Classification != "dual" {
		t.Fatalf("classification = %q, want dual", st.Classification)
	}
	if st.StrandTag != "rs" {
		t.Errorf("strand = %q, want rs", st.StrandTag)
	}
	if st.Label != "alpha" {
		t.Errorf("label = %q, want alpha", st.Label)
	}
}

// S6 — leftmost, then name-order tie-break.
func TestSplitReadTieBreak(t *testing.T) {
	cat := &catalog.PatternCatalog{
		Forward:   map[string]string{"PA": "ACGT", "PB": "ACGT"},
		Reverse:   map[string]string{"PA": "ACGT", "PB": "ACGT"},
		PairLabel: map[string]catalog.PairEntry{},
	}
	layers := []LayerConfig{{
		Catalog: cat, ErrRateLeft: 0.0, ErrRateRight: 0.0, MaxDist: 0,
	}}
	seq := "ACGTTTTT"
	result := SplitRead([]byte(seq), layers, 50, 0)
	if result[0].Left.YEnd != 4 {
		t.Errorf("YEnd = %d, want leftmost 4", result[0].Left.YEnd)
	}
	if result[0].PairKey != "PA_" {
		t.Errorf("pair key = %q, want PA_ (name-order tie-break)", result[0].PairKey)
	}
}

func TestWindowRefinement(t *testing.T) {
	cat := alphaCatalog(t)
	layer0 := LayerConfig{
		Catalog: cat, ErrRateLeft: 0.1, ErrRateRight: 0.1, MaxDist: 2,
		RefineFromPrior: true, Shift: 3,
	}
	layer1 := LayerConfig{
		Catalog: cat, ErrRateLeft: 0.1, ErrRateRight: 0.1, MaxDist: 2,
	}
	seq := "ACGTACGT" + strings.Repeat("A", 300) + "TTGGCCAA"
	result := SplitRead([]byte(seq), []LayerConfig{layer0, layer1}, 50, 50)
	if result[0].Classification != "dual" {
		t.Fatalf("layer 0 classification = %q, want dual", result[0].Classification)
	}
	// Layer 1's window must be contained in [L.YStart-shift-maxlen, L.YStart+shift]
	// and [R.YEnd-shift, R.YEnd+shift+maxlen], per invariant 2.
	maxLen := maxPatternLen(cat)
	wantLeftLo := result[0].Left.YStart - layer0.Shift - maxLen
	if wantLeftLo < 0 {
		wantLeftLo = 0
	}
	wantLeftHi := result[0].Left.YStart + layer0.Shift
	if result[1].Left.YStart < wantLeftLo || result[1].Left.YEnd > wantLeftHi {
		t.Errorf("layer 1 left match [%d,%d) escapes refined window [%d,%d]",
			result[1].Left.YStart, result[1].Left.YEnd, wantLeftLo, wantLeftHi)
	}
}
