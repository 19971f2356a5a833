package classify

import (
	"strings"
	"testing"

	"github.com/cherryamme/jasper/catalog"
	"github.com/cherryamme/jasper/splitter"
)

func alphaCatalog(t *testing.T) *catalog.PatternCatalog {
	t.Helper()
	p1rc, err := catalog.ReverseComplement("ACGTACGT")
	if err != nil {
		t.Fatal(err)
	}
	p2rc, err := catalog.ReverseComplement("TTGGCCAA")
	if err != nil {
		t.Fatal(err)
	}
	return &catalog.PatternCatalog{
		Forward: map[string]string{"P1": "ACGTACGT", "P2": "TTGGCCAA"},
		Reverse: map[string]string{"P1": p1rc, "P2": p2rc},
		PairLabel: map[string]catalog.PairEntry{
			"P1_P2": {PairKey: "P1_P2", Label: "alpha", StrandTag: "fs"},
			"P2_P1": {PairKey: "P2_P1", Label: "alpha", StrandTag: "rs"},
		},
	}
}

func classifyOne(t *testing.T, seq string, cfg Config) ClassifiedRead {
	t.Helper()
	cat := alphaCatalog(t)
	layers := splitter.SplitRead([]byte(seq), []splitter.LayerConfig{{
		Catalog: cat, ErrRateLeft: 0.1, ErrRateRight: 0.1, MaxDist: 2,
	}}, 50, 50)
	qual := strings.Repeat("I", len(seq))
	return Classify("read1", []byte(seq), []byte(qual), layers,
		[]splitter.MatchPolicy{splitter.PolicyDual}, cfg)
}

func baseConfig() Config {
	return Config{TrimN: 0, MinLength: 50, WriteType: WriteTypeNames, IDSep: "%"}
}

// S1 — exact dual hit.
func TestClassifyDualHit(t *testing.T) {
	seq := "ACGTACGT" + strings.Repeat("A", 300) + "TTGGCCAA"
	cr := classifyOne(t, seq, baseConfig())
	if cr.ReadClass != ClassValid {
		t.Fatalf("read_class = %q, want valid", cr.ReadClass)
	}
	if cr.Strand != "fs" {
		t.Errorf("strand = %q, want fs", cr.Strand)
	}
	if cr.TrimStart != 0 || cr.TrimEnd != 316 {
		t.Errorf("trim_range = (%d,%d), want (0,316)", cr.TrimStart, cr.TrimEnd)
	}
	if !strings.Contains(cr.OutKey, "alpha") {
		t.Errorf("out_key = %q, want to contain alpha", cr.OutKey)
	}
	if !cr.EmitToFastq {
		t.Error("expected emit_to_fastq = true")
	}
}

// S2 — single-end hit only => unknown.
func TestClassifySingleEndUnknown(t *testing.T) {
	seq := strings.Repeat("N", 200) + "TTGGCCAA"
	cr := classifyOne(t, seq, baseConfig())
	if cr.ReadClass != ClassUnknown {
		t.Fatalf("read_class = %q, want unknown", cr.ReadClass)
	}
	if cr.EmitToFastq {
		t.Error("expected emit_to_fastq = false")
	}
}

// S3 — filtered by length regardless of matches.
func TestClassifyFilteredByLength(t *testing.T) {
	cfg := baseConfig()
	cfg.MinLength = 100
	seq := strings.Repeat("A", 30)
	cr := classifyOne(t, seq, cfg)
	if cr.ReadClass != ClassFiltered {
		t.Fatalf("read_class = %q, want filtered", cr.ReadClass)
	}
}

// S7 — fusion veto: an otherwise-valid dual hit is demoted when its trimmed
// region contains a fusion-catalog match.
func TestClassifyFusionVeto(t *testing.T) {
	cfg := baseConfig()
	cfg.FusionCatalog = &catalog.FusionCatalog{Patterns: map[string]string{"FUS1": "AAAAAAAAAA"}}
	cfg.FusionErrRate = 0.1

	seq := "ACGTACGT" + strings.Repeat("A", 300) + "TTGGCCAA"
	cr := classifyOne(t, seq, cfg)
	if cr.ReadClass != ClassFusion {
		t.Fatalf("read_class = %q, want fusion", cr.ReadClass)
	}
	if cr.EmitToFastq {
		t.Error("expected emit_to_fastq = false for a fusion-vetoed read")
	}
}

func TestCounterTotality(t *testing.T) {
	counts := map[ReadClass]int{ClassValid: 3, ClassFiltered: 1, ClassUnknown: 2, ClassFusion: 1}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
}
