// Package catalog loads the marker-pattern and pairing manifests that the
// splitter searches against, deriving reverse-complement companions and
// exposing the resulting lookup tables as an immutable value.
package catalog

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// PairEntry is the decoded value of PatternCatalog.PairLabel: the canonical
// pair key, the human-readable label, and the strand tag the pairing
// resolves to.
type PairEntry struct {
	PairKey   string
	Label     string
	StrandTag string
}

// PatternCatalog is the immutable, read-only-after-load marker lookup table.
type PatternCatalog struct {
	// Forward holds every name referenced by the pair file, mapped to its
	// sequence exactly as stored in the db file (the form expected at a
	// read's 5' end).
	Forward map[string]string
	// Reverse holds the same set of names, mapped to the reverse complement
	// of their db sequence (the form expected at a read's 3' end).
	Reverse map[string]string
	// PairLabel maps "forward_name_reverse_name" to the resolved pairing.
	PairLabel map[string]PairEntry
}

type dbRow struct {
	Name     string
	Sequence string
}

type pairRow struct {
	ForwardName string
	ReverseName string
	Label       string
}

// Load reads the pattern db file and the pairing file and builds a
// PatternCatalog. dbFile may be a plaintext TSV or, if it has a ".safe"
// suffix, a passphrase-encrypted container (see crypto.go); passphrase is
// ignored for plaintext files.
func Load(ctx context.Context, dbFile, pairFile, passphrase string) (*PatternCatalog, error) {
	names, err := loadDB(ctx, dbFile, passphrase)
	if err != nil {
		return nil, err
	}
	pairs, err := loadPairs(ctx, pairFile)
	if err != nil {
		return nil, err
	}

	cat := &PatternCatalog{
		Forward:   map[string]string{},
		Reverse:   map[string]string{},
		PairLabel: map[string]PairEntry{},
	}
	for _, p := range pairs {
		fSeq, ok := names[p.ForwardName]
		if !ok {
			return nil, errors.Errorf("pair file references unknown pattern name %q", p.ForwardName)
		}
		rSeq, ok := names[p.ReverseName]
		if !ok {
			return nil, errors.Errorf("pair file references unknown pattern name %q", p.ReverseName)
		}
		if err := registerName(cat, p.ForwardName, fSeq); err != nil {
			return nil, err
		}
		if err := registerName(cat, p.ReverseName, rSeq); err != nil {
			return nil, err
		}

		keyFS := p.ForwardName + "_" + p.ReverseName
		keyRS := p.ReverseName + "_" + p.ForwardName
		if keyFS != keyRS {
			cat.PairLabel[keyFS] = PairEntry{PairKey: keyFS, Label: p.Label, StrandTag: "fs"}
			cat.PairLabel[keyRS] = PairEntry{PairKey: keyRS, Label: p.Label, StrandTag: "rs"}
		} else {
			cat.PairLabel[keyFS] = PairEntry{PairKey: keyFS, Label: p.Label, StrandTag: "unknown"}
		}
	}
	vlog.VI(1).Infof("pattern catalog loaded: %d names, %d pairs", len(cat.Forward), len(cat.PairLabel))
	return cat, nil
}

// registerName is idempotent: the same name may appear as both a
// forward_name and a reverse_name across different pairs.
func registerName(cat *PatternCatalog, name, sequence string) error {
	if _, ok := cat.Forward[name]; ok {
		return nil
	}
	rc, err := ReverseComplement(sequence)
	if err != nil {
		return errors.Wrapf(err, "reverse complement %q", name)
	}
	cat.Forward[name] = sequence
	cat.Reverse[name] = rc
	return nil
}

func loadDB(ctx context.Context, dbFile, passphrase string) (map[string]string, error) {
	f, err := file.Open(ctx, dbFile)
	if err != nil {
		return nil, errors.Wrapf(err, "open pattern db %v", dbFile)
	}
	defer f.Close(ctx)

	r, err := dbReader(ctx, f, dbFile, passphrase)
	if err != nil {
		return nil, err
	}

	tr := tsv.NewReader(r)
	tr.HasHeaderRow = false
	names := map[string]string{}
	for {
		var row dbRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "malformed pattern db record in %v", dbFile)
		}
		if row.Name == "" || row.Sequence == "" {
			return nil, errors.Errorf("malformed pattern db record in %v", dbFile)
		}
		names[row.Name] = strings.ToUpper(row.Sequence)
	}
	return names, nil
}

func loadPairs(ctx context.Context, pairFile string) ([]pairRow, error) {
	f, err := file.Open(ctx, pairFile)
	if err != nil {
		return nil, errors.Wrapf(err, "open pair file %v", pairFile)
	}
	defer f.Close(ctx)

	tr := tsv.NewReader(f.Reader(ctx))
	tr.HasHeaderRow = true
	tr.ValidateHeader = true
	var pairs []pairRow
	for {
		var row pairRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "malformed pair file record in %v", pairFile)
		}
		pairs = append(pairs, row)
	}
	return pairs, nil
}

// ReverseComplement returns the reverse complement of an ACGT sequence.
// Any byte outside {A,C,G,T} (including the 'N' ambiguity code, which has no
// single-base complement) is an error.
func ReverseComplement(seq string) (string, error) {
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		c, err := complement(seq[len(seq)-1-i])
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	return string(out), nil
}

func complement(b byte) (byte, error) {
	switch b {
	case 'A':
		return 'T', nil
	case 'T':
		return 'A', nil
	case 'C':
		return 'G', nil
	case 'G':
		return 'C', nil
	default:
		return 0, errors.Errorf("unsupported nucleotide %q", string(b))
	}
}
