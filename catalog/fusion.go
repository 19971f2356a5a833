package catalog

import (
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// FusionCatalog is the optional, unpaired auxiliary pattern set the
// classifier's fusion-detection pass matches against. Unlike PatternCatalog
// it carries no directionality or labeling: a hit anywhere is a hit.
type FusionCatalog struct {
	Patterns map[string]string
}

type fusionRow struct {
	Name string
}

// LoadFusion reads a header-row, single-column ("name") TSV naming a subset
// of the patterns already present in the pattern db at dbFile, resolving
// each by lookup rather than carrying its own sequence column. This mirrors
// the two-step shape the pattern db has always used here: one file of
// name-to-sequence records, and a second file that references entries in it
// by name rather than restating their sequences.
func LoadFusion(ctx context.Context, dbFile, passphrase, fusionFile string) (*FusionCatalog, error) {
	names, err := loadDB(ctx, dbFile, passphrase)
	if err != nil {
		return nil, err
	}

	f, err := file.Open(ctx, fusionFile)
	if err != nil {
		return nil, errors.Wrapf(err, "open fusion catalog %v", fusionFile)
	}
	defer f.Close(ctx)

	tr := tsv.NewReader(f.Reader(ctx))
	tr.HasHeaderRow = true
	tr.ValidateHeader = true
	patterns := map[string]string{}
	for {
		var row fusionRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "malformed fusion catalog record in %v", fusionFile)
		}
		seq, ok := names[row.Name]
		if !ok {
			return nil, errors.Errorf("fusion file references unknown pattern name %q", row.Name)
		}
		patterns[row.Name] = seq
	}
	return &FusionCatalog{Patterns: patterns}, nil
}
