package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cherryamme/jasper/classify"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Counter is the single-goroutine consumer that tallies per-class and
// per-combination counts and writes the summary/report TSVs at shutdown.
// It is not safe for concurrent use by design: ownership by a single
// goroutine avoids mutex contention on the hot path.
type Counter struct {
	outdir string

	total, valid, filtered, unknown, fusion int

	// validNameCounter[barcode][index][primer], keyed from match_names.
	validNameCounter map[string]map[string]map[string]int
	// validTypeCounter[barcodeType][indexType][primerType], keyed from match_types.
	validTypeCounter map[string]map[string]map[string]int
}

// NewCounter constructs a Counter writing its reports under outdir.
func NewCounter(outdir string) *Counter {
	return &Counter{
		outdir:           outdir,
		validNameCounter: map[string]map[string]map[string]int{},
		validTypeCounter: map[string]map[string]map[string]int{},
	}
}

// Observe tallies one classified read. total is always recomputed as the sum
// of the four class counters, never incremented on its own.
func (c *Counter) Observe(cr *classify.ClassifiedRead) {
	switch cr.ReadClass {
	case classify.ClassValid:
		c.valid++
		c.observeValid(cr)
	case classify.ClassFiltered:
		c.filtered++
	case classify.ClassUnknown:
		c.unknown++
	case classify.ClassFusion:
		c.fusion++
	}
	c.total = c.valid + c.filtered + c.unknown + c.fusion
}

// observeValid keys the nested per-combination counters off the first three
// (padded) match_names/match_types entries: primer, index, barcode in
// layer/trim order, counted barcode-outermost.
func (c *Counter) observeValid(cr *classify.ClassifiedRead) {
	primer, index, barcode := cr.MatchNames[0], cr.MatchNames[1], cr.MatchNames[2]
	primerType, indexType, barcodeType := cr.MatchTypes[0], cr.MatchTypes[1], cr.MatchTypes[2]
	bump3(c.validNameCounter, barcode, index, primer)
	bump3(c.validTypeCounter, barcodeType, indexType, primerType)
}

func bump3(m map[string]map[string]map[string]int, a, b, key string) {
	if m[a] == nil {
		m[a] = map[string]map[string]int{}
	}
	if m[a][b] == nil {
		m[a][b] = map[string]int{}
	}
	m[a][b][key]++
}

// Total reports total read count seen so far; Totality is an invariant of
// Observe, not something callers need to re-check.
func (c *Counter) Total() int { return c.total }

// Info logs the final per-class rates.
func (c *Counter) Info() {
	rate := c.rateFn()
	log.Info.Printf("total=%d valid=%d (%.2f%%) filtered=%d (%.2f%%) unknown=%d (%.2f%%) fusion=%d (%.2f%%)",
		c.total,
		c.valid, 100*rate(c.valid),
		c.filtered, 100*rate(c.filtered),
		c.unknown, 100*rate(c.unknown),
		c.fusion, 100*rate(c.fusion))
}

func (c *Counter) rateFn() func(int) float64 {
	return func(n int) float64 {
		if c.total == 0 {
			return 0
		}
		return float64(n) / float64(c.total)
	}
}

// WriteReports writes total_info.tsv and the per-barcode validname/validtype
// TSVs under outdir.
func (c *Counter) WriteReports() error {
	if err := c.writeTotalInfo(); err != nil {
		return err
	}
	if err := writeValidCounters(c.outdir, "validname", c.validNameCounter); err != nil {
		return err
	}
	if err := writeValidCounters(c.outdir, "validtype", c.validTypeCounter); err != nil {
		return err
	}
	return nil
}

func (c *Counter) writeTotalInfo() error {
	path := filepath.Join(c.outdir, "total_info.tsv")
	f, err := os.Create(path)
	if err != nil {
		return errors.E(err, "create report", path)
	}
	defer f.Close()

	rate := c.rateFn()
	if _, err := fmt.Fprintln(f, "total\tfiltered\tfiltered_rate\tfusion\tfusion_rate\tunknown\tunknown_rate\tvalid\tvalid_rate"); err != nil {
		return errors.E(err, "write report header", path)
	}
	_, err = fmt.Fprintf(f, "%d\t%d\t%.4f\t%d\t%.4f\t%d\t%.4f\t%d\t%.4f\n",
		c.total, c.filtered, rate(c.filtered), c.fusion, rate(c.fusion), c.unknown, rate(c.unknown), c.valid, rate(c.valid))
	if err != nil {
		return errors.E(err, "write report row", path)
	}
	return nil
}

// writeValidCounters writes one "<barcode>_<suffix>.tsv" file per top-level
// key in counter, each with header "barcode\tindex\tprimer\tcount".
func writeValidCounters(outdir, suffix string, counter map[string]map[string]map[string]int) error {
	for barcode, byIndex := range counter {
		path := filepath.Join(outdir, fmt.Sprintf("%s_%s.tsv", barcode, suffix))
		f, err := os.Create(path)
		if err != nil {
			return errors.E(err, "create report", path)
		}
		if _, err := fmt.Fprintln(f, "barcode\tindex\tprimer\tcount"); err != nil {
			f.Close()
			return errors.E(err, "write report header", path)
		}
		var writeErr error
		for index, byPrimer := range byIndex {
			for primer, count := range byPrimer {
				if _, err := fmt.Fprintf(f, "%s\t%s\t%s\t%d\n", barcode, index, primer, count); err != nil {
					writeErr = err
				}
			}
		}
		if err := f.Close(); err != nil {
			return errors.E(err, "close report", path)
		}
		if writeErr != nil {
			return errors.E(writeErr, "write report row", path)
		}
	}
	return nil
}
