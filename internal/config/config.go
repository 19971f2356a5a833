// Package config parses and validates the jasper CLI surface, then derives
// the splitter/classify layer configuration the pipeline runs against.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/cherryamme/jasper/catalog"
	"github.com/cherryamme/jasper/classify"
	"github.com/cherryamme/jasper/splitter"
	"github.com/grailbio/base/errors"
)

// Config is the fully-parsed, not-yet-validated CLI surface.
type Config struct {
	Inputs  []string
	Outdir  string
	Threads int

	DB           string
	DBPassphrase string

	PatternFiles    []string // one pair-file path per layer
	PatternMatch    []string // "single" or "dual" per layer
	WindowLeft      int
	WindowRight     int
	ErrRateLeft     []float64
	ErrRateRight    []float64
	MaxDist         []int
	Shift           []int
	RefineFromPrior bool

	TrimN     int
	MinLength int
	WriteType string // "names" or "type"
	IDSep     string
	LogNum    int

	FusionFile    string
	FusionErrRate float64

	CacheDir string
}

// commaFlag accumulates repeated flag occurrences, each itself possibly a
// comma-separated list, into a flat slice of strings.
type commaFlag struct{ values *[]string }

func (f commaFlag) String() string {
	if f.values == nil {
		return ""
	}
	return strings.Join(*f.values, ",")
}

func (f commaFlag) Set(s string) error {
	*f.values = append(*f.values, strings.Split(s, ",")...)
	return nil
}

// Parse parses args (excluding the program name) into a Config. It does not
// validate; call Validate afterward.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("jasper", flag.ContinueOnError)

	cfg := &Config{}
	var inputs, patternFiles, patternMatch, errRateLeft, errRateRight, maxDist, shift []string
	fs.Var(commaFlag{&inputs}, "inputs", "input FASTQ path(s), or \"-\" for stdin (repeatable, comma-separated)")
	fs.StringVar(&cfg.Outdir, "outdir", ".", "output directory")
	fs.IntVar(&cfg.Threads, "threads", 4, "splitter worker count")

	fs.StringVar(&cfg.DB, "db", "", "pattern database file (plaintext or .safe)")
	fs.StringVar(&cfg.DBPassphrase, "db-passphrase", os.Getenv("JASPER_DB_PASSPHRASE"), "passphrase for an encrypted .safe pattern db")
	fs.Var(commaFlag{&patternFiles}, "pattern-files", "pair file path, one per layer (repeatable)")
	fs.Var(commaFlag{&patternMatch}, "pattern-match", "single|dual, one per layer (repeatable)")

	var windowSize string
	fs.StringVar(&windowSize, "window-size", "30,30", "left,right global window size")
	fs.Var(commaFlag{&errRateLeft}, "pattern-errate-left", "left error rate, one per layer (repeatable)")
	fs.Var(commaFlag{&errRateRight}, "pattern-errate-right", "right error rate, one per layer (repeatable)")
	fs.Var(commaFlag{&maxDist}, "pattern-maxdist", "max score delta for dual acceptance, one per layer (repeatable)")
	fs.Var(commaFlag{&shift}, "pattern-shift", "window refinement shift, one per layer (repeatable)")
	fs.BoolVar(&cfg.RefineFromPrior, "pos", false, "enable window refinement from the prior layer's match positions")

	fs.IntVar(&cfg.TrimN, "trim-n", 0, "index of the layer whose match bounds define the trim window")
	fs.IntVar(&cfg.MinLength, "min-length", 0, "reads at or below this length are classified as filtered")
	fs.StringVar(&cfg.WriteType, "write-type", "type", "names|type: basis for out_key/out_id construction")
	fs.StringVar(&cfg.IDSep, "id-sep", "%", "separator joining id/strand/out_id in rewritten record ids")
	fs.IntVar(&cfg.LogNum, "log-num", 1_000_000, "emit a throughput log line every N reads")

	fs.StringVar(&cfg.FusionFile, "fusion", "", "optional fusion pattern file enabling the fusion-veto pass")
	fs.Float64Var(&cfg.FusionErrRate, "fusion-errate", 0.1, "error rate for the fusion pass")

	fs.StringVar(&cfg.CacheDir, "cache-dir", "", "optional on-disk pattern catalog cache directory")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Inputs = inputs
	cfg.PatternFiles = patternFiles
	cfg.PatternMatch = patternMatch

	l, r, err := parseWindowSize(windowSize)
	if err != nil {
		return nil, err
	}
	cfg.WindowLeft, cfg.WindowRight = l, r

	if cfg.ErrRateLeft, err = parseFloats(errRateLeft); err != nil {
		return nil, err
	}
	if cfg.ErrRateRight, err = parseFloats(errRateRight); err != nil {
		return nil, err
	}
	if cfg.MaxDist, err = parseInts(maxDist); err != nil {
		return nil, err
	}
	if cfg.Shift, err = parseInts(shift); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseWindowSize(s string) (left, right int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, errors.E(errors.Invalid, "--window-size expects \"L,R\"", s)
	}
	if left, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, errors.E(errors.Invalid, err, "--window-size left")
	}
	if right, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, errors.E(errors.Invalid, err, "--window-size right")
	}
	return left, right, nil
}

func parseFloats(xs []string) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		v, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, "expected a float", x)
		}
		out[i] = v
	}
	return out, nil
}

func parseInts(xs []string) ([]int, error) {
	out := make([]int, len(xs))
	for i, x := range xs {
		v, err := strconv.Atoi(x)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, "expected an int", x)
		}
		out[i] = v
	}
	return out, nil
}

// Validate checks the parsed Config for consistency. Every check runs, but
// failures are recorded in an errors.Once, which keeps only the first: the
// returned error names the first problem found, not all of them.
func (c *Config) Validate() error {
	var errp errors.Once

	if len(c.Inputs) == 0 {
		errp.Set(errors.E(errors.Invalid, "--inputs is required"))
	}
	if c.DB == "" {
		errp.Set(errors.E(errors.Invalid, "--db is required"))
	}
	if c.Threads <= 0 {
		errp.Set(errors.E(errors.Invalid, "--threads must be positive"))
	}
	n := len(c.PatternFiles)
	if n == 0 {
		errp.Set(errors.E(errors.Invalid, "at least one --pattern-files is required"))
	}
	checkLen := func(name string, got int) {
		if got != n {
			errp.Set(errors.E(errors.Invalid, name, "length must match --pattern-files", got, n))
		}
	}
	checkLen("--pattern-match", len(c.PatternMatch))
	checkLen("--pattern-errate-left", len(c.ErrRateLeft))
	checkLen("--pattern-errate-right", len(c.ErrRateRight))
	checkLen("--pattern-maxdist", len(c.MaxDist))
	checkLen("--pattern-shift", len(c.Shift))

	for _, rate := range append(append([]float64{}, c.ErrRateLeft...), c.ErrRateRight...) {
		if rate < 0 || rate > 0.5 {
			errp.Set(errors.E(errors.Invalid, "error rate must be in [0, 0.5]", rate))
		}
	}
	for _, m := range c.PatternMatch {
		if m != "single" && m != "dual" {
			errp.Set(errors.E(errors.Invalid, "--pattern-match must be single or dual", m))
		}
	}
	if c.WriteType != "names" && c.WriteType != "type" {
		errp.Set(errors.E(errors.Invalid, "--write-type must be names or type", c.WriteType))
	}
	if c.TrimN < 0 || c.TrimN >= n {
		errp.Set(errors.E(errors.Invalid, "--trim-n out of range", c.TrimN))
	}
	return errp.Err()
}

// LayerConfigs derives []splitter.LayerConfig from the parsed flags, given
// the already-loaded per-layer catalogs (one per --pattern-files entry, in
// the same order).
func (c *Config) LayerConfigs(catalogs []*catalog.PatternCatalog) []splitter.LayerConfig {
	layers := make([]splitter.LayerConfig, len(catalogs))
	for i, cat := range catalogs {
		layers[i] = splitter.LayerConfig{
			Catalog:         cat,
			ErrRateLeft:     c.ErrRateLeft[i],
			ErrRateRight:    c.ErrRateRight[i],
			MaxDist:         c.MaxDist[i],
			Shift:           c.Shift[i],
			RefineFromPrior: c.RefineFromPrior,
			MatchPolicy:     c.Policies()[i],
		}
	}
	return layers
}

// ClassifyConfig derives the classify.Config this run's settings imply,
// given an already-loaded (possibly nil) fusion catalog.
func (c *Config) ClassifyConfig(fusionCatalog *catalog.FusionCatalog) classify.Config {
	return classify.Config{
		TrimN:         c.TrimN,
		MinLength:     c.MinLength,
		WriteType:     c.writeType(),
		IDSep:         c.IDSep,
		FusionCatalog: fusionCatalog,
		FusionErrRate: c.FusionErrRate,
	}
}

// writeType maps the --write-type flag to classify's WriteType enum.
func (c *Config) writeType() classify.WriteType {
	if c.WriteType == "names" {
		return classify.WriteTypeNames
	}
	return classify.WriteTypeType
}

// Policies maps --pattern-match to []splitter.MatchPolicy.
func (c *Config) Policies() []splitter.MatchPolicy {
	out := make([]splitter.MatchPolicy, len(c.PatternMatch))
	for i, m := range c.PatternMatch {
		if m == "dual" {
			out[i] = splitter.PolicyDual
		} else {
			out[i] = splitter.PolicySingle
		}
	}
	return out
}
