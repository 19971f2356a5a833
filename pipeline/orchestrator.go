package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/cherryamme/jasper/classify"
	"github.com/cherryamme/jasper/splitter"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"golang.org/x/sys/unix"
)

// Options wires one end-to-end demultiplexing run: input paths, output
// directory, the splitter layers/policies, the classifier settings, and
// throughput logging cadence.
type Options struct {
	Inputs  []string
	Outdir  string
	Threads int

	Layers                  []splitter.LayerConfig
	Policies                []splitter.MatchPolicy
	WindowLeft, WindowRight int

	ClassifyConfig classify.Config
	IDSep          string
	LogNum         int
}

// Run executes reader -> splitter pool -> (counter, writer dispatch) to
// completion, writes the diagnostic log and summary reports, and returns the
// first fatal error observed across every stage, if any.
func Run(ctx context.Context, opts Options) error {
	raiseFileLimit()

	if err := os.MkdirAll(opts.Outdir, 0o755); err != nil {
		return errors.E(err, "create output directory", opts.Outdir)
	}

	chanSize := maxInt(64, 2*opts.Threads)
	subChanSize := maxInt(16, opts.Threads)

	var errp errors.Once
	dupSketch := newDuplicateSketch(1 << 16)

	rawCh := make(chan RawRead, chanSize)
	readerWG := spawnReaders(ctx, opts.Inputs, rawCh, &errp, dupSketch)
	go func() {
		readerWG.Wait()
		close(rawCh)
	}()

	classifiedCh := make(chan classify.ClassifiedRead, chanSize)
	workerWG := spawnWorkers(opts.Threads, rawCh, classifiedCh, opts.Layers, opts.Policies, opts.WindowLeft, opts.WindowRight, opts.ClassifyConfig)
	go func() {
		workerWG.Wait()
		close(classifiedCh)
	}()

	diagLog, err := newDiagLogWriter(opts.Outdir)
	if err != nil {
		return err
	}
	counter := NewCounter(opts.Outdir)
	writers := NewWriterManager(opts.Outdir, opts.IDSep, subChanSize, &errp)

	start := time.Now()
	n := 0
	for cr := range classifiedCh {
		counter.Observe(&cr)
		if err := diagLog.writeLine(cr.DiagLine); err != nil {
			errp.Set(errors.E(err, "write diagnostic log"))
		}
		if cr.EmitToFastq {
			writers.Dispatch(&cr)
		}
		n++
		if opts.LogNum > 0 && n%opts.LogNum == 0 {
			log.Info.Printf("%d reads (%.0f reads/s)", n, float64(n)/time.Since(start).Seconds())
		}
	}

	writers.Close()
	if err := diagLog.Close(); err != nil {
		errp.Set(err)
	}
	counter.Info()
	if dup := dupSketch.duplicateCount(); dup > 0 {
		log.Info.Printf("possible duplicate read IDs in sample: %d", dup)
	}
	if err := counter.WriteReports(); err != nil {
		errp.Set(err)
	}
	for _, key := range writers.OutKeys() {
		log.Debug.Printf("out_key observed: %s", key)
	}

	return errp.Err()
}

// raiseFileLimit bumps RLIMIT_NOFILE to its hard limit, since the number of
// concurrently open per-out_key output files is not bounded in advance.
// Failure is logged, not fatal: the run proceeds with whatever limit the
// environment already provides.
func raiseFileLimit() {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		log.Error.Printf("getrlimit RLIMIT_NOFILE failed: %v", err)
		return
	}
	rlimit.Cur = rlimit.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		log.Error.Printf("setrlimit RLIMIT_NOFILE failed: %v", err)
		return
	}
	log.Info.Printf("RLIMIT_NOFILE raised to %d", rlimit.Cur)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
