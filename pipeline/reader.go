package pipeline

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"blainsmith.com/go/seahash"
	"github.com/cherryamme/jasper/encoding/fastq"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// readerBufSize is the buffered-reader size wrapped around each input file,
// large enough that FASTQ parsing rarely hits the underlying syscall.
const readerBufSize = 10 << 20 // 10 MiB

// spawnReaders starts one goroutine per input path ("-" meaning stdin),
// each parsing FASTQ records and sending RawReads to out. Callers must wait
// on the returned WaitGroup before closing out. Any fatal per-file error is
// recorded on errp; other files continue to completion regardless.
func spawnReaders(ctx context.Context, paths []string, out chan<- RawRead, errp *errors.Once, dupSketch *duplicateSketch) *sync.WaitGroup {
	var wg sync.WaitGroup
	for _, p := range paths {
		path := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := readFile(ctx, path, out, dupSketch); err != nil {
				errp.Set(errors.E(err, "read input", path))
			}
		}()
	}
	return &wg
}

func readFile(ctx context.Context, path string, out chan<- RawRead, dupSketch *duplicateSketch) error {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := file.Open(ctx, path)
		if err != nil {
			return errors.E(errors.NotExist, err, "open")
		}
		defer f.Close(ctx)
		r = f.Reader(ctx)
	}

	src := io.Reader(bufio.NewReaderSize(r, readerBufSize))
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(src)
		if err != nil {
			return errors.E(errors.Invalid, err, "gzip header")
		}
		gz.Multistream(true)
		defer gz.Close()
		src = gz
	}

	scanner := fastq.NewScanner(src, fastq.All)
	var rec fastq.Read
	n := 0
	for scanner.Scan(&rec) {
		id := strings.TrimPrefix(rec.ID, "@")
		if dupSketch != nil {
			dupSketch.observe(id)
		}
		out <- RawRead{ID: id, Seq: []byte(rec.Seq), Qual: []byte(rec.Qual)}
		n++
	}
	if err := scanner.Err(); err != nil {
		return errors.E(errors.Invalid, err, "malformed fastq record", n)
	}
	log.Info.Printf("%s: %d reads", path, n)
	return nil
}

// duplicateSketch is a bounded, best-effort sample of read-id hashes used
// only for an informational "possible duplicate read IDs" log line at
// shutdown; it never influences routing or classification.
type duplicateSketch struct {
	mu   sync.Mutex
	seen map[uint64]int
	cap  int
}

func newDuplicateSketch(capacity int) *duplicateSketch {
	return &duplicateSketch{seen: make(map[uint64]int, capacity), cap: capacity}
}

func (d *duplicateSketch) observe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.seen) >= d.cap {
		return
	}
	d.seen[seahash.Sum64([]byte(id))]++
}

func (d *duplicateSketch) duplicateCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.seen {
		if c > 1 {
			n++
		}
	}
	return n
}
