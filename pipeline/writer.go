package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/biogo/store/llrb"
	"github.com/cherryamme/jasper/classify"
	"github.com/cherryamme/jasper/encoding/fastq"
	"github.com/grailbio/base/errors"
	"github.com/klauspost/compress/gzip"
)

// writerBufSize is the buffered-writer size wrapped around each output
// file's gzip stream.
const writerBufSize = 1 << 20 // 1 MiB

// outKey is an llrb.Comparable wrapper so WriterManager can track observed
// out_keys in deterministic lexicographic order for the final summary.
type outKey string

func (k outKey) Compare(c llrb.Comparable) int {
	other := c.(outKey)
	switch {
	case k < other:
		return -1
	case k > other:
		return 1
	default:
		return 0
	}
}

type writerHandle struct {
	ch   chan *classify.ClassifiedRead
	done chan struct{}
}

// WriterManager owns one goroutine per observed out_key, each serializing
// record writes into that key's gzip-compressed FASTQ stream. Writer
// goroutines are spawned lazily, on first sight of an out_key.
type WriterManager struct {
	outdir      string
	idSep       string
	subChanSize int
	errp        *errors.Once

	mu      sync.Mutex
	writers map[string]*writerHandle
	seen    llrb.Tree
}

// NewWriterManager constructs a WriterManager writing under outdir, using
// idSep to join the rewritten record id, and sizing each per-out_key
// sub-channel to subChanSize.
func NewWriterManager(outdir, idSep string, subChanSize int, errp *errors.Once) *WriterManager {
	return &WriterManager{
		outdir:      outdir,
		idSep:       idSep,
		subChanSize: subChanSize,
		errp:        errp,
		writers:     map[string]*writerHandle{},
		seen:        llrb.Tree{},
	}
}

// Dispatch routes cr to its out_key's writer goroutine, spawning one if this
// is the first read seen for that key.
func (m *WriterManager) Dispatch(cr *classify.ClassifiedRead) {
	m.mu.Lock()
	h, ok := m.writers[cr.OutKey]
	if !ok {
		h = m.spawnWriter(cr.OutKey)
		m.writers[cr.OutKey] = h
		m.seen.Insert(outKey(cr.OutKey))
	}
	m.mu.Unlock()
	h.ch <- cr
}

func (m *WriterManager) spawnWriter(key string) *writerHandle {
	h := &writerHandle{
		ch:   make(chan *classify.ClassifiedRead, m.subChanSize),
		done: make(chan struct{}),
	}
	go m.drain(key, h)
	return h
}

func (m *WriterManager) drain(key string, h *writerHandle) {
	defer close(h.done)

	path := filepath.Join(m.outdir, key+".fq.gz")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		m.errp.Set(errors.E(err, "mkdir output dir", filepath.Dir(path)))
		drainUnblock(h.ch)
		return
	}
	f, err := os.Create(path)
	if err != nil {
		m.errp.Set(errors.E(err, "create output file", path))
		drainUnblock(h.ch)
		return
	}
	gz := gzip.NewWriter(f)
	bw := bufio.NewWriterSize(gz, writerBufSize)
	fw := fastq.NewWriter(bw)

	for cr := range h.ch {
		id := fmt.Sprintf("@%s%s%s%s%s", cr.ID, m.idSep, cr.Strand, m.idSep, cr.OutID)
		rec := fastq.Read{
			ID:   id,
			Seq:  string(cr.Seq[cr.TrimStart:cr.TrimEnd]),
			Unk:  "+",
			Qual: string(cr.Qual[cr.TrimStart:cr.TrimEnd]),
		}
		if err := fw.Write(&rec); err != nil {
			m.errp.Set(errors.E(err, "write record", path))
		}
	}
	if err := bw.Flush(); err != nil {
		m.errp.Set(errors.E(err, "flush output", path))
	}
	if err := gz.Close(); err != nil {
		m.errp.Set(errors.E(err, "gzip close", path))
	}
	if err := f.Close(); err != nil {
		m.errp.Set(errors.E(err, "close output", path))
	}
}

// drainUnblock empties ch without doing anything, so that upstream
// dispatchers sending to a writer that failed to open its file don't block
// forever.
func drainUnblock(ch <-chan *classify.ClassifiedRead) {
	for range ch {
	}
}

// Close closes every sub-channel and waits for each writer goroutine to
// drain and finalize its gzip stream. Call only after every Dispatch call
// has returned.
func (m *WriterManager) Close() {
	m.mu.Lock()
	handles := make([]*writerHandle, 0, len(m.writers))
	for _, h := range m.writers {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		close(h.ch)
	}
	for _, h := range handles {
		<-h.done
	}
}

// OutKeys returns every observed out_key in deterministic lexicographic
// order, for the final summary log.
func (m *WriterManager) OutKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.writers))
	m.seen.Do(func(c llrb.Comparable) (done bool) {
		keys = append(keys, string(c.(outKey)))
		return false
	})
	return keys
}
