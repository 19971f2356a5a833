package pipeline

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/klauspost/compress/gzip"
)

// diagLogWriter collects one diag_line per read into a single gzip-compressed
// file, the aggregate "reads_log.gz" the output tree always carries.
type diagLogWriter struct {
	f  *os.File
	gz *gzip.Writer
	bw *bufio.Writer
}

func newDiagLogWriter(outdir string) (*diagLogWriter, error) {
	path := filepath.Join(outdir, "reads_log.gz")
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.E(err, "create diagnostic log", path)
	}
	gz := gzip.NewWriter(f)
	return &diagLogWriter{f: f, gz: gz, bw: bufio.NewWriterSize(gz, writerBufSize)}, nil
}

func (d *diagLogWriter) writeLine(line string) error {
	if _, err := d.bw.WriteString(line); err != nil {
		return err
	}
	return d.bw.WriteByte('\n')
}

func (d *diagLogWriter) Close() error {
	if err := d.bw.Flush(); err != nil {
		return errors.E(err, "flush diagnostic log")
	}
	if err := d.gz.Close(); err != nil {
		return errors.E(err, "gzip close diagnostic log")
	}
	if err := d.f.Close(); err != nil {
		return errors.E(err, "close diagnostic log")
	}
	return nil
}
