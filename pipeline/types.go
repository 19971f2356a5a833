// Package pipeline wires the reader, splitter worker pool, counter, and
// writer manager into the end-to-end demultiplexing run.
package pipeline

// RawRead is one FASTQ record as produced by the reader, before any
// splitting or classification.
type RawRead struct {
	ID   string
	Seq  []byte
	Qual []byte
}
