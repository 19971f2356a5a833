package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDuplicateSketchDetectsRepeats(t *testing.T) {
	d := newDuplicateSketch(8)
	d.observe("read1")
	d.observe("read2")
	d.observe("read1")
	require.Equal(t, 1, d.duplicateCount())
}

func TestDuplicateSketchNoFalsePositives(t *testing.T) {
	d := newDuplicateSketch(8)
	d.observe("read1")
	d.observe("read2")
	d.observe("read3")
	require.Equal(t, 0, d.duplicateCount())
}

// TestDuplicateSketchRespectsCapacity checks that observe stops recording
// once the sketch is full, rather than growing unbounded: ids seen only
// after the cap is reached are silently dropped, so a duplicate of one of
// them is never counted.
func TestDuplicateSketchRespectsCapacity(t *testing.T) {
	d := newDuplicateSketch(2)
	d.observe("a")
	d.observe("b")
	d.observe("c") // dropped: sketch already at capacity
	d.observe("c") // its duplicate is dropped too, since "c" was never recorded
	require.Equal(t, 0, d.duplicateCount())
}
