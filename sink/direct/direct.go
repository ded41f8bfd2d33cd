// Package direct implements a sink that passes every unit through unchanged.
// It's the baseline to compare fuzzed runs against: it keeps the same counts as a fuzzed sink,
// with one chunk per input unit.
package direct

import (
	"io"
	"sync/atomic"

	"github.com/hazaelsan/fuzzstream/sink"
)

// New instantiates a direct sink.
func New(w io.WriteCloser) *Direct {
	return &Direct{w: w}
}

// A Direct is a pass-through sink.
type Direct struct {
	w io.WriteCloser

	nread    atomic.Int64
	nwritten atomic.Int64
	nchunks  atomic.Int64
}

// Start starts up the sink.
func (*Direct) Start() error {
	return nil
}

// Stop shuts down the sink.
func (d *Direct) Stop() error {
	return d.w.Close()
}

// DoneRead indicates that there is no more data to be read into the sink.
func (*Direct) DoneRead() error {
	return nil
}

// Wait is a no-op for this sink.
func (*Direct) Wait() error {
	return nil
}

// Write writes the next unit of data to the underlying Writer.
func (d *Direct) Write(b []byte) (int, error) {
	d.nread.Add(int64(len(b)))
	n, err := d.w.Write(b)
	d.nwritten.Add(int64(n))
	d.nchunks.Add(1)
	return n, err
}

// Stats returns the byte and chunk counts so far.
func (d *Direct) Stats() sink.Stats {
	return sink.Stats{
		BytesRead:    d.nread.Load(),
		BytesWritten: d.nwritten.Load(),
		Chunks:       d.nchunks.Load(),
	}
}
