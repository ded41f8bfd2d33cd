// Package fuzzed implements a sink that re-chunks and delays its input before passing it on.
package fuzzed

import (
	"io"
	"sync"

	"github.com/hazaelsan/fuzzstream/fuzz"
	"github.com/hazaelsan/fuzzstream/sink"
	"go.uber.org/zap"
)

// Options is a set of options to instantiate a Fuzzed sink.
type Options struct {
	// Writer receives the fuzzed stream, it's closed at the end of the stream.
	Writer io.WriteCloser

	// Fuzz configures the underlying transform.
	Fuzz fuzz.Options
}

// New instantiates a Fuzzed sink.
func New(opts Options) *Fuzzed {
	f := &Fuzzed{w: opts.Writer}
	if opts.Fuzz.Logger == nil {
		opts.Fuzz.Logger = zap.NewNop()
	}
	f.log = opts.Fuzz.Logger
	f.t = fuzz.New(f, opts.Fuzz)
	return f
}

// A Fuzzed sink feeds a fuzz.Transform and writes its output to an io.WriteCloser.
// Write and DoneRead block until the transform is ready for more data.
type Fuzzed struct {
	w   io.WriteCloser
	t   *fuzz.Transform
	log *zap.Logger

	mu     sync.Mutex
	err    error
	closed bool
}

// Push implements fuzz.Output.
// Chunks are dropped once writing has failed.
func (f *Fuzzed) Push(b []byte) {
	if f.Err() != nil {
		return
	}
	if _, err := f.w.Write(b); err != nil {
		f.log.Debug("downstream write failed", zap.Error(err))
		f.setErr(err)
	}
}

// End implements fuzz.Output, it closes the underlying Writer.
func (f *Fuzzed) End() {
	f.close()
}

// Start starts up the sink.
func (*Fuzzed) Start() error {
	return nil
}

// Stop shuts down the sink, closing the underlying Writer if the stream didn't end.
func (f *Fuzzed) Stop() error {
	f.close()
	return f.Err()
}

// DoneRead ends the stream and blocks until all held back data has been written.
func (f *Fuzzed) DoneRead() error {
	done := make(chan struct{})
	f.t.Finish(func() { close(done) })
	<-done
	return f.Err()
}

// Wait returns the first error encountered writing downstream, if any.
func (f *Fuzzed) Wait() error {
	return f.Err()
}

// Write passes b through the transform.
// It returns once b has been written downstream or held back to be combined with the next unit.
func (f *Fuzzed) Write(b []byte) (int, error) {
	if err := f.Err(); err != nil {
		return 0, err
	}
	u := make([]byte, len(b))
	copy(u, b)
	done := make(chan struct{})
	f.t.AcceptUnit(u, func() { close(done) })
	<-done
	if err := f.Err(); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Stats returns the accounting counters of the underlying transform.
func (f *Fuzzed) Stats() sink.Stats {
	s := f.t.Stats()
	return sink.Stats{
		BytesRead:    s.BytesRead,
		BytesWritten: s.BytesWritten,
		Chunks:       s.Chunks,
	}
}

// Err returns the first error encountered writing downstream, if any.
func (f *Fuzzed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *Fuzzed) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

func (f *Fuzzed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	if err := f.w.Close(); err != nil && f.err == nil {
		f.err = err
	}
}
