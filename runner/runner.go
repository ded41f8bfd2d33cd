// Package runner reads an input stream, frames it into units and feeds them to a sink.
package runner

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/hazaelsan/fuzzstream/sink"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options is a set of options to initialize a Runner.
type Options struct {
	// Reader is the input source for bytes to write.
	Reader io.Reader

	// Sink is the downstream stage that receives each unit.
	Sink sink.Sink

	// SplitFunc is the function used to frame the input into units.
	SplitFunc bufio.SplitFunc

	// BufferSize is the maximum size of a unit, bufio.MaxScanTokenSize if <= 0.
	BufferSize int

	// WaitDuration is how long to wait after the Sink has indicated
	// it's ready before writing the next unit.
	WaitDuration time.Duration

	// Logger is used for debug logging. If nil nothing is logged.
	Logger *zap.Logger
}

// New initializes a Runner.
func New(opts Options) *Runner {
	r := &Runner{
		s:    bufio.NewScanner(opts.Reader),
		sink: opts.Sink,
		wait: opts.WaitDuration,
		log:  opts.Logger,
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if opts.BufferSize > 0 {
		r.s.Buffer(make([]byte, 0, opts.BufferSize), opts.BufferSize)
	}
	r.s.Split(opts.SplitFunc)
	return r
}

// A Runner copies units from a reader to a sink.
type Runner struct {
	s     *bufio.Scanner
	sink  sink.Sink
	wait  time.Duration
	log   *zap.Logger
	units int
}

// Run copies bytes from the source reader to the sink until the input is exhausted,
// an error occurs or ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.sink.Start(); err != nil {
		return err
	}
	c := make(chan []byte)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.reader(ctx, c) })
	g.Go(func() error { return r.writer(ctx, c) })
	if err := g.Wait(); err != nil {
		r.sink.Stop()
		return err
	}
	r.log.Debug("input done", zap.Int("units", r.units))
	return r.sink.Stop()
}

func (r *Runner) reader(ctx context.Context, c chan<- []byte) error {
	defer close(c)
	for r.s.Scan() {
		// The scanner reuses its buffer.
		b := append([]byte(nil), r.s.Bytes()...)
		select {
		case c <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.s.Err()
}

func (r *Runner) writer(ctx context.Context, c <-chan []byte) error {
	for {
		select {
		case b, ok := <-c:
			if !ok {
				return r.sink.DoneRead()
			}
			r.units++
			if err := sink.Write(r.sink, b, r.wait); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
