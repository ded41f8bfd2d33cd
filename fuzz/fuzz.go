// Package fuzz implements a pass-through transform that re-chunks a byte stream
// and delays each chunk, in order to exercise corner cases in stream consumers.
//
// The content of the stream is never altered: units may be combined with the next one,
// cut into randomly sized (possibly empty) pieces and held back for a random delay,
// but every byte is emitted exactly once and in order.
package fuzz

import (
	"math/rand/v2"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/hazaelsan/fuzzstream/delay"
	"github.com/hazaelsan/fuzzstream/split"
	"go.uber.org/zap"
)

// Output receives the transformed stream.
type Output interface {
	// Push emits the next chunk.
	Push([]byte)

	// End indicates that there are no more chunks.
	End()
}

// Options is a set of options to instantiate a Transform.
type Options struct {
	Config

	// Rand is the source of all random decisions.
	// If nil a randomly seeded source is used.
	Rand *rand.Rand

	// Clock arms the delay timers. If nil the real clock is used.
	Clock clock.Clock

	// Logger is used for debug logging. If nil nothing is logged.
	Logger *zap.Logger

	// Metrics are updated as the stream is processed.
	// If nil unregistered collectors are used.
	Metrics *Metrics
}

// Stats are the accounting counters of a Transform.
// BytesRead equals BytesWritten once the stream has ended.
type Stats struct {
	BytesRead    int64
	BytesWritten int64
	Chunks       int64
}

// New instantiates a Transform writing to out.
// opts.Config must be valid, see Config.Validate.
func New(out Output, opts Options) *Transform {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Transform{
		cfg:     opts.Config,
		rng:     opts.Rand,
		clock:   opts.Clock,
		log:     opts.Logger,
		metrics: opts.Metrics,
		out:     out,
	}
}

// A Transform is a fuzzing pass-through stream stage.
//
// Calls to AcceptUnit and Finish must be serialized by the caller: a call may only be made
// once the completion function of the previous call has been invoked.
// Violating that contract panics.
type Transform struct {
	cfg     Config
	rng     *rand.Rand
	clock   clock.Clock
	log     *zap.Logger
	metrics *Metrics
	out     Output

	combine [][]byte // units held back for the next flush
	queue   [][]byte // chunks waiting to be emitted
	done    func()   // completion function of the unit being drained
	ending  bool     // done belongs to Finish
	ended   bool

	// Set while a delay is outstanding.
	timer      clock.Timer
	delayStart atomic.Int64
	delayDone  atomic.Int64

	nread    atomic.Int64
	nwritten atomic.Int64
	nchunks  atomic.Int64
}

func check(ok bool, msg string) {
	if !ok {
		panic("fuzz: " + msg)
	}
}

// AcceptUnit processes the next unit of the stream.
// done is invoked exactly once, after every byte of b has been emitted or, if b is
// held back to be combined with the next unit, as soon as b has been buffered.
// The Transform retains b, the caller must not modify it afterwards.
func (t *Transform) AcceptUnit(b []byte, done func()) {
	check(t.done == nil, "unit accepted while a completion signal is held")
	check(!t.ending && !t.ended, "unit accepted after end of stream")
	t.nread.Add(int64(len(b)))
	t.metrics.BytesRead.Add(float64(len(b)))

	if t.rng.Float64() < t.cfg.PCombine {
		t.combine = append(t.combine, b)
		t.metrics.Combined.Inc()
		t.log.Debug("combining unit", zap.Int("bytes", len(b)), zap.Int("held", len(t.combine)))
		go done()
		return
	}

	t.flushCombine()
	chunks := split.Random(t.rng, b, t.cfg.PZero)
	t.log.Debug("split unit", zap.Int("bytes", len(b)), zap.Int("chunks", len(chunks)))
	t.queue = append(t.queue, chunks...)
	t.done = done
	t.drain()
}

// Finish indicates the end of the stream.
// Any held back data is emitted, then the Output is ended and done is invoked.
func (t *Transform) Finish(done func()) {
	check(t.done == nil, "end of stream requested while a completion signal is held")
	check(!t.ending && !t.ended, "end of stream requested twice")
	t.flushCombine()
	if len(t.queue) == 0 {
		t.end()
		go done()
		return
	}
	t.done = done
	t.ending = true
	t.drain()
}

// Stats returns the accounting counters, it's safe to call at any time.
func (t *Transform) Stats() Stats {
	return Stats{
		BytesRead:    t.nread.Load(),
		BytesWritten: t.nwritten.Load(),
		Chunks:       t.nchunks.Load(),
	}
}

// Pending returns when the outstanding delay started and when it will expire.
// ok is false if no delay is outstanding.
func (t *Transform) Pending() (start, expiry time.Time, ok bool) {
	s, d := t.delayStart.Load(), t.delayDone.Load()
	if s == 0 {
		return time.Time{}, time.Time{}, false
	}
	return time.Unix(0, s), time.Unix(0, d), true
}

// flushCombine concatenates all held back units into a single queued chunk.
func (t *Transform) flushCombine() {
	if len(t.combine) == 0 {
		return
	}
	var n int
	for _, b := range t.combine {
		n += len(b)
	}
	buf := make([]byte, 0, n)
	for _, b := range t.combine {
		buf = append(buf, b...)
	}
	t.queue = append(t.queue, buf)
	t.combine = nil
}

// drain emits queued chunks until the queue is empty or a delay is armed.
func (t *Transform) drain() {
	for {
		check(t.timer == nil, "drain requested while a delay is outstanding")
		check(len(t.queue) > 0, "drain requested with an empty queue")
		d := delay.Sample(t.rng, t.cfg.Delays)
		t.metrics.Delay.Observe(d.Seconds())
		if d > 0 {
			t.arm(d)
			return
		}
		if !t.emitHead() {
			return
		}
	}
}

func (t *Transform) arm(d time.Duration) {
	now := t.clock.Now()
	t.delayStart.Store(now.UnixNano())
	t.delayDone.Store(now.Add(d).UnixNano())
	t.log.Debug("delaying chunk", zap.Duration("delay", d), zap.Int("queued", len(t.queue)))
	t.timer = t.clock.NewTimer(d)
	go func(c <-chan time.Time) {
		<-c
		t.timer = nil
		t.delayStart.Store(0)
		t.delayDone.Store(0)
		if t.emitHead() {
			t.drain()
		}
	}(t.timer.C())
}

// emitHead pushes the first queued chunk downstream.
// It returns true if more chunks are queued, otherwise the held completion function is invoked.
func (t *Transform) emitHead() bool {
	check(len(t.queue) > 0, "emit requested with an empty queue")
	b := t.queue[0]
	t.queue[0] = nil
	t.queue = t.queue[1:]
	t.nwritten.Add(int64(len(b)))
	t.nchunks.Add(1)
	t.metrics.BytesWritten.Add(float64(len(b)))
	t.metrics.Chunks.Inc()
	t.out.Push(b)

	if len(t.queue) > 0 {
		return true
	}
	check(t.done != nil, "emit requested with no held completion signal")
	done := t.done
	t.done = nil
	if t.ending {
		t.end()
	}
	done()
	return false
}

func (t *Transform) end() {
	t.ending = false
	t.ended = true
	t.log.Debug("end of stream", zap.Int64("read", t.nread.Load()), zap.Int64("written", t.nwritten.Load()))
	t.out.End()
}
