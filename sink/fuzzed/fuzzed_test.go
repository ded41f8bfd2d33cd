package fuzzed

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/hazaelsan/fuzzstream/delay"
	"github.com/hazaelsan/fuzzstream/fuzz"
)

var errWrite = errors.New("write error")

type appendWriter struct {
	mu     sync.Mutex
	s      []string
	err    error
	closed int
}

func (a *appendWriter) Write(b []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	a.s = append(a.s, string(b))
	return len(b), nil
}

func (a *appendWriter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed++
	return nil
}

func newFuzzed(w *appendWriter, seed uint64) *Fuzzed {
	return New(Options{
		Writer: w,
		Fuzz: fuzz.Options{
			Config: fuzz.Config{
				PCombine: 0.3,
				PZero:    0.2,
				Delays:   delay.Distribution{{P: 0.5, Min: 0, Max: 0}, {Min: 0, Max: 2}},
			},
			Rand: rand.New(rand.NewPCG(seed, seed)),
		},
	})
}

func TestFuzzed(t *testing.T) {
	input := []string{"foo\n", "bar baz\n", "", "quux"}
	for seed := uint64(0); seed < 10; seed++ {
		w := new(appendWriter)
		f := newFuzzed(w, seed)
		if err := f.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		buf := make([]byte, 16)
		for _, s := range input {
			// Reusing the buffer must not corrupt data held back by the transform.
			n := copy(buf, s)
			if _, err := f.Write(buf[:n]); err != nil {
				t.Errorf("Write(%q) error = %v", s, err)
			}
			for i := range buf {
				buf[i] = '#'
			}
		}
		if err := f.DoneRead(); err != nil {
			t.Errorf("DoneRead() error = %v", err)
		}
		if err := f.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
		want := strings.Join(input, "")
		if got := strings.Join(w.s, ""); got != want {
			t.Errorf("Fuzzed(seed=%v) = %q, want %q", seed, got, want)
		}
		if w.closed != 1 {
			t.Errorf("Fuzzed(seed=%v) Close() calls = %v, want 1", seed, w.closed)
		}
		if s := f.Stats(); s.BytesWritten != int64(len(want)) {
			t.Errorf("Fuzzed(seed=%v) Stats() = %+v", seed, s)
		}
	}
}

func TestFuzzed_writeError(t *testing.T) {
	w := &appendWriter{err: errWrite}
	f := newFuzzed(w, 1)
	var err error
	for i := 0; i < 10 && err == nil; i++ {
		_, err = f.Write([]byte("foo bar baz"))
	}
	if err == nil {
		err = f.DoneRead()
	}
	if !errors.Is(err, errWrite) {
		t.Errorf("Write() error = %v, want %v", err, errWrite)
	}
	if err := f.Wait(); !errors.Is(err, errWrite) {
		t.Errorf("Wait() error = %v, want %v", err, errWrite)
	}
	if err := f.Stop(); !errors.Is(err, errWrite) {
		t.Errorf("Stop() error = %v, want %v", err, errWrite)
	}
	if w.closed != 1 {
		t.Errorf("Close() calls = %v, want 1", w.closed)
	}
}
