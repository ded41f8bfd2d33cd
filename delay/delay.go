// Package delay samples randomized propagation delays from a discrete distribution.
package delay

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	// ErrEmpty is returned when a distribution has no entries.
	ErrEmpty = errors.New("empty delay distribution")

	// ErrProbability is returned when the probabilities of a distribution are invalid.
	ErrProbability = errors.New("invalid delay probability")

	// ErrRange is returned when an entry's [min, max] range is invalid.
	ErrRange = errors.New("invalid delay range")
)

// A Range is one entry of a Distribution.
// Min and Max are in milliseconds.
type Range struct {
	// P is the probability mass of this entry.
	// If <= 0 the entry has no weight of its own and receives whatever mass is left.
	P float64 `yaml:"p,omitempty"`

	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// A Distribution is an ordered list of delay ranges.
// The last entry receives the remaining probability mass.
type Distribution []Range

// Default returns the default distribution:
// most delays are short, some take a bit longer and about 1% take a few seconds.
func Default() Distribution {
	return Distribution{
		{P: 0.20, Min: 0, Max: 0},
		{P: 0.64, Min: 0, Max: 10},
		{P: 0.15, Min: 0, Max: 100},
		{Min: 1000, Max: 3000},
	}
}

// Validate checks that d can be sampled.
func (d Distribution) Validate() error {
	if len(d) == 0 {
		return ErrEmpty
	}
	var c float64
	for i, e := range d {
		if e.Min < 0 || e.Max < e.Min {
			return fmt.Errorf("%w: entry %v [%v, %v]", ErrRange, i, e.Min, e.Max)
		}
		if i == len(d)-1 {
			continue
		}
		if !(e.P > 0) {
			return fmt.Errorf("%w: entry %v has no probability", ErrProbability, i)
		}
		c += e.P
	}
	if !(c < 1) {
		return fmt.Errorf("%w: probabilities sum to %v, want < 1", ErrProbability, c)
	}
	return nil
}

// pick returns the index of the entry selected by a uniform draw from r.
func pick(r *rand.Rand, d Distribution) int {
	if len(d) == 0 {
		panic("delay: sampling an empty distribution")
	}
	u := r.Float64()
	var c float64
	i := 0
	for ; i < len(d)-1; i++ {
		if d[i].P <= 0 {
			break
		}
		c += d[i].P
		if u < c {
			break
		}
	}
	return i
}

// Sample returns a random delay drawn from d, in whole milliseconds.
// Sample panics if d is empty.
func Sample(r *rand.Rand, d Distribution) time.Duration {
	e := d[pick(r, d)]
	ms := e.Min + int(r.Float64()*float64(e.Max-e.Min))
	return time.Duration(ms) * time.Millisecond
}
