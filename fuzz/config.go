package fuzz

import (
	"errors"
	"fmt"
	"io"

	"github.com/hazaelsan/fuzzstream/delay"
	"gopkg.in/yaml.v3"
)

// ErrProbability is returned when a configured probability is outside [0, 1).
var ErrProbability = errors.New("probability out of range")

// Config is the static configuration of a Transform.
type Config struct {
	// PCombine is the probability that a unit is held back and combined with the next one.
	PCombine float64 `yaml:"p_combine"`

	// PZero is the probability of inserting a zero-length chunk each time a unit is cut up.
	PZero float64 `yaml:"p_zero"`

	// Delays is the distribution of delays induced before each output chunk.
	Delays delay.Distribution `yaml:"delays"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PCombine: 0.3,
		PZero:    0.2,
		Delays:   delay.Default(),
	}
}

// Validate checks that c can drive a Transform.
func (c Config) Validate() error {
	if !(c.PCombine >= 0 && c.PCombine < 1) {
		return fmt.Errorf("%w: p_combine = %v", ErrProbability, c.PCombine)
	}
	if !(c.PZero >= 0 && c.PZero < 1) {
		return fmt.Errorf("%w: p_zero = %v", ErrProbability, c.PZero)
	}
	return c.Delays.Validate()
}

// LoadConfig reads a YAML configuration from r.
// Fields absent from the document keep their default values.
func LoadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
