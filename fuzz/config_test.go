package fuzz

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hazaelsan/fuzzstream/delay"
	"github.com/kylelemons/godebug/pretty"
)

func TestValidate(t *testing.T) {
	testdata := []struct {
		name string
		f    func(*Config)
		err  error
	}{
		{
			name: "default",
			f:    func(*Config) {},
		},
		{
			name: "negative p_combine",
			f:    func(c *Config) { c.PCombine = -0.1 },
			err:  ErrProbability,
		},
		{
			name: "p_zero of 1",
			f:    func(c *Config) { c.PZero = 1 },
			err:  ErrProbability,
		},
		{
			name: "NaN p_combine",
			f:    func(c *Config) { c.PCombine = math.NaN() },
			err:  ErrProbability,
		},
		{
			name: "NaN p_zero",
			f:    func(c *Config) { c.PZero = math.NaN() },
			err:  ErrProbability,
		},
		{
			name: "NaN delay probability",
			f:    func(c *Config) { c.Delays[0].P = math.NaN() },
			err:  delay.ErrProbability,
		},
		{
			name: "empty delays",
			f:    func(c *Config) { c.Delays = nil },
			err:  delay.ErrEmpty,
		},
	}
	for _, tt := range testdata {
		c := DefaultConfig()
		tt.f(&c)
		if err := c.Validate(); !errors.Is(err, tt.err) {
			t.Errorf("Validate(%v) error = %v, want %v", tt.name, err, tt.err)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	testdata := []struct {
		name string
		yaml string
		want Config
		ok   bool
	}{
		{
			name: "empty",
			want: DefaultConfig(),
			ok:   true,
		},
		{
			name: "partial",
			yaml: "p_combine: 0.5\n",
			want: Config{PCombine: 0.5, PZero: 0.2, Delays: delay.Default()},
			ok:   true,
		},
		{
			name: "full",
			yaml: `
p_combine: 0
p_zero: 0.1
delays:
  - p: 0.5
    min: 0
    max: 0
  - min: 10
    max: 20
`,
			want: Config{
				PZero:  0.1,
				Delays: delay.Distribution{{P: 0.5}, {Min: 10, Max: 20}},
			},
			ok: true,
		},
		{
			name: "unknown field",
			yaml: "p_split: 0.5\n",
		},
		{
			name: "bad probability",
			yaml: "p_zero: 2\n",
		},
		{
			name: "NaN p_zero",
			yaml: "p_zero: .nan\n",
		},
		{
			name: "bad delays",
			yaml: "delays:\n  - min: 5\n    max: 1\n",
		},
	}
	for _, tt := range testdata {
		got, err := LoadConfig(strings.NewReader(tt.yaml))
		if err != nil {
			if tt.ok {
				t.Errorf("LoadConfig(%v) error = %v", tt.name, err)
			}
			continue
		}
		if !tt.ok {
			t.Errorf("LoadConfig(%v) error = nil", tt.name)
		}
		if diff := pretty.Compare(got, tt.want); diff != "" {
			t.Errorf("LoadConfig(%v) -got +want:\n%v", tt.name, diff)
		}
	}
}
