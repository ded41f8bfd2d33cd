// fuzzstream re-chunks and delays a byte stream to exercise corner cases in its consumer.
//
// Usage:
//	$ some_producer | fuzzstream | some_consumer --consumer_args...
//	$ some_producer | fuzzstream -- some_consumer --consumer_args...
//
// The content of the stream is never altered, only the size and timing of the writes.
// In the second form the consumer's exit status becomes fuzzstream's.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"regexp"
	"time"

	"github.com/hazaelsan/fuzzstream/command"
	"github.com/hazaelsan/fuzzstream/fuzz"
	"github.com/hazaelsan/fuzzstream/runner"
	"github.com/hazaelsan/fuzzstream/sink"
	"github.com/hazaelsan/fuzzstream/sink/direct"
	"github.com/hazaelsan/fuzzstream/sink/fuzzed"
	"github.com/hazaelsan/fuzzstream/split"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	interval    time.Duration
	size        uint
	split       string
	config      string
	pCombine    float64
	pZero       float64
	seed        uint64
	passthrough bool
	stats       bool
	metricsAddr string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	o := new(options)
	cmd := &cobra.Command{
		Use:           "fuzzstream [flags] [--] [consumer [consumer_args...]]",
		Short:         "Re-chunk and delay a byte stream to exercise its consumer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, o, args)
		},
	}
	f := cmd.Flags()
	f.SetInterspersed(false)
	f.DurationVar(&o.interval, "interval", 0, "how long to wait before handing the next input unit to the fuzzer")
	f.UintVar(&o.size, "size", 64*1024, "maximum number of bytes per input unit, overrides --split if > 0")
	f.StringVar(&o.split, "split", "\n", "regular expression on which to split stdin if --size is 0")
	f.StringVar(&o.config, "config", "", "YAML file with the fuzzer configuration")
	f.Float64Var(&o.pCombine, "p_combine", 0.3, "probability that an input unit is combined with the next one")
	f.Float64Var(&o.pZero, "p_zero", 0.2, "probability of inserting a zero-length chunk each time a unit is cut up")
	f.Uint64Var(&o.seed, "seed", 0, "random seed, a random one is used if 0")
	f.BoolVar(&o.passthrough, "passthrough", false, "pass the input through unchanged")
	f.BoolVar(&o.stats, "stats", false, "print byte and chunk counts to stderr at the end of the stream")
	f.StringVar(&o.metricsAddr, "metrics_addr", "", "address on which to serve Prometheus metrics")
	f.BoolVar(&o.verbose, "verbose", false, "log every fuzzing decision")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func newSplitFunc(size int, pat string) (bufio.SplitFunc, error) {
	if size > 0 {
		return split.BySize(size), nil
	}
	if pat == "" {
		return nil, errors.New("empty split pattern")
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, err
	}
	return split.ByRE(re), nil
}

// newConfig loads the fuzzer configuration, flags set on the command line take precedence.
func newConfig(o *options, changed func(string) bool) (fuzz.Config, error) {
	cfg := fuzz.DefaultConfig()
	if o.config != "" {
		f, err := os.Open(o.config)
		if err != nil {
			return fuzz.Config{}, err
		}
		defer f.Close()
		if cfg, err = fuzz.LoadConfig(f); err != nil {
			return fuzz.Config{}, fmt.Errorf("%v: %w", o.config, err)
		}
	}
	if changed("p_combine") {
		cfg.PCombine = o.pCombine
	}
	if changed("p_zero") {
		cfg.PZero = o.pZero
	}
	if err := cfg.Validate(); err != nil {
		return fuzz.Config{}, err
	}
	return cfg, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}

func writeCloser(w io.Writer) io.WriteCloser {
	if wc, ok := w.(io.WriteCloser); ok {
		return wc
	}
	return nopCloser{w}
}

// newSeed returns the --seed flag, or a random seed if unset.
// A random seed is logged so the run can be reproduced.
func newSeed(o *options, log *zap.Logger) uint64 {
	if o.seed != 0 || o.passthrough {
		return o.seed
	}
	seed := rand.Uint64()
	log.Warn("using random seed, pass --seed to reproduce this run", zap.Uint64("seed", seed))
	return seed
}

func newSink(o *options, seed uint64, cfg fuzz.Config, w io.WriteCloser, log *zap.Logger, m *fuzz.Metrics) sink.Sink {
	if o.passthrough {
		return direct.New(w)
	}
	log.Debug("fuzzing stream", zap.Uint64("seed", seed), zap.Any("config", cfg))
	return fuzzed.New(fuzzed.Options{
		Writer: w,
		Fuzz: fuzz.Options{
			Config:  cfg,
			Rand:    rand.New(rand.NewPCG(seed, seed)),
			Logger:  log,
			Metrics: m,
		},
	})
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

func run(cmd *cobra.Command, o *options, args []string) error {
	log, err := newLogger(o.verbose)
	if err != nil {
		return err
	}
	defer log.Sync()
	cfg, err := newConfig(o, cmd.Flags().Changed)
	if err != nil {
		return err
	}
	f, err := newSplitFunc(int(o.size), o.split)
	if err != nil {
		return err
	}

	var m *fuzz.Metrics
	if o.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		m = fuzz.NewMetrics(reg)
		srv := serveMetrics(o.metricsAddr, reg, log)
		defer srv.Close()
	}

	w := writeCloser(cmd.OutOrStdout())
	var c *command.Command
	if len(args) > 0 {
		if c, err = command.New(command.Options{Command: args, Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}); err != nil {
			return err
		}
		if err := c.Start(); err != nil {
			return err
		}
		w = c
	}

	seed := newSeed(o, log)
	s := newSink(o, seed, cfg, w, log, m)
	r := runner.New(runner.Options{
		Reader:       cmd.InOrStdin(),
		Sink:         s,
		SplitFunc:    f,
		BufferSize:   int(o.size),
		WaitDuration: o.interval,
		Logger:       log,
	})
	err = r.Run(cmd.Context())
	if c != nil {
		// The consumer's exit status is more telling than a broken pipe.
		if werr := c.Wait(); werr != nil {
			err = werr
		}
	}
	if sc, ok := s.(sink.Counter); ok && o.stats {
		printStats(cmd.ErrOrStderr(), o, seed, sc.Stats())
	}
	return err
}

func printStats(w io.Writer, o *options, seed uint64, st sink.Stats) {
	if !o.passthrough {
		fmt.Fprintf(w, "seed: %d\n", seed)
	}
	fmt.Fprintf(w, "bytes read: %d\nbytes written: %d\nchunks: %d\n", st.BytesRead, st.BytesWritten, st.Chunks)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *exec.ExitError
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := exitCode(newRootCmd().ExecuteContext(ctx))
	stop()
	os.Exit(code)
}
