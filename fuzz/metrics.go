package fuzz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors updated by a Transform.
type Metrics struct {
	BytesRead    prometheus.Counter
	BytesWritten prometheus.Counter
	Chunks       prometheus.Counter
	Combined     prometheus.Counter
	Delay        prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// If reg is nil the collectors are not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BytesRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fuzzstream",
			Name:      "bytes_read_total",
			Help:      "Bytes accepted from upstream.",
		}),
		BytesWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fuzzstream",
			Name:      "bytes_written_total",
			Help:      "Bytes emitted downstream.",
		}),
		Chunks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fuzzstream",
			Name:      "chunks_total",
			Help:      "Chunks emitted downstream, including empty ones.",
		}),
		Combined: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fuzzstream",
			Name:      "combined_units_total",
			Help:      "Input units held back to be combined with the next one.",
		}),
		Delay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fuzzstream",
			Name:      "delay_seconds",
			Help:      "Delays induced before emitting a chunk.",
			Buckets:   []float64{0, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 3},
		}),
	}
}
