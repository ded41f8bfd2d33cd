// Package sink defines the downstream stage of a pipeline.
// A Sink receives the input stream one unit at a time and passes it on, possibly reshaped.
package sink

import "time"

// A Sink is the downstream stage fed by a runner.
type Sink interface {
	// Start starts up the sink.
	Start() error

	// Stop shuts down the sink.
	Stop() error

	// DoneRead indicates that there is no more data to be read into the sink.
	// It returns once everything written so far has been passed on.
	DoneRead() error

	// Wait blocks until the sink can accept more data.
	Wait() error

	// Write writes the next unit of data.
	Write([]byte) (int, error)
}

// Stats are the byte and chunk counts of a sink.
// For a complete stream BytesRead equals BytesWritten.
type Stats struct {
	BytesRead    int64
	BytesWritten int64
	Chunks       int64
}

// A Counter is a sink that keeps Stats.
type Counter interface {
	Stats() Stats
}

// Write writes a unit of data to a sink after waiting for a period of time,
// the sink may perform additional waiting of its own.
func Write(s Sink, b []byte, d time.Duration) error {
	if err := s.Wait(); err != nil {
		return err
	}
	if d > 0 {
		time.Sleep(d)
	}
	_, err := s.Write(b)
	return err
}
