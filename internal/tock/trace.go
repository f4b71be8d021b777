// internal/tock/trace.go

package tock

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Recorder writes every event it observes as one CSV row.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	err    error // first write error, reported by Close
}

var _ Observer = (*Recorder)(nil)

// NewRecorder creates the CSV file at path and writes the header.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace %s: %w", path, err)
	}
	w := csv.NewWriter(f)

	// write header
	w.Write([]string{"timestamp", "event", "mode", "ticks", "nominal_ms", "measured_ms", "drift_ms", "next_delay_ms"})
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write trace header: %w", err)
	}

	return &Recorder{file: f, writer: w}, nil
}

// Observe appends ev and flushes it.
func (r *Recorder) Observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil || r.err != nil {
		return
	}
	rec := []string{
		ev.Time.Format(time.RFC3339Nano),
		ev.Kind.String(),
		ev.Mode.String(),
		strconv.FormatInt(ev.Ticks, 10),
		strconv.FormatInt(ev.Nominal.Milliseconds(), 10),
		strconv.FormatInt(ev.Measured.Milliseconds(), 10),
		strconv.FormatInt(ev.Drift.Milliseconds(), 10),
		strconv.FormatInt(ev.Delay.Milliseconds(), 10),
	}
	r.writer.Write(rec)
	r.writer.Flush()
	r.err = r.writer.Error()
}

// Close flushes and closes the file. Events observed afterwards are dropped.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil {
		return nil
	}
	var result error
	if r.err != nil {
		result = multierror.Append(result, r.err)
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil && err != r.err {
		result = multierror.Append(result, err)
	}
	if err := r.file.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	r.writer = nil
	return result
}
