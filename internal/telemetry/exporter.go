package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MetricsExporter receives metrics snapshots.
type MetricsExporter interface {
	Export(snapshot MetricsSnapshot) error
	Close() error
}

// MetricsSnapshot is one exported record: the counters after a command.
type MetricsSnapshot struct {
	Timestamp time.Time              `json:"timestamp"`
	Event     string                 `json:"event"` // command name, e.g. "add"
	Metrics   map[string]interface{} `json:"metrics"`
	Labels    map[string]string      `json:"labels,omitempty"`
}

// ErrExporterClosed is returned by Export after Close.
var ErrExporterClosed = errors.New("metrics exporter closed")

// JSONLExporter appends one JSON object per snapshot to a writer.
type JSONLExporter struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	written int
}

// NewJSONLExporter writes to w. If w is an io.Closer, Close closes it.
func NewJSONLExporter(w io.Writer) *JSONLExporter {
	e := &JSONLExporter{w: w}
	if c, ok := w.(io.Closer); ok {
		e.closer = c
	}
	return e
}

// OpenJSONLExporter appends to the file at path, creating it and its
// directory if needed.
func OpenJSONLExporter(path string) (*JSONLExporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create metrics directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics file: %w", err)
	}
	return NewJSONLExporter(f), nil
}

// Export writes snapshot as a single line.
func (e *JSONLExporter) Export(snapshot MetricsSnapshot) error {
	line, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.w == nil {
		return ErrExporterClosed
	}
	if _, err := e.w.Write(line); err != nil {
		return err
	}
	e.written++
	return nil
}

// Written returns the number of snapshots exported.
func (e *JSONLExporter) Written() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.written
}

// Close releases the writer. Calling Close twice is safe.
func (e *JSONLExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.w = nil
	if e.closer == nil {
		return nil
	}
	err := e.closer.Close()
	e.closer = nil
	return err
}
