// Package output renders records read from the sensor pipe and command
// diagnostics as NDJSON or text.
package output

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/vburojevic/eruption-sensor/internal/domain"
)

// SchemaVersion is stamped on every NDJSON record.
const SchemaVersion = 1

// EventOutput is one focus record as printed by the listen command.
type EventOutput struct {
	Type          string `json:"type"` // "event"
	SchemaVersion int    `json:"schemaVersion"`
	Sequence      int    `json:"sequence"`
	Timestamp     string `json:"timestamp"`
	WindowTitle   string `json:"window_title"`
	WindowClass   string `json:"window_class"`
}

// ErrorOutput reports a command failure.
type ErrorOutput struct {
	Type          string `json:"type"` // "error"
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// WarningOutput reports a recoverable problem, such as a malformed line.
type WarningOutput struct {
	Type          string `json:"type"` // "warning"
	SchemaVersion int    `json:"schemaVersion"`
	Message       string `json:"message"`
	Line          string `json:"line,omitempty"`
}

// ReadyOutput is written once a consumer is attached to the pipe.
type ReadyOutput struct {
	Type          string `json:"type"` // "ready"
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"`
	PipePath      string `json:"pipe_path"`
	Filter        string `json:"filter,omitempty"`
}

// NDJSONWriter writes one JSON object per line. It is safe for concurrent use.
type NDJSONWriter struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewNDJSONWriter creates a writer on w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return &NDJSONWriter{encoder: encoder}
}

// Write emits a focus record.
func (w *NDJSONWriter) Write(event domain.FocusEvent, sequence int, at time.Time) error {
	return w.encode(&EventOutput{
		Type:          "event",
		SchemaVersion: SchemaVersion,
		Sequence:      sequence,
		Timestamp:     at.UTC().Format(time.RFC3339Nano),
		WindowTitle:   event.WindowTitle,
		WindowClass:   event.WindowClass,
	})
}

// WriteError emits an error record with an optional hint.
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	out := &ErrorOutput{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		out.Hint = hint[0]
	}
	return w.encode(out)
}

// WriteWarning emits a warning record.
func (w *NDJSONWriter) WriteWarning(message, line string) error {
	return w.encode(&WarningOutput{
		Type:          "warning",
		SchemaVersion: SchemaVersion,
		Message:       message,
		Line:          line,
	})
}

// WriteReady announces that the consumer is reading from pipePath.
func (w *NDJSONWriter) WriteReady(at time.Time, pipePath, filter string) error {
	return w.encode(&ReadyOutput{
		Type:          "ready",
		SchemaVersion: SchemaVersion,
		Timestamp:     at.UTC().Format(time.RFC3339),
		PipePath:      pipePath,
		Filter:        filter,
	})
}

// WriteRecord emits any value as one line.
func (w *NDJSONWriter) WriteRecord(v interface{}) error {
	return w.encode(v)
}

func (w *NDJSONWriter) encode(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.encoder.Encode(v)
}
