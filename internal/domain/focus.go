package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FocusEvent describes the window that currently has focus.
// Empty fields mean the value could not be determined.
type FocusEvent struct {
	WindowTitle string `json:"window_title"`
	WindowClass string `json:"window_class"`
}

// Empty reports whether neither field is known.
func (e FocusEvent) Empty() bool {
	return e.WindowTitle == "" && e.WindowClass == ""
}

// MarshalLine encodes the event as the single-line record read by the
// consumer: { "window_title": "...", "window_class": "..." } followed by '\n'.
// Field order and spacing are fixed.
func (e FocusEvent) MarshalLine() ([]byte, error) {
	title, err := quote(e.WindowTitle)
	if err != nil {
		return nil, fmt.Errorf("encode window_title: %w", err)
	}
	class, err := quote(e.WindowClass)
	if err != nil {
		return nil, fmt.Errorf("encode window_class: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(title) + len(class) + 40)
	buf.WriteString(`{ "window_title": `)
	buf.Write(title)
	buf.WriteString(`, "window_class": `)
	buf.Write(class)
	buf.WriteString(" }\n")
	return buf.Bytes(), nil
}

// ParseLine decodes one record as written by MarshalLine. Surrounding
// whitespace, including the trailing newline, is ignored.
func ParseLine(line []byte) (FocusEvent, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return FocusEvent{}, errors.New("empty record")
	}
	var raw struct {
		WindowTitle *string `json:"window_title"`
		WindowClass *string `json:"window_class"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return FocusEvent{}, fmt.Errorf("invalid record: %w", err)
	}
	if raw.WindowTitle == nil || raw.WindowClass == nil {
		return FocusEvent{}, errors.New("record is missing window_title or window_class")
	}
	return FocusEvent{WindowTitle: *raw.WindowTitle, WindowClass: *raw.WindowClass}, nil
}

// quote returns s as a JSON string literal without HTML escaping.
func quote(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
