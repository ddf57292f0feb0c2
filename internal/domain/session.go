package domain

import "time"

// ActivationStart is logged when the sensor is enabled.
type ActivationStart struct {
	Type          string   `json:"type"`          // "activation_start"
	SchemaVersion int      `json:"schemaVersion"` // 1
	Activation    int      `json:"activation"`    // Activation number (1, 2, 3...)
	PipePath      string   `json:"pipe_path"`
	Sources       []string `json:"sources"`
	Timestamp     string   `json:"timestamp"` // ISO8601 timestamp
}

// ActivationEnd is logged when the sensor is disabled.
type ActivationEnd struct {
	Type          string            `json:"type"`          // "activation_end"
	SchemaVersion int               `json:"schemaVersion"` // 1
	Activation    int               `json:"activation"`
	Summary       ActivationSummary `json:"summary"`
}

// ActivationSummary contains delivery statistics for one activation
type ActivationSummary struct {
	Notifications   int `json:"notifications"`
	Delivered       int `json:"delivered"`
	Suppressed      int `json:"suppressed"`
	Dropped         int `json:"dropped"`
	DurationSeconds int `json:"duration_seconds"`
}

// Outcome is the result of handing one event to the delivery sink.
type Outcome string

const (
	OutcomeDelivered  Outcome = "delivered"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeDropped    Outcome = "dropped"
)

// NewActivationStart creates a new ActivationStart record
func NewActivationStart(activation int, pipePath string, sources []string, now time.Time) *ActivationStart {
	return &ActivationStart{
		Type:          "activation_start",
		SchemaVersion: 1,
		Activation:    activation,
		PipePath:      pipePath,
		Sources:       sources,
		Timestamp:     now.UTC().Format(time.RFC3339),
	}
}

// NewActivationEnd creates a new ActivationEnd record
func NewActivationEnd(activation int, summary ActivationSummary) *ActivationEnd {
	return &ActivationEnd{
		Type:          "activation_end",
		SchemaVersion: 1,
		Activation:    activation,
		Summary:       summary,
	}
}
