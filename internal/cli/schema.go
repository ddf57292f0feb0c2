package cli

import (
	"encoding/json"
	"strings"
)

// schemaTypes lists every schema in output order.
var schemaTypes = []string{"record", "event", "ready", "warning", "error", "sent", "activation_start", "activation_end"}

// SchemaCmd outputs JSON Schema for the pipe record and command output
type SchemaCmd struct {
	Type []string `short:"t" help:"Output types to include (record,event,ready,warning,error,sent,activation_start,activation_end). Default: all"`
}

// Run executes the schema command
func (c *SchemaCmd) Run(globals *Globals) error {
	schemas := map[string]interface{}{
		"record":  recordSchema(),
		"event":   eventSchema(),
		"ready":   readySchema(),
		"warning": warningSchema(),
		"error":   errorSchema(),
		"sent":    sentSchema(),

		"activation_start": activationStartSchema(),
		"activation_end":   activationEndSchema(),
	}

	// Determine which schemas to output
	typesToOutput := c.Type
	if len(typesToOutput) == 0 {
		typesToOutput = schemaTypes
	}

	// Build output
	output := map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "eruption-sensor Schemas",
		"description": "JSON Schema definitions for the sensor pipe record and eruption-sensor NDJSON output",
		"definitions": map[string]interface{}{},
	}

	defs := output["definitions"].(map[string]interface{})
	for _, t := range typesToOutput {
		t = strings.ToLower(strings.TrimSpace(t))
		if schema, ok := schemas[t]; ok {
			defs[t] = schema
		}
	}

	// Output as JSON
	encoder := json.NewEncoder(globals.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func typeConst(name string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "const": name}
}

func schemaVersionProp() map[string]interface{} {
	return map[string]interface{}{"type": "integer", "const": 1}
}

func recordSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Pipe Record",
		"description": "One line written to the sensor pipe for each focus change, terminated by a newline",
		"properties": map[string]interface{}{
			"window_title": stringProp("Title of the focused window or accessible object; empty when unknown"),
			"window_class": stringProp("Window class of the focused window or description of the accessible object; empty when unknown"),
		},
		"required":             []string{"window_title", "window_class"},
		"additionalProperties": false,
	}
}

func eventSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Listen Event",
		"description": "A pipe record as printed by the listen command",
		"properties": map[string]interface{}{
			"type":          typeConst("event"),
			"schemaVersion": schemaVersionProp(),
			"sequence": map[string]interface{}{
				"type":        "integer",
				"description": "1-based number of the record among those matching the filter",
			},
			"timestamp": map[string]interface{}{
				"type":        "string",
				"format":      "date-time",
				"description": "When the record was read",
			},
			"window_title": stringProp("window_title of the pipe record"),
			"window_class": stringProp("window_class of the pipe record"),
		},
		"required": []string{"type", "schemaVersion", "sequence", "timestamp", "window_title", "window_class"},
	}
}

func readySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Ready",
		"description": "Emitted once the listener is attached to the pipe",
		"properties": map[string]interface{}{
			"type":          typeConst("ready"),
			"schemaVersion": schemaVersionProp(),
			"timestamp":     map[string]interface{}{"type": "string", "format": "date-time"},
			"pipe_path":     stringProp("Path of the sensor pipe"),
			"filter":        stringProp("Active --where clauses joined with AND"),
		},
		"required": []string{"type", "schemaVersion", "timestamp", "pipe_path"},
	}
}

func warningSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Warning",
		"description": "A recoverable problem, such as a malformed pipe line",
		"properties": map[string]interface{}{
			"type":          typeConst("warning"),
			"schemaVersion": schemaVersionProp(),
			"message":       stringProp("What went wrong"),
			"line":          stringProp("The offending line, if any"),
		},
		"required": []string{"type", "schemaVersion", "message"},
	}
}

func errorSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Error",
		"description": "A command failure; the process exits non-zero",
		"properties": map[string]interface{}{
			"type":          typeConst("error"),
			"schemaVersion": schemaVersionProp(),
			"code":          stringProp("Machine-readable error code, e.g. PIPE_NOT_FOUND"),
			"message":       stringProp("Human-readable error message"),
			"hint":          stringProp("Suggested fix"),
		},
		"required": []string{"type", "schemaVersion", "code", "message"},
	}
}

func sentSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Sent",
		"description": "Emitted by the send command after the record was written",
		"properties": map[string]interface{}{
			"type":          typeConst("sent"),
			"schemaVersion": schemaVersionProp(),
			"pipe_path":     stringProp("Path of the sensor pipe"),
			"window_title":  stringProp("window_title that was sent"),
			"window_class":  stringProp("window_class that was sent"),
			"bytes":         map[string]interface{}{"type": "integer"},
		},
		"required": []string{"type", "schemaVersion", "pipe_path", "window_title", "window_class", "bytes"},
	}
}

func activationStartSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Activation Start",
		"description": "Emitted by the run command each time the sensor is enabled",
		"properties": map[string]interface{}{
			"type":          typeConst("activation_start"),
			"schemaVersion": schemaVersionProp(),
			"activation":    map[string]interface{}{"type": "integer", "minimum": 1},
			"pipe_path":     stringProp("Path of the sensor pipe"),
			"sources": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string", "enum": []string{"window-tracker", "accessibility"}},
			},
			"timestamp": map[string]interface{}{"type": "string", "format": "date-time"},
		},
		"required": []string{"type", "schemaVersion", "activation", "pipe_path", "sources", "timestamp"},
	}
}

func activationEndSchema() map[string]interface{} {
	count := map[string]interface{}{"type": "integer", "minimum": 0}
	return map[string]interface{}{
		"type":        "object",
		"title":       "Activation End",
		"description": "Emitted by the run command when the sensor is disabled, with delivery counts",
		"properties": map[string]interface{}{
			"type":          typeConst("activation_end"),
			"schemaVersion": schemaVersionProp(),
			"activation":    map[string]interface{}{"type": "integer", "minimum": 1},
			"summary": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"notifications":    count,
					"delivered":        count,
					"suppressed":       count,
					"dropped":          count,
					"duration_seconds": count,
				},
				"required": []string{"notifications", "delivered", "suppressed", "dropped", "duration_seconds"},
			},
		},
		"required": []string{"type", "schemaVersion", "activation", "summary"},
	}
}
