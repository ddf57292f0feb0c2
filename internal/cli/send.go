package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vburojevic/eruption-sensor/internal/domain"
	"github.com/vburojevic/eruption-sensor/internal/output"
	"github.com/vburojevic/eruption-sensor/internal/pipe"
)

// SendCmd writes a single record to the sensor pipe, the way the daemon would.
type SendCmd struct {
	Pipe    string        `short:"p" default:"${config_pipe}" help:"Path of the sensor pipe"`
	Title   string        `short:"t" help:"window_title of the record"`
	Class   string        `short:"c" help:"window_class of the record"`
	Timeout time.Duration `default:"5s" help:"How long to wait for a reader (0 waits forever)"`
}

// SendOutput is printed after a successful send.
type SendOutput struct {
	Type          string `json:"type"` // "sent"
	SchemaVersion int    `json:"schemaVersion"`
	PipePath      string `json:"pipe_path"`
	WindowTitle   string `json:"window_title"`
	WindowClass   string `json:"window_class"`
	Bytes         int    `json:"bytes"`
}

// Run executes the send command
func (c *SendCmd) Run(globals *Globals) error {
	if err := validateFlags(globals); err != nil {
		return err
	}
	path := resolvePipePath(c.Pipe, globals)
	event := domain.FocusEvent{WindowTitle: c.Title, WindowClass: c.Class}

	line, err := event.MarshalLine()
	if err != nil {
		return outputErrorCommon(globals, "ENCODE_FAILED", err.Error())
	}

	ctx := context.Background()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	interval := pipe.DefaultPollInterval
	if globals.Config != nil && globals.Config.Pipe.PollInterval > 0 {
		interval = globals.Config.Pipe.PollInterval
	}
	w, err := (&pipe.FIFOOpener{PollInterval: interval}).Open(ctx, path)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return outputErrorCommon(globals, "NO_READER", fmt.Sprintf("no reader attached to %s within %s", path, c.Timeout), "start 'eruption-sensor listen' first")
	case errors.Is(err, os.ErrNotExist):
		return outputErrorCommon(globals, "PIPE_NOT_FOUND", err.Error(), "start a consumer that creates the pipe")
	case err != nil:
		return outputErrorCommon(globals, "PIPE_UNAVAILABLE", err.Error())
	}
	defer w.Close()

	n, err := w.Write(line)
	if err != nil {
		return outputErrorCommon(globals, "WRITE_FAILED", err.Error())
	}

	if globals.Quiet {
		return nil
	}
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteRecord(&SendOutput{
			Type:          "sent",
			SchemaVersion: output.SchemaVersion,
			PipePath:      path,
			WindowTitle:   event.WindowTitle,
			WindowClass:   event.WindowClass,
			Bytes:         n,
		})
	}
	fmt.Fprintf(globals.Stdout, "Sent to %s: %s", path, line)
	return nil
}
