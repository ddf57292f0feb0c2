package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vburojevic/eruption-sensor/internal/filter"
	"github.com/vburojevic/eruption-sensor/internal/output"
)

// ListenCmd is a debugging consumer for the sensor pipe.
type ListenCmd struct {
	Pipe      string   `short:"p" default:"${config_pipe}" help:"Path of the sensor pipe"`
	Where     []string `short:"w" help:"Filter records (e.g. 'class=firefox', 'title~Mozilla', 'class!=code'); repeatable, all must match"`
	MaxEvents int      `short:"n" help:"Stop after N matching records (0 = unlimited)"`
	NoCreate  bool     `help:"Fail instead of creating the pipe when it does not exist"`
}

// Run executes the listen command
func (c *ListenCmd) Run(globals *Globals) error {
	if err := validateFlags(globals); err != nil {
		return err
	}
	if c.MaxEvents < 0 {
		return outputErrorCommon(globals, "INVALID_FLAGS", "--max-events must not be negative")
	}
	where, err := filter.NewWhereFilter(c.Where)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_WHERE", err.Error(), "use field<op>value with fields title or class and ops = != ~ !~ ^ $")
	}

	path := resolvePipePath(c.Pipe, globals)
	f, err := openConsumerPipe(globals, path, c.NoCreate)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// Closing the pipe unblocks the pending read.
	context.AfterFunc(ctx, func() { f.Close() })

	ndjson := output.NewNDJSONWriter(globals.Stdout)
	if !globals.Quiet {
		if globals.Format == "ndjson" {
			ndjson.WriteReady(time.Now(), path, strings.Join(c.Where, " AND "))
		} else {
			fmt.Fprintf(globals.Stderr, "Listening on %s\n", path)
			fmt.Fprintln(globals.Stderr, "Press Ctrl+C to stop")
		}
	}

	writer := newRecordWriter(globals)
	cons := &consumer{
		where: where,
		max:   c.MaxEvents,
		emit:  writer.Write,
		malformed: func(line string, err error) {
			if globals.Quiet {
				return
			}
			if globals.Format == "ndjson" {
				ndjson.WriteWarning(fmt.Sprintf("malformed record: %s", err), line)
			} else {
				fmt.Fprintf(globals.Stderr, "Warning: malformed record: %s\n", err)
			}
		},
	}

	if _, err := cons.consume(f); err != nil && ctx.Err() == nil {
		return outputErrorCommon(globals, "READ_FAILED", err.Error())
	}
	return nil
}
