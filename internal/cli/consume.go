package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"github.com/vburojevic/eruption-sensor/internal/domain"
	"github.com/vburojevic/eruption-sensor/internal/filter"
	"github.com/vburojevic/eruption-sensor/internal/output"
	"github.com/vburojevic/eruption-sensor/internal/pipe"
)

// maxRecordSize bounds one pipe line; window titles are short.
const maxRecordSize = 1 << 20

// recordWriter is implemented by output.NDJSONWriter and output.TextWriter.
type recordWriter interface {
	Write(event domain.FocusEvent, sequence int, at time.Time) error
}

// consumer reads records from the sensor pipe.
type consumer struct {
	where *filter.WhereFilter
	max   int
	now   func() time.Time

	// emit receives every matching record; returning an error stops reading.
	emit func(event domain.FocusEvent, sequence int, at time.Time) error
	// malformed receives lines that are not valid records.
	malformed func(line string, err error)
}

// consume reads until r is exhausted or closed, or max records matched.
// It returns the number of records emitted.
func (c *consumer) consume(r io.Reader) (int, error) {
	now := c.now
	if now == nil {
		now = time.Now
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxRecordSize)

	n := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		event, err := domain.ParseLine(line)
		if err != nil {
			if c.malformed != nil {
				c.malformed(string(line), err)
			}
			continue
		}
		if !c.where.Match(&event) {
			continue
		}
		n++
		if err := c.emit(event, n, now()); err != nil {
			return n, err
		}
		if c.max > 0 && n >= c.max {
			return n, nil
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return n, err
	}
	return n, nil
}

// openConsumerPipe creates the FIFO unless told not to and opens it for
// reading.
func openConsumerPipe(globals *Globals, path string, noCreate bool) (*os.File, error) {
	if !noCreate {
		if err := pipe.MakeFIFO(path, 0o600); err != nil {
			return nil, outputErrorCommon(globals, "PIPE_CREATE_FAILED", err.Error(), "check permissions on the runtime directory")
		}
	} else if isFIFO, err := pipe.IsFIFO(path); err != nil || !isFIFO {
		return nil, outputErrorCommon(globals, "PIPE_NOT_FOUND", "no named pipe at "+path, "start without --no-create to create it")
	}

	f, err := pipe.OpenConsumer(path)
	if err != nil {
		return nil, outputErrorCommon(globals, "PIPE_OPEN_FAILED", err.Error())
	}
	return f, nil
}

// newRecordWriter picks the output format. Text output is colored only on
// a terminal.
func newRecordWriter(globals *Globals) recordWriter {
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout)
	}
	return output.NewTextWriter(globals.Stdout, isTerminal(globals.Stdout))
}

func resolvePipePath(flag string, globals *Globals) string {
	if flag != "" {
		return flag
	}
	if globals.Config != nil && globals.Config.Pipe.Path != "" {
		return globals.Config.Pipe.Path
	}
	return pipe.DefaultPath()
}
