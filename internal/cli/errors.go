package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vburojevic/eruption-sensor/internal/output"
)

// Exit codes returned by the eruption-sensor binary.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// CommandError is a failure that has already been reported to the user.
type CommandError struct {
	Code    string // machine-readable, e.g. PIPE_NOT_FOUND
	Message string
	Hint    string
}

func (e *CommandError) Error() string { return e.Message }

// Usage reports whether the command line itself was wrong.
func (e *CommandError) Usage() bool {
	return e.Code == "INVALID_FLAGS" || e.Code == "INVALID_WHERE"
}

// ExitCode maps a command result to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Usage() {
		return ExitUsage
	}
	return ExitFailure
}

// outputErrorCommon reports a failure as an NDJSON error record on stdout
// or a single line on stderr, depending on --format, and returns it as a
// *CommandError.
func outputErrorCommon(globals *Globals, code, message string, hint ...string) error {
	cmdErr := &CommandError{Code: code, Message: message}
	if len(hint) > 0 {
		cmdErr.Hint = hint[0]
	}
	if globals == nil {
		return cmdErr
	}

	if globals.Format == "ndjson" {
		err := output.NewNDJSONWriter(globals.Stdout).WriteError(cmdErr.Code, cmdErr.Message, cmdErr.Hint)
		if err == nil {
			return cmdErr
		}
		// stdout is gone; stderr is the only place left to say why.
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error [%s]: %s", cmdErr.Code, cmdErr.Message)
	if cmdErr.Hint != "" {
		fmt.Fprintf(&b, " (hint: %s)", cmdErr.Hint)
	}
	fmt.Fprintln(globals.Stderr, b.String())
	return cmdErr
}
