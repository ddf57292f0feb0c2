package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vburojevic/eruption-sensor/internal/domain"
	"github.com/vburojevic/eruption-sensor/internal/filter"
	"github.com/vburojevic/eruption-sensor/internal/tui"
)

// UICmd launches an interactive TUI for viewing pipe records
type UICmd struct {
	Pipe       string   `short:"p" default:"${config_pipe}" help:"Path of the sensor pipe"`
	Where      []string `short:"w" help:"Filter records (same syntax as listen --where)"`
	BufferSize int      `default:"200" help:"Number of recent records to keep"`
	NoCreate   bool     `help:"Fail instead of creating the pipe when it does not exist"`
}

// Run executes the UI command
func (c *UICmd) Run(globals *Globals) error {
	if err := validateFlags(globals); err != nil {
		return err
	}
	where, err := filter.NewWhereFilter(c.Where)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_WHERE", err.Error())
	}

	path := resolvePipePath(c.Pipe, globals)
	globals.Debug("Opening sensor pipe: %s", path)
	f, err := openConsumerPipe(globals, path, c.NoCreate)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records := make(chan tui.Record)
	errs := make(chan error, 1)
	cons := &consumer{
		where: where,
		emit: func(event domain.FocusEvent, sequence int, at time.Time) error {
			select {
			case records <- tui.Record{Event: event, Sequence: sequence, At: at}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	go func() {
		defer close(records)
		if _, err := cons.consume(f); err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()

	p := tea.NewProgram(tui.New(path, records, errs, c.BufferSize), tea.WithAltScreen())

	// Handle context cancellation
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err = p.Run()
	stop()
	f.Close()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
