package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/vburojevic/eruption-sensor/internal/loop"
	"github.com/vburojevic/eruption-sensor/internal/output"
	"github.com/vburojevic/eruption-sensor/internal/pipe"
	"github.com/vburojevic/eruption-sensor/internal/sensor"
	"github.com/vburojevic/eruption-sensor/internal/session"
	"github.com/vburojevic/eruption-sensor/internal/source"
)

// RunCmd is the sensor daemon.
type RunCmd struct {
	Pipe            string `short:"p" default:"${config_pipe}" help:"Path of the sensor pipe"`
	NoWindowTracker bool   `help:"Do not subscribe to GNOME Shell window changes"`
	NoAccessibility bool   `help:"Do not subscribe to accessibility focus events"`
	NoWatch         bool   `help:"Do not watch the pipe directory for a consumer that starts late"`
}

// Run executes the run command
func (c *RunCmd) Run(globals *Globals) error {
	if err := validateFlags(globals); err != nil {
		return err
	}
	defer globals.Sync()
	logger := globals.Logger()
	cfg := globals.Config

	pipePath := c.Pipe
	if pipePath == "" {
		pipePath = cfg.Pipe.Path
	}

	// SIGINT/SIGTERM disable and exit; SIGHUP reloads.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	sessionBus, err := dbus.ConnectSessionBus()
	if err != nil {
		return outputErrorCommon(globals, "SESSION_BUS_UNAVAILABLE", fmt.Sprintf("cannot connect to the session bus: %s", err), "run inside a desktop session")
	}
	defer sessionBus.Close()

	opts := sensor.Options{
		PipePath:  pipePath,
		Opener:    &pipe.FIFOOpener{PollInterval: cfg.Pipe.PollInterval},
		WatchPipe: cfg.Pipe.Watch && !c.NoWatch,
		Logger:    logger.Named("sensor"),
	}
	if globals.Format == "ndjson" {
		opts.Records = output.NewNDJSONWriter(globals.Stdout)
	}
	if cfg.Sources.WindowTracker && !c.NoWindowTracker {
		opts.Tracker = source.NewShellTracker(sessionBus, cfg.Sources.CallTimeout, logger.Named("shell"))
	}
	if cfg.Sources.Accessibility && !c.NoAccessibility {
		a11yBus, err := source.ConnectAccessibilityBus(sessionBus, cfg.Sources.CallTimeout)
		if err != nil {
			logger.Warn("accessibility bus unavailable, continuing without it", zap.Error(err))
		} else {
			defer a11yBus.Close()
			opts.Accessibility = source.NewATSPIBus(a11yBus, cfg.Sources.AccessibilityEvents, cfg.Sources.CallTimeout, logger.Named("atspi"))
		}
	}

	logger.Info("starting sensor",
		zap.String("pipe_path", pipePath),
		zap.Bool("window_tracker", opts.Tracker != nil),
		zap.Bool("accessibility", opts.Accessibility != nil))

	l := loop.New(logger.Named("loop"))
	opts.Loop = l
	opts.Activations = session.NewTracker(nil)
	return runSensor(ctx, l, sensor.New(opts), hup)
}

// runSensor enables s on l and keeps it running until ctx is done, then
// disables it and stops the loop. Each value on reload triggers a Reload.
func runSensor(ctx context.Context, l *loop.Loop, s *sensor.Sensor, reload <-chan os.Signal) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	loopErr := make(chan error, 1)
	go func() { loopErr <- l.Run(loopCtx) }()

	l.Post(s.Enable)
	for done := false; !done; {
		select {
		case <-reload:
			l.Post(s.Reload)
		case <-ctx.Done():
			done = true
		}
	}

	disabled := make(chan struct{})
	if l.Post(func() {
		defer close(disabled)
		s.Disable()
	}) {
		<-disabled
	}
	stopLoop()
	return <-loopErr
}
