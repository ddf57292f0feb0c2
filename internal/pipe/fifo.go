package pipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sys/unix"
)

// Name is the file name of the sensor pipe inside the runtime directory.
const Name = "eruption-sensor"

// DefaultPollInterval is how often a pending open re-checks for a reader.
const DefaultPollInterval = 250 * time.Millisecond

// DefaultPath returns $XDG_RUNTIME_DIR/eruption-sensor, falling back to
// /run/user/<uid> when XDG_RUNTIME_DIR is unset.
func DefaultPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = filepath.Join("/run/user", strconv.Itoa(os.Getuid()))
	}
	return filepath.Join(dir, Name)
}

// FIFOOpener opens an existing path for appending. For a FIFO without a
// reader it waits, polling every PollInterval, until a reader attaches or
// ctx is cancelled. A missing path fails immediately; it is never created.
type FIFOOpener struct {
	PollInterval time.Duration
	Clock        clock.Clock
}

// Open implements Opener.
func (o *FIFOOpener) Open(ctx context.Context, path string) (io.WriteCloser, error) {
	clk := o.Clock
	if clk == nil {
		clk = clock.New()
	}
	interval := o.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for {
		fd, err := unix.Open(path, unix.O_WRONLY|unix.O_APPEND|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err == nil {
			// Writes are synchronous once the consumer is attached.
			if err := unix.SetNonblock(fd, false); err != nil {
				unix.Close(fd)
				return nil, &os.PathError{Op: "setnonblock", Path: path, Err: err}
			}
			return os.NewFile(uintptr(fd), path), nil
		}
		if !errors.Is(err, unix.ENXIO) {
			return nil, &os.PathError{Op: "open", Path: path, Err: err}
		}

		// FIFO exists but nobody is reading yet.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-clk.After(interval):
		}
	}
}

// MakeFIFO creates a FIFO at path unless one already exists there.
func MakeFIFO(path string, mode uint32) error {
	isFIFO, err := IsFIFO(path)
	if err == nil {
		if !isFIFO {
			return fmt.Errorf("%s exists and is not a named pipe", path)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if err := unix.Mkfifo(path, mode); err != nil && !errors.Is(err, unix.EEXIST) {
		return &os.PathError{Op: "mkfifo", Path: path, Err: err}
	}
	return nil
}

// IsFIFO reports whether path is a named pipe.
func IsFIFO(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Mode()&os.ModeNamedPipe != 0, nil
}

// OpenConsumer opens the FIFO at path for reading without blocking. The
// returned file also holds a write reference, so reads wait for data
// instead of returning EOF when a sensor disconnects.
func OpenConsumer(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}
