package pipe

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports when the pipe path is created, so a closed channel can
// reopen as soon as the consumer recreates its FIFO.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	onAppear  func()
	logger    *zap.Logger

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWatcher watches the directory containing path and calls onAppear
// from the watcher goroutine each time path is created.
func NewWatcher(path string, onAppear func(), logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	path = filepath.Clean(path)
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		path:      path,
		onAppear:  onAppear,
		logger:    logger,
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.eventLoop()
	return w, nil
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Create) {
				w.logger.Debug("sensor pipe appeared", zap.String("path", w.path))
				w.onAppear()
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("pipe watcher error", zap.Error(err))
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
		w.wg.Wait()
	})
	return err
}
