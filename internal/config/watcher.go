package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hookflow/hookflow/internal/event"
	"github.com/hookflow/hookflow/internal/logging"
)

// EventKindConfigChanged is emitted on the bus when the watched
// configuration file is written or replaced.
const EventKindConfigChanged = "config.changed"

// Watcher observes the configuration file and emits a config.changed
// event whenever it is modified. Reloading is left to subscribers.
type Watcher struct {
	path   string
	bus    *event.Bus
	logger *logging.Logger

	fsw      *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher watches the file at path. The parent directory is watched so
// atomic replaces (write temp file, rename over) are still observed.
func NewWatcher(path string, bus *event.Bus, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		path:   path,
		bus:    bus,
		logger: logger.WithComponent("config-watcher"),
		fsw:    fsw,
		done:   make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Info("configuration file changed", "path", w.path, "op", ev.Op.String())
			w.bus.Emit(event.New(EventKindConfigChanged, event.PhasePost, "reload",
				event.PriorityHigh, map[string]any{"path": w.path}))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("configuration watch error", "error", err.Error())
		}
	}
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
