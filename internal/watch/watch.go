package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/shinyvision/poxref/internal/utils"
	"github.com/tliron/commonlog"
)

// Op is the kind of change observed for a file.
type Op int

const (
	Created Op = iota + 1
	Changed
	Removed
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event is a change to a single file below a watched tree.
type Event struct {
	Path string
	Op   Op
}

// Watcher delivers file events for whole directory trees. Directories created
// inside a watched tree are picked up automatically.
type Watcher struct {
	mu      sync.Mutex
	fs      *fsnotify.Watcher
	dirs    map[string]bool
	handler func(Event)
	done    chan struct{}
	closed  bool
}

// New starts a watcher that calls handler for every event. handler runs on
// the watcher's goroutine.
func New(handler func(Event)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{
		fs:      fw,
		dirs:    make(map[string]bool),
		handler: handler,
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// AddTree watches dir and every directory below it. Registering the same
// tree twice is a no-op.
func (w *Watcher) AddTree(dir string) error {
	dir = utils.NormalizePath(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && p != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.add(p)
	})
}

func (w *Watcher) add(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("watcher closed")
	}
	if w.dirs[dir] {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

// Watching reports whether dir is registered.
func (w *Watcher) Watching(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs[utils.NormalizePath(dir)]
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	logger := commonlog.GetLoggerf("poxref.watch")
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warningf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	logger := commonlog.GetLoggerf("poxref.watch")
	path := utils.NormalizePath(event.Name)

	switch {
	case event.Op.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.AddTree(path); err != nil {
				logger.Warningf("could not watch new directory %s: %v", path, err)
			}
			return
		}
		w.dispatch(Event{Path: path, Op: Created})
	case event.Op.Has(fsnotify.Write):
		w.dispatch(Event{Path: path, Op: Changed})
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.mu.Lock()
		wasDir := w.dirs[path]
		delete(w.dirs, path)
		w.mu.Unlock()
		if !wasDir {
			w.dispatch(Event{Path: path, Op: Removed})
		}
	}
}

func (w *Watcher) dispatch(e Event) {
	commonlog.GetLoggerf("poxref.watch").Debugf("%s %s", e.Op, e.Path)
	if w.handler != nil {
		w.handler(e)
	}
}
