// Package importer watches a directory and imports photos dropped into it.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

// DefaultSettle is how long a file must stay unchanged before it is
// imported, so half-written files are not picked up.
const DefaultSettle = 500 * time.Millisecond

var extensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// PhotoImporter is implemented by services.PhotoService.
type PhotoImporter interface {
	ImportFile(ctx context.Context, path string) (int64, error)
}

// Watcher imports every settled .jpg, .jpeg or .png file written to dir.
// A file is imported again only when its modification time changes.
type Watcher struct {
	dir    string
	settle time.Duration
	imp    PhotoImporter
	log    logging.Logger

	watcher *fsnotify.Watcher
	ready   chan string
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string]time.Time
}

func NewWatcher(dir string, imp PhotoImporter, settle time.Duration, log logging.Logger) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch import directory %s: %w", dir, err)
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		imp:     imp,
		log:     log.With("component", "importer", "dir", dir),
		watcher: fw,
		ready:   make(chan string, 16),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
		seen:    make(map[string]time.Time),
	}, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn(ctx, "watch error", "err", err)

		case path := <-w.ready:
			w.importFile(ctx, path)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !extensions[strings.ToLower(filepath.Ext(ev.Name))] {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if t, ok := w.pending[ev.Name]; ok {
			t.Reset(w.settle)
			return
		}
		name := ev.Name
		w.pending[name] = time.AfterFunc(w.settle, func() {
			w.mu.Lock()
			delete(w.pending, name)
			w.mu.Unlock()
			select {
			case w.ready <- name:
			case <-w.done:
			}
		})
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if t, ok := w.pending[ev.Name]; ok {
			t.Stop()
			delete(w.pending, ev.Name)
		}
		delete(w.seen, ev.Name)
	}
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if prev, ok := w.seen[path]; ok && prev.Equal(info.ModTime()) {
		return
	}

	id, err := w.imp.ImportFile(ctx, path)
	if err != nil {
		w.log.Warn(ctx, "import failed", "path", path, "err", err)
		return
	}
	w.seen[path] = info.ModTime()
	w.log.Info(ctx, "imported", "path", path, "id", id)
}

func (w *Watcher) close() {
	close(w.done)
	w.mu.Lock()
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}
