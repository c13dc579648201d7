// Package watch turns fsnotify notifications under the scan root into
// reconcile events.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/philjestin/routegen/internal/reconcile"
)

// Watcher watches a directory tree recursively, adding new subdirectories as they appear.
type Watcher struct {
	fsw  *fsnotify.Watcher
	root string
	log  *zap.Logger

	mu   sync.Mutex
	dirs map[string]struct{}
}

// New starts watching root and every directory below it. A missing root is
// an error here: the loop can still run, but there is nothing to watch.
func New(root string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{fsw: fsw, root: filepath.Clean(root), log: log, dirs: map[string]struct{}{}}
	if err := w.addRecursive(w.root, nil); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run forwards events to sink until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, sink func(reconcile.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev, sink)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) Close() error { return w.fsw.Close() }

func (w *Watcher) handle(ev fsnotify.Event, sink func(reconcile.Event)) {
	path := filepath.Clean(ev.Name)
	if !filepath.IsAbs(path) {
		if a, err := filepath.Abs(path); err == nil {
			path = a
		}
	}

	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// track new directories, and report files that landed before the watch was added
			_ = w.addRecursive(path, func(file string) {
				sink(reconcile.Event{Op: reconcile.OpCreate, Path: file})
			})
			return
		}
		sink(reconcile.Event{Op: reconcile.OpCreate, Path: path})
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		sink(reconcile.Event{Op: reconcile.OpRemove, Path: path, Dir: w.forget(path)})
	case ev.Has(fsnotify.Write):
		sink(reconcile.Event{Op: reconcile.OpModify, Path: path})
	}
}

// addRecursive watches dir and its subdirectories. onFile, if set, is called for every regular file found.
func (w *Watcher) addRecursive(dir string, onFile func(string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			if onFile != nil {
				onFile(path)
			}
			return nil
		}
		name := d.Name()
		if path != w.root && (strings.HasPrefix(name, ".") || name == "node_modules") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.mu.Lock()
		w.dirs[path] = struct{}{}
		w.mu.Unlock()
		return nil
	})
}

// forget drops path and everything below it from the watched set and reports whether it was a watched directory.
func (w *Watcher) forget(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.dirs[path]
	if !ok {
		return false
	}
	prefix := path + string(filepath.Separator)
	for d := range w.dirs {
		if d == path || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
		}
	}
	return true
}

// Dirs returns the number of directories currently watched.
func (w *Watcher) Dirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}
