package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"foreman/pkg/logging"
)

// watcher invalidates cached context values when their backing artifact
// files change on disk. This lets a human (or a side process) drop a
// corrected manifest or build file into the workspace mid-run and have the
// next step pick it up.
type watcher struct {
	fs   *fsnotify.Watcher
	root string
}

// EnableWatcher starts watching the workspace directory. Artifact writes
// mark the owning key stale; the next Get re-reads it from disk. Calling it
// twice is a no-op.
func (c *Context) EnableWatcher() error {
	if c.watcher != nil {
		return nil
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create workspace watcher: %w", err)
	}
	w := &watcher{fs: fs, root: c.dir}

	if err := fs.Add(c.dir); err != nil {
		_ = fs.Close()
		return fmt.Errorf("failed to watch workspace %s: %w", c.dir, err)
	}

	// Key directories that already exist need their own watches; fsnotify
	// does not recurse.
	entries, err := os.ReadDir(c.dir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				if err := fs.Add(filepath.Join(c.dir, e.Name())); err != nil {
					logging.Warn("Workspace", "failed to watch %s: %v", e.Name(), err)
				}
			}
		}
	}

	c.watcher = w
	go w.run(c)
	logging.Debug("Workspace", "watching %s for artifact changes", c.dir)
	return nil
}

func (w *watcher) run(c *Context) {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(c, ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Warn("Workspace", "watcher error: %v", err)
		}
	}
}

func (w *watcher) handle(c *Context, ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	key := rel
	if i := strings.IndexRune(rel, filepath.Separator); i >= 0 {
		key = rel[:i]
	}

	// New key directories at the root need a watch before their first file
	// write can be seen.
	if ev.Op.Has(fsnotify.Create) && key == rel {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.fs.Add(ev.Name); err != nil {
				logging.Warn("Workspace", "failed to watch %s: %v", key, err)
			}
		}
	}

	if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
		logging.Debug("Workspace", "artifact change for key %q (%s)", key, ev.Op)
		c.markStale(key)
	}
}

func (w *watcher) close() {
	_ = w.fs.Close()
}
