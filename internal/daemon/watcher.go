package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher turns edits of the rule and permission files into restart
// requests. Parent directories are watched so atomic renames are seen.
type Watcher struct {
	fs       *fsnotify.Watcher
	targets  map[string]string // cleaned path -> reason
	debounce time.Duration
	logger   *slog.Logger
}

// WatchTarget is a file whose changes should restart the masks.
type WatchTarget struct {
	Path   string
	Reason string
}

// NewWatcher watches the given targets. A missing parent directory is
// created first so files written there later are still seen; targets whose
// directory cannot be created are skipped with a warning.
func NewWatcher(logger *slog.Logger, targets ...WatchTarget) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		fs:       fw,
		targets:  make(map[string]string, len(targets)),
		debounce: defaultDebounce,
		logger:   logger,
	}
	dirs := make(map[string]struct{})
	for _, t := range targets {
		if t.Path == "" {
			continue
		}
		abs, err := filepath.Abs(t.Path)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to resolve %q: %w", t.Path, err)
		}
		w.targets[filepath.Clean(abs)] = t.Reason
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			logger.Warn("not watching directory", "dir", dir, "error", err)
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logger.Debug("watching directory", "dir", dir)
	}
	return w, nil
}

// Run forwards debounced change reasons to requests until ctx is done or the
// watcher is closed. Sends never block; a pending request already covers a
// later change.
func (w *Watcher) Run(ctx context.Context, requests chan<- string) {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			reason, tracked := w.targets[filepath.Clean(event.Name)]
			if !tracked {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pending = reason
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case requests <- pending:
			default:
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
