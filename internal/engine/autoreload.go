package engine

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchProfiles reloads the profile directory into h whenever a profile
// file changes. Closing the returned Closer stops the watcher.
//
// Events are debounced: each relevant event restarts one timer and the
// directory is reloaded when it fires, so a burst of writes reloads once.
// A reload that fails to load or validate leaves the current engine in
// place; the next change triggers another attempt.
func WatchProfiles(dir string, h *HotSwap, debounce time.Duration, logger *slog.Logger) (io.Closer, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &profileWatcher{
		dir:      dir,
		swap:     h,
		debounce: debounce,
		log:      logger,
		fs:       fw,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	logger.Info("profile auto-reload enabled", "dir", dir, "debounce", debounce)
	return w, nil
}

type profileWatcher struct {
	dir      string
	swap     *HotSwap
	debounce time.Duration
	log      *slog.Logger
	fs       *fsnotify.Watcher

	// pending is nil while no reload is scheduled.
	timer   *time.Timer
	pending <-chan time.Time

	stop chan struct{}
	done chan struct{}
}

func (w *profileWatcher) Close() error {
	close(w.stop)
	_ = w.fs.Close()
	<-w.done
	return nil
}

func (w *profileWatcher) run() {
	defer close(w.done)
	defer func() {
		if w.timer != nil {
			w.timer.Stop()
		}
	}()
	for {
		select {
		case <-w.stop:
			return
		case <-w.pending:
			w.pending = nil
			w.reload()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("profile watcher error", "error", err)
		case evt, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if shouldReload(evt) {
				w.schedule()
			}
		}
	}
}

// schedule pushes the pending reload out to debounce from now.
func (w *profileWatcher) schedule() {
	if w.timer == nil {
		w.timer = time.NewTimer(w.debounce)
	} else {
		if !w.timer.Stop() {
			select {
			case <-w.timer.C:
			default:
			}
		}
		w.timer.Reset(w.debounce)
	}
	w.pending = w.timer.C
}

func (w *profileWatcher) reload() {
	e, err := LoadDir(w.dir)
	if err != nil {
		w.log.Warn("profile reload failed, keeping current profiles", "dir", w.dir, "error", err)
		return
	}
	w.swap.Swap(e)
	w.log.Info("profiles reloaded", "dir", w.dir, "profiles", len(e.Profiles()))
}

func shouldReload(evt fsnotify.Event) bool {
	if strings.TrimSpace(evt.Name) == "" {
		return false
	}
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(evt.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return profileExts[filepath.Ext(base)]
}
