package catalog

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a StaticSpec YAML file whenever it changes on disk and
// invokes an invalidation callback. It is a convenience for local-file
// embedders; per spec.md §5, the embedder (not the compiler) owns cache
// invalidation, and this is one reasonable embedder-side implementation of
// that responsibility.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	onChange func()
	log     *slog.Logger
	done    chan struct{}
}

// WatchFile starts watching path; onChange is invoked (synchronously, from
// an internal goroutine) after every write, create or rename event. Call Close to
// stop watching.
func WatchFile(path string, onChange func(), log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{path: path, fsw: fsw, onChange: onChange, log: log, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.log.Info("catalog source changed, invalidating", "path", w.path, "op", ev.Op.String())
				w.onChange()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("catalog watch error", "path", w.path, "error", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watch goroutine and releases the underlying fsnotify
// watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
