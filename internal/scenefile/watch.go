package scenefile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long Watch waits after the last change to a
// document before reloading it.
const DefaultSettle = 100 * time.Millisecond

// Watcher reloads a scene document whenever it changes on disk.
type Watcher struct {
	// Path is the document to watch.
	Path string
	// Settle coalesces bursts of events. Zero means DefaultSettle.
	Settle time.Duration
	// Logger receives watch diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Run calls fn with every reload of the document until ctx ends or fn
// returns an error. Load errors are passed to fn as well; a nil scene
// means the document could not be parsed.
//
// The directory is watched rather than the file so that editors that save
// by renaming a temporary file are followed.
func (w *Watcher) Run(ctx context.Context, fn func(*Scene, error) error) error {
	path, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("scenefile: %w", err)
	}
	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	log := w.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("scenefile: watch: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("scenefile: watch %s: %w", filepath.Dir(path), err)
	}
	log.Info("scenefile: watching", "path", path)

	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			log.Debug("scenefile: change", "op", ev.Op.String())
			timer.Reset(settle)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("scenefile: watch error", "err", err)
		case <-timer.C:
			sc, err := Load(path)
			if err != nil {
				log.Warn("scenefile: reload", "path", path, "err", err)
			}
			if err := fn(sc, err); err != nil {
				return err
			}
		}
	}
}
