package artifacts

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kilianp07/fleetcast/core/artifact"
)

// DefaultDebounce groups the burst of events editors and deploy tools emit
// for a single file replacement.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a bundle file into a holder when it changes.
type Watcher struct {
	loader   *Loader
	holder   *artifact.Holder
	debounce time.Duration
	reloaded chan error
}

// NewWatcher returns a watcher for loader's file.
func NewWatcher(loader *Loader, holder *artifact.Holder, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{loader: loader, holder: holder, debounce: debounce, reloaded: make(chan error, 1)}
}

// Reloaded receives the outcome of each reload. Outcomes are dropped when
// nobody reads them.
func (w *Watcher) Reloaded() <-chan error { return w.reloaded }

// Run watches the directory holding the bundle file until ctx is done. The
// directory is watched rather than the file so that atomic renames are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()
	target := filepath.Clean(w.loader.Path())
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return err
	}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.loader.log.Warnf("watch %s: %v", target, err)
		case <-timer.C:
			err := w.loader.LoadInto(w.holder)
			select {
			case w.reloaded <- err:
			default:
			}
		}
	}
}
