// Watch mode: re-runs a search when files under the roots change.
// Events are debounced so a burst of writes triggers one re-search.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/tgrep/internal/debug"
)

// Watcher monitors a set of root directories recursively and invokes a
// callback after filesystem activity settles
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher over the given roots. Every existing directory
// below a root is registered; symlinked directories are skipped, matching
// the traversal policy of the search itself.
func New(roots []string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fsw,
		debounce: debounce,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			debug.LogWatch("failed to register %s: %v", root, err)
		}
	}
	return w, nil
}

// addTree registers root and all real directories below it
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtrees are simply not watched
		}
		if d.Type()&os.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				debug.LogWatch("cannot watch %s: %v", path, err)
			}
		}
		return nil
	})
}

// Start launches the event loop. The callback runs on the watcher's
// goroutine once per settled burst of events.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case <-w.ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				debug.LogWatch("event: %s", event)
				// New directories must be registered to keep the
				// recursive watch complete
				if event.Op&fsnotify.Create != 0 {
					if fi, err := os.Lstat(event.Name); err == nil && fi.IsDir() {
						_ = w.addTree(event.Name)
					}
				}
				if timer == nil {
					timer = time.NewTimer(w.debounce)
					timerC = timer.C
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(w.debounce)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				debug.LogWatch("watch error: %v", err)

			case <-timerC:
				timer = nil
				timerC = nil
				w.onChange()
			}
		}
	}()
}

// Close stops the event loop and releases the underlying watcher
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
