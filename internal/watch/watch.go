// Package watch provides file watching functionality for schema changes.
package watch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/satishbabariya/schemakit/internal/debug"
)

// DefaultDelay is how long the watcher waits for changes to settle.
const DefaultDelay = 500 * time.Millisecond

// Watcher runs a callback whenever a schema document below a directory
// changes.
type Watcher struct {
	fs       afero.Fs
	root     string
	ext      string
	delay    time.Duration
	callback func() error
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher watches root and every directory below it for files with
// extension ext.
func NewWatcher(root, ext string, callback func() error) (*Watcher, error) {
	osFs := afero.NewOsFs()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	// fsnotify is not recursive
	err = afero.Walk(osFs, absRoot, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		fs:       osFs,
		root:     absRoot,
		ext:      ext,
		delay:    DefaultDelay,
		callback: callback,
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

// Root is the absolute path of the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// SetDelay changes the debounce delay. Call it before Start.
func (w *Watcher) SetDelay(d time.Duration) {
	w.delay = d
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), w.ext)
}

// Start runs the callback once and then again after every settled change.
// Callback errors after the first run are logged and do not stop watching.
func (w *Watcher) Start() error {
	if err := w.callback(); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	go func() {
		debounceTimer := time.NewTimer(w.delay)
		debounceTimer.Stop()
		var debounceCh <-chan time.Time

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := w.fs.Stat(event.Name); err == nil && info.IsDir() {
						_ = w.watcher.Add(event.Name)
					}
				}
				if w.relevant(event) {
					debug.Debug("Schema document changed", "path", event.Name, "op", event.Op.String())
					debounceTimer.Reset(w.delay)
					debounceCh = debounceTimer.C
				}

			case <-debounceCh:
				debounceCh = nil
				if err := w.callback(); err != nil {
					debug.Warn("Watch callback failed", "error", err)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				debug.Warn("Watch error", "error", err)

			case <-w.done:
				debounceTimer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
