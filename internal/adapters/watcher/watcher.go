// Package watcher implements recursive file system watching with debounced change batches.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

// DefaultDebounceWindow is the quiet period after which changes are reported.
const DefaultDebounceWindow = 100 * time.Millisecond

// skippedDirectories are never watched.
var skippedDirectories = map[string]bool{
	".git":         true,
	".jj":          true,
	"node_modules": true,
}

// relevantOps are the operations that can change a staleness verdict.
// Chmod is included because touching a file only updates its attributes.
const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename | fsnotify.Chmod

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	changes   chan []string
	done      chan struct{}
	closeOnce sync.Once
	logger    ports.Logger
}

// NewWatcher creates a watcher that reports changes after window of quiet.
func NewWatcher(window time.Duration, logger ports.Logger) *Watcher {
	w := &Watcher{
		changes: make(chan []string),
		done:    make(chan struct{}),
		logger:  logger,
	}
	w.debouncer = NewDebouncer(window, w.publish)
	return w
}

// Start begins watching root and every directory below it.
// A Watcher can be started once.
func (w *Watcher) Start(ctx context.Context, root string) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return zerr.Wrap(err, domain.ErrWatchFailed.Error())
	}
	w.fsWatcher = fsWatcher

	for dir := range watchRecursively(root) {
		if err := w.fsWatcher.Add(dir); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrWatchFailed.Error()), "path", dir)
		}
	}

	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	w.debouncer.Stop()
	w.finish()
	if w.fsWatcher == nil {
		return nil
	}
	return w.fsWatcher.Close()
}

// Changes yields batches of changed paths until the watcher stops.
func (w *Watcher) Changes() iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for {
			select {
			case <-w.done:
				return
			case paths := <-w.changes:
				if !yield(paths) {
					return
				}
			}
		}
	}
}

// publish hands a batch to the consumer, dropping it once the watcher has stopped.
func (w *Watcher) publish(paths []string) {
	select {
	case w.changes <- paths:
	case <-w.done:
	}
}

func (w *Watcher) finish() {
	w.closeOnce.Do(func() { close(w.done) })
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.finish()

	for {
		select {
		case <-ctx.Done():
			w.debouncer.Stop()
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&relevantOps == 0 {
				continue
			}
			w.debouncer.Add(event.Name)

			if event.Has(fsnotify.Create) {
				w.watchNewDirectory(event.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(fmt.Sprintf("watcher: %v", err))
		}
	}
}

// watchNewDirectory starts watching path and its subdirectories if it is a directory.
func (w *Watcher) watchNewDirectory(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || skippedDirectories[info.Name()] {
		return
	}
	for dir := range watchRecursively(path) {
		_ = w.fsWatcher.Add(dir)
	}
}

// watchRecursively yields root and every directory below it.
func watchRecursively(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // unreadable directories are skipped
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && skippedDirectories[d.Name()] {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}
