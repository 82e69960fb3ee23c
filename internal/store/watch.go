package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last file event before resyncing.
const DefaultDebounce = 250 * time.Millisecond

// SyncEvent reports the outcome of one resync performed by Watch.
type SyncEvent struct {
	Records  int
	Warnings []error
	Err      error
}

// Watch reloads t and resyncs ix whenever the table's schema or data file
// changes, until ctx is cancelled. Bursts of events within debounce are
// collapsed into one resync. onSync is called from the watching goroutine
// after every resync and for watcher errors.
func Watch(ctx context.Context, t *Table, ix *Index, debounce time.Duration, onSync func(SyncEvent)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	targets := map[string]bool{
		filepath.Clean(t.Schema.Path()):  true,
		filepath.Clean(t.Records.Path()): true,
	}

	// Watch directories rather than files: atomic saves replace the file.
	dirs := make(map[string]bool)
	for p := range targets {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onSync(SyncEvent{Err: fmt.Errorf("watcher: %w", err)})

		case <-timer.C:
			onSync(resync(t, ix))
		}
	}
}

// resync reloads the table from disk and rebuilds its index.
func resync(t *Table, ix *Index) SyncEvent {
	warnings, err := t.Reload()
	if err != nil {
		return SyncEvent{Warnings: warnings, Err: err}
	}
	n, err := ix.Sync(t)
	return SyncEvent{Records: n, Warnings: warnings, Err: err}
}
