package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce collapses the burst of events one atomic write produces
// (create temp, write, rename).
const debounce = 50 * time.Millisecond

// Watch implements slot.Watcher. The directory is watched rather than the
// file so that rename-based writes and first-time creation are seen.
func (d *Dir) Watch(ctx context.Context, key string, fn func()) (func(), error) {
	name, err := d.filename(key)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("file slot: create watcher: %w", err)
	}
	if err := w.Add(d.path); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("file slot: watch %s: %w", d.path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(ctx, w, filepath.Clean(name), fn)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			_ = w.Close()
		})
	}, nil
}

func run(ctx context.Context, w *fsnotify.Watcher, name string, fn func()) {
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		case <-timer.C:
			fn()
		}
	}
}
