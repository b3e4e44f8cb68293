package app

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
)

// DirectoryWatcher follows one host directory, the one being displayed, and
// reports debounced changes to it: recordings arriving from the recorder,
// files removed by another process.
type DirectoryWatcher struct {
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	dir      string        // currently watched OS path, "" when none
	notify   chan string   // debounced changed directory
	done     chan struct{} // shutdown signal
	debounce time.Duration
	closed   sync.Once
}

// NewDirectoryWatcher creates a watcher. A non-positive debounce uses 200ms.
func NewDirectoryWatcher(debounce time.Duration) (*DirectoryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	dw := &DirectoryWatcher{
		watcher:  w,
		notify:   make(chan string, 1),
		done:     make(chan struct{}),
		debounce: debounce,
	}
	go dw.run()
	return dw, nil
}

func (dw *DirectoryWatcher) run() {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}

			dw.mu.Lock()
			dir := dw.dir
			dw.mu.Unlock()
			if dir == "" || (filepath.Dir(event.Name) != dir && event.Name != dir) {
				continue
			}
			debug.Log(debug.WATCH, "event %s on %s", event.Op, event.Name)

			// Restart the window on every event so a burst yields one refresh
			pending = dir
			if timer == nil {
				timer = time.NewTimer(dw.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(dw.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case dw.notify <- pending:
				debug.Log(debug.WATCH, "change notification: %s", pending)
			default:
				// A notification is already queued
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			debug.Log(debug.WATCH, "fsnotify error: %v", err)
		}
	}
}

// Follow switches the watch to dir. An empty dir stops watching.
func (dw *DirectoryWatcher) Follow(dir string) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dir == dw.dir {
		return nil
	}
	if dw.dir != "" {
		if err := dw.watcher.Remove(dw.dir); err != nil {
			// The directory may already be gone
			debug.Log(debug.WATCH, "unwatch %s: %v", dw.dir, err)
		}
		dw.dir = ""
	}
	if dir == "" {
		return nil
	}
	if err := dw.watcher.Add(dir); err != nil {
		return err
	}
	dw.dir = dir
	debug.Log(debug.WATCH, "watching %s", dir)
	return nil
}

// Watching returns the directory being followed.
func (dw *DirectoryWatcher) Watching() string {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.dir
}

// Notify returns the channel that receives directory change notifications
func (dw *DirectoryWatcher) Notify() <-chan string {
	return dw.notify
}

// Close shuts down the watcher
func (dw *DirectoryWatcher) Close() error {
	var err error
	dw.closed.Do(func() {
		close(dw.done)
		err = dw.watcher.Close()
	})
	return err
}
