// Package monitor watches directories and reports debounced file changes.
package monitor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mcp-insight-service/pkg/logging"
)

// DefaultDebounceDelay is how long a file must stay quiet before its event is delivered
const DefaultDebounceDelay = 500 * time.Millisecond

// Event types
const (
	EventCreate = "create"
	EventModify = "modify"
	EventDelete = "delete"
)

// FileEvent describes a change to a watched file
type FileEvent struct {
	Type string
	Path string
}

// FileSystemMonitor monitors file system changes in watched directories
type FileSystemMonitor struct {
	watcher       *fsnotify.Watcher
	debounceDelay time.Duration
	extensions    map[string]bool
	logger        *logging.StructuredLogger

	mu        sync.Mutex
	callbacks []func(FileEvent)
	timers    map[string]*time.Timer
	pending   sync.WaitGroup
	closed    bool
}

// NewFileSystemMonitor creates a monitor that only reports files with one of
// the given extensions. No extensions means every file is reported.
func NewFileSystemMonitor(extensions ...string) (*FileSystemMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}

	return &FileSystemMonitor{
		watcher:       watcher,
		debounceDelay: DefaultDebounceDelay,
		extensions:    exts,
		logger:        logging.NewStructuredLogger("FileSystemMonitor"),
		timers:        make(map[string]*time.Timer),
	}, nil
}

// SetDebounceDelay changes the debounce window. Call before Run.
func (fsm *FileSystemMonitor) SetDebounceDelay(d time.Duration) {
	fsm.mu.Lock()
	defer fsm.mu.Unlock()
	fsm.debounceDelay = d
}

// WatchDirectory registers path and a callback for its events. Events are
// delivered once Run is active.
func (fsm *FileSystemMonitor) WatchDirectory(path string, callback func(FileEvent)) error {
	if err := fsm.watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", path, err)
	}

	fsm.mu.Lock()
	fsm.callbacks = append(fsm.callbacks, callback)
	fsm.mu.Unlock()

	fsm.logger.WithContext("directory", path).Info("Started monitoring directory")
	return nil
}

// Run processes events until ctx is cancelled or the watcher is closed. On
// return pending debounced events are dropped and the watcher is released.
func (fsm *FileSystemMonitor) Run(ctx context.Context) error {
	defer fsm.StopWatching()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsm.watcher.Events:
			if !ok {
				return nil
			}
			if !fsm.accepts(event.Name) {
				continue
			}
			fsm.schedule(event)

		case err, ok := <-fsm.watcher.Errors:
			if !ok {
				return nil
			}
			fsm.logger.WithError(err).Warn("File watcher error")
		}
	}
}

// StopWatching cancels pending events, waits for running callbacks and closes
// the watcher. It is safe to call more than once.
func (fsm *FileSystemMonitor) StopWatching() error {
	fsm.mu.Lock()
	if fsm.closed {
		fsm.mu.Unlock()
		return nil
	}
	fsm.closed = true
	for name, timer := range fsm.timers {
		if timer.Stop() {
			fsm.pending.Done()
		}
		delete(fsm.timers, name)
	}
	fsm.mu.Unlock()

	fsm.pending.Wait()
	return fsm.watcher.Close()
}

func (fsm *FileSystemMonitor) accepts(name string) bool {
	if len(fsm.extensions) == 0 {
		return true
	}
	return fsm.extensions[strings.ToLower(filepath.Ext(name))]
}

// schedule debounces events per file
func (fsm *FileSystemMonitor) schedule(event fsnotify.Event) {
	fsm.mu.Lock()
	defer fsm.mu.Unlock()

	if fsm.closed {
		return
	}
	if timer, exists := fsm.timers[event.Name]; exists && timer.Stop() {
		fsm.pending.Done()
	}

	var timer *time.Timer
	fsm.pending.Add(1)
	timer = time.AfterFunc(fsm.debounceDelay, func() {
		defer fsm.pending.Done()

		fsm.mu.Lock()
		if fsm.timers[event.Name] == timer {
			delete(fsm.timers, event.Name)
		}
		callbacks := append([]func(FileEvent)(nil), fsm.callbacks...)
		fsm.mu.Unlock()

		fsm.processEvent(event, callbacks)
	})
	fsm.timers[event.Name] = timer
}

// processEvent converts fsnotify events to FileEvent and calls callbacks
func (fsm *FileSystemMonitor) processEvent(event fsnotify.Event, callbacks []func(FileEvent)) {
	var eventType string
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreate
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventModify
	case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventDelete
	default:
		return
	}

	fileEvent := FileEvent{Type: eventType, Path: event.Name}
	for _, callback := range callbacks {
		callback(fileEvent)
	}

	fsm.logger.WithContext("event_type", eventType).
		WithContext("file", event.Name).
		Debug("File system event")
}
