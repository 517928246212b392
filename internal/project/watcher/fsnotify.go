package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches one file using fsnotify.
type FileWatcher struct {
	mu sync.Mutex

	watcher *fsnotify.Watcher
	path    string
	config  Config

	events chan Event
	errors chan error

	debounced func(func())
	pending   Op

	startTime time.Time
	raw       atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
	errCount  atomic.Int64
	lastError error

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New starts watching the file at path.
func New(path string, opts ...Option) (*FileWatcher, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotExist, path)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &FileWatcher{
		watcher:   fsw,
		path:      absPath,
		config:    config,
		events:    make(chan Event, config.BufferSize),
		errors:    make(chan error, config.BufferSize),
		debounced: debounce.New(config.DebounceDelay),
		startTime: time.Now(),
		closeCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the absolute path being watched.
func (w *FileWatcher) Path() string {
	return w.path
}

// Events returns the event channel. It is closed by Close.
func (w *FileWatcher) Events() <-chan Event {
	return w.events
}

// Errors returns the error channel. It is closed by Close.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher. Pending events are discarded.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()

	w.mu.Lock()
	close(w.events)
	close(w.errors)
	w.mu.Unlock()

	return w.watcher.Close()
}

// Stats returns watcher statistics.
func (w *FileWatcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Stats{
		RawEvents: w.raw.Load(),
		Delivered: w.delivered.Load(),
		Dropped:   w.dropped.Load(),
		Errors:    w.errCount.Load(),
		LastError: w.lastError,
		StartTime: w.startTime,
	}
}

// processLoop handles incoming fsnotify events.
func (w *FileWatcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.recordError(err)
			w.sendError(err)
		}
	}
}

// handleFSEvent accumulates events for the watched file and schedules
// delivery.
func (w *FileWatcher) handleFSEvent(fsEvent fsnotify.Event) {
	if filepath.Clean(fsEvent.Name) != w.path {
		return
	}
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}
	w.raw.Add(1)

	w.mu.Lock()
	w.pending |= op
	w.mu.Unlock()

	w.debounced(w.flush)
}

// flush delivers the accumulated operations as one event.
func (w *FileWatcher) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.pending == 0 {
		return
	}
	event := Event{Path: w.path, Op: w.pending, Timestamp: time.Now()}
	w.pending = 0

	select {
	case w.events <- event:
		w.delivered.Add(1)
	default:
		w.dropped.Add(1)
		w.errCount.Add(1)
		w.lastError = errors.New("event channel full, dropping event")
	}
}

// convertOp converts fsnotify.Op to watcher.Op.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}

// sendError sends an error to the output channel.
func (w *FileWatcher) sendError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// recordError records an error in stats.
func (w *FileWatcher) recordError(err error) {
	w.errCount.Add(1)
	w.mu.Lock()
	w.lastError = err
	w.mu.Unlock()
}
