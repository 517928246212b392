package outline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
)

// Extractor produces the foldable regions of one revision. It must poll
// ctx while traversing and may return anything once ctx is done.
type Extractor interface {
	Extract(ctx context.Context, snap *document.Snapshot) ([]Region, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, snap *document.Snapshot) ([]Region, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, snap *document.Snapshot) ([]Region, error) {
	return f(ctx, snap)
}

// Change reports the range whose regions changed in a published revision.
type Change struct {
	Span     text.Span
	Revision *document.Snapshot
}

// Worker recomputes regions in the background. At most one run is active;
// starting a run cancels and waits for the previous one.
type Worker struct {
	extractor Extractor
	store     *Store
	log       EditLog
	logger    Logger
	notify    func(Change)
	stats     *engineStats

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newWorker(extractor Extractor, store *Store, log EditLog, logger Logger, stats *engineStats, notify func(Change)) *Worker {
	return &Worker{
		extractor: extractor,
		store:     store,
		log:       log,
		logger:    logger,
		notify:    notify,
		stats:     stats,
	}
}

// Start cancels any active run, waits for it to exit, then starts a run
// against snap.
func (w *Worker) Start(snap *document.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	go w.run(ctx, snap, done)
}

// Stop cancels the active run, if any, and waits for it to exit.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

// Active returns true while a run has been started and not yet joined.
func (w *Worker) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done == nil {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

func (w *Worker) stopLocked() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil
}

func (w *Worker) run(ctx context.Context, snap *document.Snapshot, done chan struct{}) {
	defer close(done)

	runID := uuid.NewString()
	start := time.Now()
	w.stats.runs.Add(1)
	defer func() {
		w.stats.lastDuration.Store(int64(time.Since(start)))
	}()

	defer func() {
		if r := recover(); r != nil {
			safeLog(w.logger, fmt.Errorf("%w: %v", ErrExtractPanic, r),
				fmt.Sprintf("run %s revision %d\n%s", runID, snap.ID(), debug.Stack()))
			w.stats.fail(snap.ID())
		}
	}()

	regions, err := w.extract(ctx, snap)
	if ctx.Err() != nil {
		w.stats.cancelled.Add(1)
		return
	}
	if err != nil {
		safeLog(w.logger, err, w.errorContext(runID, snap, err))
		w.stats.fail(snap.ID())
		return
	}

	SortRegions(regions)
	next := NewRegionSet(snap, regions)

	prev, ok := w.store.Replace(next, func() bool { return ctx.Err() != nil })
	if !ok {
		w.stats.cancelled.Add(1)
		return
	}
	w.stats.published.Add(1)

	if span, changed := invalidated(w.log, prev, next); changed && w.notify != nil {
		w.notify(Change{Span: span, Revision: snap})
	}
}

// extract runs the extractor, converting a panic into an error so the node
// context of a panicking ExtractError value survives.
func (w *Worker) extract(ctx context.Context, snap *document.Snapshot) (regions []Region, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("%w: %w", ErrExtractPanic, e)
				return
			}
			err = fmt.Errorf("%w: %v", ErrExtractPanic, r)
		}
	}()
	return w.extractor.Extract(ctx, snap)
}

func (w *Worker) errorContext(runID string, snap *document.Snapshot, err error) string {
	var ee *ExtractError
	if errors.As(err, &ee) && ee.Context != "" {
		return ee.Context
	}
	return fmt.Sprintf("run %s revision %d", runID, snap.ID())
}
