package outline

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
)

// Source is the document an engine outlines.
type Source interface {
	EditLog

	// Snapshot returns the current revision.
	Snapshot() *document.Snapshot

	// Subscribe registers for change events.
	Subscribe(l document.Listener) (unsubscribe func())

	// InCompositeEdit returns true while a composite edit is open.
	InCompositeEdit() bool
}

// ChangeListener receives change notifications on the interactive context.
type ChangeListener func(Change)

// Engine keeps the regions of a document current as it is edited.
//
// OnChanged, Refresh and Dispose are meant to be called from the
// interactive context (the goroutine behind the engine's Poster). Query,
// Regions, Stats and OnEdit may be called from any goroutine.
type Engine struct {
	id        string
	source    Source
	poster    Poster
	extractor Extractor
	logger    Logger
	delay     time.Duration

	store     *Store
	scheduler *Scheduler
	worker    *Worker
	stats     engineStats

	mu             sync.Mutex
	listeners      []ChangeListener
	unsubscribe    func()
	started        bool
	disposed       bool
	released       bool
	dispatching    int
	disposePending bool
}

// New creates an engine. Call Start to attach it to the source.
func New(source Source, extractor Extractor, poster Poster, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if extractor == nil {
		return nil, ErrNilExtractor
	}
	if poster == nil {
		return nil, ErrNilPoster
	}

	e := &Engine{
		id:        uuid.NewString(),
		source:    source,
		poster:    poster,
		extractor: extractor,
		logger:    NopLogger{},
		delay:     DefaultDelay,
		store:     NewStore(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.scheduler = NewScheduler(e.delay, poster, e.fire, WithSchedulerLogger(e.logger))
	e.worker = newWorker(extractor, e.store, source, e.logger, &e.stats, e.post)
	return e, nil
}

// ID returns the engine ID.
func (e *Engine) ID() string {
	return e.id
}

// Start subscribes to document changes and schedules the initial parse.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.started = true
	e.unsubscribe = e.source.Subscribe(e.OnEdit)
	e.mu.Unlock()

	e.scheduler.Flush()
	return nil
}

// OnEdit handles a document change event. Edits inside a composite edit and
// events for revisions that are no longer current are ignored; a later
// event always follows.
func (e *Engine) OnEdit(ev document.ChangeEvent) {
	if e.isDisposed() {
		return
	}
	if ev.Kind == document.ChangeEdit && e.source.InCompositeEdit() {
		return
	}
	if ev.After != nil && ev.After != e.source.Snapshot() {
		return
	}
	e.scheduler.Notify()
}

// Refresh recomputes regions now instead of waiting for the debounce delay.
func (e *Engine) Refresh() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	if !e.started {
		return ErrNotStarted
	}
	e.scheduler.Flush()
	return nil
}

// Query yields the regions intersecting span in start order. It yields
// nothing while the store is being replaced or after Dispose.
func (e *Engine) Query(span text.Span) iter.Seq[Region] {
	if e.isDisposed() {
		return func(func(Region) bool) {}
	}
	return e.store.Query(span)
}

// Regions returns the current region set.
func (e *Engine) Regions() *RegionSet {
	return e.store.Load()
}

// Revision returns the revision of the current regions, or zero before the
// first publish.
func (e *Engine) Revision() document.RevisionID {
	if rev := e.store.Load().Revision(); rev != nil {
		return rev.ID()
	}
	return 0
}

// OnChanged registers a listener for change notifications and returns a
// function that removes it.
func (e *Engine) OnChanged(l ChangeListener) (remove func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners = append(e.listeners, l)
	idx := len(e.listeners) - 1
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			// Keep indices stable for the other removers.
			e.listeners[idx] = nil
		})
	}
}

// Dispose stops the timer, cancels and joins the worker and detaches from
// the document. Called from inside a change listener, the release is
// deferred until the notification dispatch completes.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	if e.dispatching > 0 {
		e.disposePending = true
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.release()
}

// Disposed returns true once Dispose has been called.
func (e *Engine) Disposed() bool {
	return e.isDisposed()
}

// Released returns true once Dispose has released all resources.
func (e *Engine) Released() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released
}

// Stats returns engine statistics.
func (e *Engine) Stats() Stats {
	ss := e.store.Stats()
	return Stats{
		Runs:            e.stats.runs.Load(),
		Published:       e.stats.published.Load(),
		Cancelled:       e.stats.cancelled.Load(),
		Failed:          e.stats.failed.Load(),
		Notifications:   e.stats.notifications.Load(),
		Queries:         ss.Queries,
		DeclinedQueries: ss.Declined,
		LastDuration:    time.Duration(e.stats.lastDuration.Load()),
		Regions:         e.store.Load().Len(),

		LastFailedRevision: document.RevisionID(e.stats.lastFailed.Load()),
	}
}

func (e *Engine) isDisposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

func (e *Engine) release() {
	e.scheduler.Stop()
	e.worker.Stop()

	e.mu.Lock()
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.released = true
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// fire runs on the interactive context when the scheduler fires.
func (e *Engine) fire() {
	if e.isDisposed() {
		return
	}
	e.worker.Start(e.source.Snapshot())
}

// post hands a change from the worker goroutine to the interactive context.
func (e *Engine) post(c Change) {
	if err := e.poster.Post(func() { e.dispatch(c) }); err != nil {
		safeLog(e.logger, fmt.Errorf("post change notification: %w", err), e.id)
	}
}

func (e *Engine) dispatch(c Change) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.dispatching++
	listeners := make([]ChangeListener, 0, len(e.listeners))
	for _, l := range e.listeners {
		if l != nil {
			listeners = append(listeners, l)
		}
	}
	e.mu.Unlock()

	e.stats.notifications.Add(1)
	for _, l := range listeners {
		e.callListener(l, c)
	}

	e.mu.Lock()
	e.dispatching--
	pending := e.dispatching == 0 && e.disposePending
	if pending {
		e.disposePending = false
	}
	e.mu.Unlock()

	if pending {
		e.release()
	}
}

func (e *Engine) callListener(l ChangeListener, c Change) {
	defer func() {
		if r := recover(); r != nil {
			safeLog(e.logger, fmt.Errorf("change listener panicked: %v", r), e.id)
		}
	}()
	l(c)
}
