package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Loop runs posted tasks one at a time on a single goroutine.
type Loop struct {
	onPanic PanicHandler

	mu       sync.Mutex
	queue    []queuedTask
	running  bool
	stopping bool
	wake     chan struct{}
	done     chan struct{}

	// Stats
	posted      atomic.Uint64
	processed   atomic.Uint64
	panicked    atomic.Uint64
	rejected    atomic.Uint64
	totalTimeNs atomic.Int64
}

type queuedTask struct {
	task   Task
	result chan<- Result
}

// LoopOption configures a Loop.
type LoopOption func(*loopConfig)

type loopConfig struct {
	panicHandler PanicHandler
}

// WithPanicHandler sets the handler called when a task panics.
func WithPanicHandler(h PanicHandler) LoopOption {
	return func(c *loopConfig) {
		c.panicHandler = h
	}
}

// NewLoop creates a loop. Call Start before posting work.
func NewLoop(opts ...LoopOption) *Loop {
	var cfg loopConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loop{
		onPanic: cfg.panicHandler,
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the loop goroutine.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running || l.done != nil {
		return ErrAlreadyRunning
	}
	l.running = true
	l.done = make(chan struct{})
	go l.run()
	return nil
}

// IsRunning returns true if the loop accepts work.
func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running && !l.stopping
}

// Post queues task for execution and returns immediately.
func (l *Loop) Post(task Task) error {
	return l.enqueue(queuedTask{task: task})
}

// Do queues task and waits until it has run or ctx is done.
// It returns ErrTaskPanicked if the task panicked.
func (l *Loop) Do(ctx context.Context, task Task) error {
	result := make(chan Result, 1)
	if err := l.enqueue(queuedTask{task: task, result: result}); err != nil {
		return err
	}
	select {
	case r := <-result:
		if r.Panicked {
			return fmt.Errorf("%w: %v", ErrTaskPanicked, r.PanicValue)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) enqueue(qt queuedTask) error {
	if qt.task == nil {
		return nil
	}
	l.mu.Lock()
	if !l.running || l.stopping {
		l.mu.Unlock()
		l.rejected.Add(1)
		return ErrNotRunning
	}
	l.queue = append(l.queue, qt)
	l.mu.Unlock()

	l.posted.Add(1)
	l.signal()
	return nil
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Stop stops accepting work, runs everything already queued, and waits for
// the loop goroutine to exit or ctx to be done.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrNotRunning
	}
	l.stopping = true
	done := l.done
	l.mu.Unlock()

	l.signal()

	select {
	case <-done:
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the loop goroutine exits.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		stopping := l.stopping
		l.mu.Unlock()

		if len(batch) == 0 {
			if stopping {
				return
			}
			<-l.wake
			continue
		}

		for _, qt := range batch {
			l.execute(qt)
		}
	}
}

func (l *Loop) execute(qt queuedTask) {
	r := runTask(qt.task, l.onPanic)

	l.processed.Add(1)
	l.totalTimeNs.Add(int64(r.Duration))
	if r.Panicked {
		l.panicked.Add(1)
	}
	if qt.result != nil {
		qt.result <- r
	}
}

// QueueDepth returns the number of tasks waiting to run.
func (l *Loop) QueueDepth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Stats returns loop statistics.
func (l *Loop) Stats() LoopStats {
	processed := l.processed.Load()
	totalNs := l.totalTimeNs.Load()

	var avgNs int64
	if processed > 0 {
		avgNs = totalNs / int64(processed)
	}

	return LoopStats{
		Posted:        l.posted.Load(),
		Processed:     processed,
		Panicked:      l.panicked.Load(),
		Rejected:      l.rejected.Load(),
		QueueDepth:    l.QueueDepth(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// LoopStats contains statistics for a loop.
type LoopStats struct {
	// Posted is the total number of tasks accepted.
	Posted uint64

	// Processed is the number of tasks that have run.
	Processed uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// Rejected is the number of tasks refused because the loop was not running.
	Rejected uint64

	// QueueDepth is the number of tasks waiting to run.
	QueueDepth int

	// TotalDuration is the cumulative time spent running tasks.
	TotalDuration time.Duration

	// AvgDuration is the average task duration.
	AvgDuration time.Duration
}
