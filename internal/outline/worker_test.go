package outline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
)

type changeSink struct {
	mu      sync.Mutex
	changes []Change
}

func (s *changeSink) add(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, c)
}

func (s *changeSink) all() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Change(nil), s.changes...)
}

func newTestWorker(ex Extractor, doc *document.Document, logger Logger) (*Worker, *Store, *engineStats, *changeSink) {
	store := NewStore()
	stats := &engineStats{}
	sink := &changeSink{}
	return newWorker(ex, store, doc, logger, stats, sink.add), store, stats, sink
}

func waitIdle(t *testing.T, w *Worker) {
	t.Helper()
	require.Eventually(t, func() bool { return !w.Active() }, 2*time.Second, time.Millisecond)
}

func TestWorker_PublishesSorted(t *testing.T) {
	doc := document.New("abcdefghijklmnopqrstuvwxyz")
	ex := ExtractorFunc(func(ctx context.Context, snap *document.Snapshot) ([]Region, error) {
		return regionsAt(text.NewSpan(20, 2), text.NewSpan(0, 5), text.NewSpan(10, 5), text.NewSpan(0, 3)), nil
	})
	w, store, stats, sink := newTestWorker(ex, doc, NopLogger{})

	w.Start(doc.Snapshot())
	waitIdle(t, w)

	set := store.Load()
	assert.Same(t, doc.Snapshot(), set.Revision())
	assert.Equal(t, []text.Span{
		text.NewSpan(0, 5), text.NewSpan(0, 3), text.NewSpan(10, 5), text.NewSpan(20, 2),
	}, set.Spans())

	changes := sink.all()
	require.Len(t, changes, 1)
	assert.Equal(t, text.FromBounds(0, 22), changes[0].Span)
	assert.Equal(t, uint64(1), stats.published.Load())
}

func TestWorker_SupersededRunNeverPublishes(t *testing.T) {
	doc := document.New("one")
	first := doc.Snapshot()
	second, err := doc.Insert(3, " two")
	require.NoError(t, err)

	release := make(chan struct{})
	entered := make(chan struct{})
	ex := ExtractorFunc(func(ctx context.Context, snap *document.Snapshot) ([]Region, error) {
		if snap == first {
			close(entered)
			// Ignore cancellation and finish after it was requested.
			<-release
			return regionsAt(text.NewSpan(0, 1)), nil
		}
		return regionsAt(text.NewSpan(0, 7)), nil
	})
	w, store, stats, sink := newTestWorker(ex, doc, NopLogger{})

	w.Start(first)
	<-entered

	restarted := make(chan struct{})
	go func() {
		w.Start(second)
		close(restarted)
	}()

	// Start must wait for the first run to exit.
	select {
	case <-restarted:
		t.Fatal("Start returned before the previous run exited")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-restarted
	waitIdle(t, w)

	assert.Same(t, second, store.Load().Revision())
	assert.Equal(t, []text.Span{text.NewSpan(0, 7)}, store.Load().Spans())
	assert.Equal(t, uint64(1), stats.cancelled.Load())
	assert.Equal(t, uint64(1), stats.published.Load())
	for _, c := range sink.all() {
		assert.Same(t, second, c.Revision)
	}
}

func TestWorker_ExtractErrorKeepsStore(t *testing.T) {
	doc := document.New("func main() {}")
	var fail atomic.Bool
	ex := ExtractorFunc(func(ctx context.Context, snap *document.Snapshot) ([]Region, error) {
		if fail.Load() {
			return nil, NewExtractError("func main() {}", errors.New("bad node"))
		}
		return regionsAt(text.NewSpan(12, 2)), nil
	})
	logger := &recordingLogger{}
	w, store, stats, sink := newTestWorker(ex, doc, logger)

	w.Start(doc.Snapshot())
	waitIdle(t, w)
	good := store.Load()

	fail.Store(true)
	w.Start(doc.Snapshot())
	waitIdle(t, w)

	assert.Same(t, good, store.Load())
	assert.Len(t, sink.all(), 1)
	assert.Equal(t, uint64(1), stats.failed.Load())
	assert.Equal(t, uint64(doc.Snapshot().ID()), stats.lastFailed.Load())

	errs, ctxs := logger.entries()
	require.Len(t, errs, 1)
	var ee *ExtractError
	assert.ErrorAs(t, errs[0], &ee)
	assert.Equal(t, "func main() {}", ctxs[0])
}

func TestWorker_ExtractorPanicIsRecovered(t *testing.T) {
	doc := document.New("x")
	ex := ExtractorFunc(func(ctx context.Context, snap *document.Snapshot) ([]Region, error) {
		panic(NewExtractError("x", errors.New("nil child")))
	})
	logger := &recordingLogger{}
	w, store, stats, sink := newTestWorker(ex, doc, logger)

	w.Start(doc.Snapshot())
	waitIdle(t, w)

	assert.Zero(t, store.Load().Len())
	assert.Empty(t, sink.all())
	assert.Equal(t, uint64(1), stats.failed.Load())
	assert.Equal(t, uint64(doc.Snapshot().ID()), stats.lastFailed.Load())

	errs, ctxs := logger.entries()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrExtractPanic)
	assert.Equal(t, "x", ctxs[0])
}

func TestWorker_PanickingLoggerIsContained(t *testing.T) {
	doc := document.New("x")
	ex := ExtractorFunc(func(ctx context.Context, snap *document.Snapshot) ([]Region, error) {
		return nil, errors.New("broken")
	})
	logger := LoggerFunc(func(error, string) { panic("logger") })
	w, _, stats, _ := newTestWorker(ex, doc, logger)

	w.Start(doc.Snapshot())
	waitIdle(t, w)
	assert.Equal(t, uint64(1), stats.failed.Load())
}

func TestWorker_CancellationLeavesStoreWhole(t *testing.T) {
	doc := document.New("abcdefghij")
	var gen atomic.Int32
	ex := ExtractorFunc(func(ctx context.Context, snap *document.Snapshot) ([]Region, error) {
		n := int(gen.Add(1))
		var out []Region
		for i := 0; i < 50; i++ {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			out = append(out, Region{Span: text.NewSpan(i, n)})
			time.Sleep(50 * time.Microsecond)
		}
		return out, nil
	})
	w, store, _, _ := newTestWorker(ex, doc, NopLogger{})

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				set := store.Load()
				// Every published set is complete and uniform.
				if set.Len() != 0 {
					assert.Equal(t, 50, set.Len())
					length := set.At(0).Span.Length
					for r := range set.All() {
						assert.Equal(t, length, r.Span.Length)
					}
				}
			}
		}()
	}

	for i := 0; i < 30; i++ {
		w.Start(doc.Snapshot())
		time.Sleep(time.Duration(i%4) * 500 * time.Microsecond)
	}
	w.Stop()
	close(stop)
	readers.Wait()
	assert.False(t, w.Active())
}
