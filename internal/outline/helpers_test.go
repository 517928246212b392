package outline

import (
	"context"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
	"github.com/dshills/outliner/internal/event/dispatch"
)

const testDelay = 20 * time.Millisecond

// paragraphs folds every run of two or more non-blank lines.
func paragraphs(ctx context.Context, snap *document.Snapshot) ([]Region, error) {
	var out []Region
	start := -1
	flush := func(endLine int) {
		if start >= 0 && endLine > start {
			span := text.FromBounds(snap.LineEnd(start), snap.LineEnd(endLine))
			out = append(out, NewRegion(snap, span, span))
		}
		start = -1
	}
	for line := 0; line < snap.LineCount(); line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(snap.LineText(line)) == "" {
			flush(line - 1)
			continue
		}
		if start < 0 {
			start = line
		}
	}
	flush(snap.LineCount() - 1)
	return out, nil
}

type recordingLogger struct {
	mu      sync.Mutex
	errs    []error
	context []string
}

func (l *recordingLogger) LogError(err error, context string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
	l.context = append(l.context, context)
}

func (l *recordingLogger) entries() ([]error, []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]error(nil), l.errs...), append([]string(nil), l.context...)
}

func newTestLoop(t *testing.T) *dispatch.Loop {
	t.Helper()
	loop := dispatch.NewLoop()
	require.NoError(t, loop.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = loop.Stop(ctx)
	})
	return loop
}

type harness struct {
	doc     *document.Document
	loop    *dispatch.Loop
	engine  *Engine
	changes chan Change
}

func newHarness(t *testing.T, content string, ex Extractor, opts ...Option) *harness {
	t.Helper()
	doc := document.New(content)
	loop := newTestLoop(t)

	opts = append([]Option{WithDelay(testDelay)}, opts...)
	e, err := New(doc, ex, loop, opts...)
	require.NoError(t, err)

	h := &harness{doc: doc, loop: loop, engine: e, changes: make(chan Change, 64)}
	e.OnChanged(func(c Change) { h.changes <- c })
	t.Cleanup(func() {
		_ = loop.Do(context.Background(), e.Dispose)
	})
	return h
}

func (h *harness) waitChange(t *testing.T) Change {
	t.Helper()
	select {
	case c := <-h.changes:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
		return Change{}
	}
}

func (h *harness) expectNoChange(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case c := <-h.changes:
		t.Fatalf("unexpected change notification %v", c.Span)
	case <-time.After(wait):
	}
}

func (h *harness) query(t *testing.T, span text.Span) []Region {
	t.Helper()
	var out []Region
	require.NoError(t, h.loop.Do(context.Background(), func() {
		for r := range h.engine.Query(span) {
			out = append(out, r)
		}
	}))
	return out
}

func spansOf(seq iter.Seq[Region]) []text.Span {
	var out []text.Span
	for r := range seq {
		out = append(out, r.Span)
	}
	return out
}
