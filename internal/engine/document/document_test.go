package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/outliner/internal/engine/text"
)

func TestDocumentEdits(t *testing.T) {
	doc := New("hello world")
	require.Equal(t, RevisionID(1), doc.Snapshot().ID())

	snap, err := doc.Insert(5, ",")
	require.NoError(t, err)
	assert.Equal(t, "hello, world", snap.Text())
	assert.Equal(t, RevisionID(2), snap.ID())

	snap, err = doc.Delete(0, 7)
	require.NoError(t, err)
	assert.Equal(t, "world", snap.Text())

	snap, err = doc.Replace(0, 5, "there")
	require.NoError(t, err)
	assert.Equal(t, "there", snap.Text())
	assert.Equal(t, RevisionID(4), doc.Snapshot().ID())
}

func TestDocumentEditErrors(t *testing.T) {
	doc := New("abc")

	_, err := doc.Insert(4, "x")
	assert.ErrorIs(t, err, ErrOffsetOutOfRange)

	_, err = doc.Replace(2, 1, "x")
	assert.ErrorIs(t, err, ErrRangeInvalid)

	_, err = doc.Delete(-1, 1)
	assert.ErrorIs(t, err, ErrOffsetOutOfRange)

	assert.Equal(t, RevisionID(1), doc.Snapshot().ID(), "failed edits must not create revisions")
}

func TestSnapshotsAreImmutable(t *testing.T) {
	doc := New("abc")
	before := doc.Snapshot()
	_, err := doc.Insert(3, "def")
	require.NoError(t, err)

	assert.Equal(t, "abc", before.Text())
	assert.Equal(t, "abcdef", doc.Snapshot().Text())
}

func TestEditsBetween(t *testing.T) {
	doc := New("0123456789")
	start := doc.Snapshot().ID()

	_, _ = doc.Insert(0, "ab")
	mid := doc.Snapshot().ID()
	_, _ = doc.Delete(3, 5)
	end := doc.Snapshot().ID()

	edits, err := doc.EditsBetween(start, end)
	require.NoError(t, err)
	assert.Equal(t, []text.Edit{text.NewInsert(0, 2), text.NewDelete(3, 5)}, edits)

	edits, err = doc.EditsBetween(mid, end)
	require.NoError(t, err)
	assert.Equal(t, []text.Edit{text.NewDelete(3, 5)}, edits)

	edits, err = doc.EditsBetween(end, end)
	require.NoError(t, err)
	assert.Empty(t, edits)

	_, err = doc.EditsBetween(end, start)
	assert.ErrorIs(t, err, ErrRevisionOrder)

	_, err = doc.EditsBetween(start, end+1)
	assert.ErrorIs(t, err, ErrRevisionNotFound)
}

func TestEditsBetweenTrimmedHistory(t *testing.T) {
	doc := New("", WithMaxHistory(2))
	start := doc.Snapshot().ID()
	for i := 0; i < 5; i++ {
		_, err := doc.Insert(0, "x")
		require.NoError(t, err)
	}
	end := doc.Snapshot().ID()

	_, err := doc.EditsBetween(start, end)
	assert.ErrorIs(t, err, ErrRevisionNotFound)

	edits, err := doc.EditsBetween(end-2, end)
	require.NoError(t, err)
	assert.Len(t, edits, 2)
}

func TestSubscribe(t *testing.T) {
	doc := New("abc")

	var events []ChangeEvent
	unsubscribe := doc.Subscribe(func(ev ChangeEvent) {
		events = append(events, ev)
	})
	assert.Equal(t, 1, doc.Subscribers())

	_, err := doc.Insert(1, "x")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ChangeEdit, events[0].Kind)
	assert.Equal(t, "abc", events[0].Before.Text())
	assert.Equal(t, "axbc", events[0].After.Text())
	assert.Equal(t, text.NewInsert(1, 1), events[0].Edit)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, doc.Subscribers())

	_, _ = doc.Insert(0, "y")
	assert.Len(t, events, 1)
}

func TestCompositeEdits(t *testing.T) {
	doc := New("abc")

	var kinds []ChangeKind
	var composite []bool
	doc.Subscribe(func(ev ChangeEvent) {
		kinds = append(kinds, ev.Kind)
		composite = append(composite, doc.InCompositeEdit())
	})

	doc.BeginComposite()
	doc.BeginComposite()
	_, _ = doc.Insert(0, "1")
	require.NoError(t, doc.EndComposite())
	_, _ = doc.Insert(0, "2")
	require.NoError(t, doc.EndComposite())

	assert.Equal(t, []ChangeKind{ChangeEdit, ChangeEdit, ChangeCompositeEnd}, kinds)
	assert.Equal(t, []bool{true, true, false}, composite)
	assert.False(t, doc.InCompositeEdit())
	assert.ErrorIs(t, doc.EndComposite(), ErrNoComposite)
}

func TestSync(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"append line", "a\nb\n", "a\nb\nc\n"},
		{"remove line", "a\nb\nc\n", "a\nc\n"},
		{"change middle", "one\ntwo\nthree\n", "one\n2\nthree\n"},
		{"no trailing newline", "a\nb", "a\nbb"},
		{"from empty", "", "x\ny\n"},
		{"to empty", "x\ny\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := New(tt.old)
			start := doc.Snapshot().ID()

			changed, err := doc.Sync(tt.new)
			require.NoError(t, err)
			assert.True(t, changed)
			assert.Equal(t, tt.new, doc.Snapshot().Text())

			// Replaying the recorded edits must reproduce the new text.
			edits, err := doc.EditsBetween(start, doc.Snapshot().ID())
			require.NoError(t, err)
			assert.NotEmpty(t, edits)
		})
	}

	t.Run("unchanged", func(t *testing.T) {
		doc := New("same\n")
		changed, err := doc.Sync("same\n")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, RevisionID(1), doc.Snapshot().ID())
	})

	t.Run("keeps unchanged lines stable", func(t *testing.T) {
		doc := New("head\nbody\ntail\n")
		start := doc.Snapshot().ID()
		_, err := doc.Sync("head\nBODY\nbody2\ntail\n")
		require.NoError(t, err)

		edits, err := doc.EditsBetween(start, doc.Snapshot().ID())
		require.NoError(t, err)
		tail := text.TranslateSpan(text.FromBounds(10, 14), edits)
		assert.Equal(t, "tail", doc.Snapshot().Slice(tail))
	})

	t.Run("single change event", func(t *testing.T) {
		doc := New("a\nb\nc\n")
		ends := 0
		doc.Subscribe(func(ev ChangeEvent) {
			if ev.Kind == ChangeCompositeEnd {
				ends++
			}
		})
		_, err := doc.Sync("x\nb\ny\n")
		require.NoError(t, err)
		assert.Equal(t, 1, ends)
	})
}

func TestSnapshotLines(t *testing.T) {
	doc := New("ab\ncde\n\nf")
	snap := doc.Snapshot()

	assert.Equal(t, 4, snap.LineCount())
	assert.Equal(t, 0, snap.LineOf(0))
	assert.Equal(t, 0, snap.LineOf(2))
	assert.Equal(t, 1, snap.LineOf(3))
	assert.Equal(t, 2, snap.LineOf(7))
	assert.Equal(t, 3, snap.LineOf(8))
	assert.Equal(t, 3, snap.LineOf(100))

	assert.Equal(t, 3, snap.LineStart(1))
	assert.Equal(t, 6, snap.LineEnd(1))
	assert.Equal(t, "cde", snap.LineText(1))
	assert.Equal(t, "", snap.LineText(2))
	assert.Equal(t, "f", snap.LineText(3))
	assert.Equal(t, 9, snap.LineEnd(3))

	assert.Equal(t, 4, snap.Offset(1, 1))
	assert.Equal(t, 6, snap.Offset(1, 50))

	assert.True(t, snap.SpansLines(text.FromBounds(0, 4), 2))
	assert.False(t, snap.SpansLines(text.FromBounds(3, 6), 2))
	assert.Equal(t, "cde", snap.Slice(text.FromBounds(3, 6)))
	assert.Equal(t, "f", snap.Slice(text.FromBounds(8, 99)))
}
