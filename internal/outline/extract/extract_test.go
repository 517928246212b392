package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
	"github.com/dshills/outliner/internal/outline"
)

func TestClassification(t *testing.T) {
	_, ok := NotFoldable().Rule()
	assert.False(t, ok)
	assert.False(t, NotFoldable().IsFoldable())

	rule := SpanRule{Fold: text.NewSpan(1, 2), Label: "x"}
	got, ok := Foldable(rule).Rule()
	assert.True(t, ok)
	assert.Equal(t, rule, got)
}

func TestCollector(t *testing.T) {
	snap := document.New("a {\n  b\n}\nc { d }\n").Snapshot()
	col := NewCollector(context.Background(), snap, DefaultOptions())

	require.NoError(t, col.Visit(NotFoldable()))
	require.NoError(t, col.Visit(Foldable(BlockRule(snap, 0, 2, 8))))
	require.NoError(t, col.Visit(Foldable(BlockRule(snap, 10, 12, 16))))
	require.NoError(t, col.Visit(Foldable(SpanRule{
		Fold:           text.FromBounds(3, 9),
		Label:          "{...}",
		Collapsed:      true,
		Implementation: true,
	})))

	regions := col.Regions()
	require.Len(t, regions, 2)

	block := regions[0]
	assert.Equal(t, "\n  b\n}", snap.Slice(block.Span))
	assert.Equal(t, "a {\n  b\n}", block.Hint.String())
	assert.Equal(t, outline.DefaultCollapsedLabel, block.CollapsedLabel)

	custom := regions[1]
	assert.Equal(t, "{...}", custom.CollapsedLabel)
	assert.Equal(t, custom.Span, custom.HintSpan)
	assert.True(t, custom.DefaultCollapsed)
	assert.True(t, custom.Implementation)
}

func TestCollector_MinLines(t *testing.T) {
	snap := document.New("1\n2\n3\n4\n").Snapshot()
	col := NewCollector(context.Background(), snap, Options{MinLines: 3})

	col.Add(SpanRule{Fold: text.FromBounds(0, 3)})
	col.Add(SpanRule{Fold: text.FromBounds(0, 5)})
	assert.Len(t, col.Regions(), 1)
}

func TestCollector_SkipsTwoLineBlocks(t *testing.T) {
	src := "f() {\n}\ng() {\n  x\n}\nh()\n{\n}\n"
	snap := document.New(src).Snapshot()
	col := NewCollector(context.Background(), snap, DefaultOptions())

	col.Add(BlockRule(snap, 0, 4, 6))
	col.Add(BlockRule(snap, 8, 12, 18))
	hLine := strings.Index(src, "h()")
	col.Add(BlockRule(snap, hLine, hLine, strings.LastIndex(src, "}")))

	regions := col.Regions()
	require.Len(t, regions, 2)
	assert.Equal(t, "g() {\n  x\n}", regions[0].Hint.String())
	assert.Equal(t, "h()\n{\n}", regions[1].Hint.String())

	// A plain span rule keeps the collector threshold.
	col.Add(SpanRule{Fold: text.FromBounds(0, 7)})
	assert.Len(t, col.Regions(), 3)
}

func TestCollector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	col := NewCollector(ctx, document.New("x").Snapshot(), DefaultOptions())
	cancel()

	assert.ErrorIs(t, col.Visit(NotFoldable()), context.Canceled)
	assert.ErrorIs(t, col.Err(), context.Canceled)
}
