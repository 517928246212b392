package extract

import (
	"context"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
	"github.com/dshills/outliner/internal/outline"
)

// DefaultMinLines is the smallest number of lines a foldable block spans.
const DefaultMinLines = 2

// BlockMinLines is the smallest number of lines a delimited block spans,
// counted from the opening line to the closing delimiter. A two-line block
// would hide nothing but its closing delimiter.
const BlockMinLines = 3

// SpanRule describes how a foldable node becomes a region.
type SpanRule struct {
	// Fold is the range hidden when collapsed.
	Fold text.Span

	// Hint is the range shown on hover. Zero means Fold.
	Hint text.Span

	// Label replaces the fold while collapsed. Empty means "...".
	Label string

	// Collapsed marks regions that start collapsed.
	Collapsed bool

	// Implementation marks implementation bodies.
	Implementation bool

	// MinLines raises the collector's line threshold for this rule.
	MinLines int
}

// Classification is the result of classifying one node.
type Classification struct {
	foldable bool
	rule     SpanRule
}

// NotFoldable classifies a node that produces no region.
func NotFoldable() Classification {
	return Classification{}
}

// Foldable classifies a node that produces a region per rule.
func Foldable(rule SpanRule) Classification {
	return Classification{foldable: true, rule: rule}
}

// Rule returns the span rule and true if the node is foldable.
func (c Classification) Rule() (SpanRule, bool) {
	return c.rule, c.foldable
}

// IsFoldable returns true if the node is foldable.
func (c Classification) IsFoldable() bool {
	return c.foldable
}

// Options configures the extractors in this package tree.
type Options struct {
	// MinLines is the smallest number of lines a region spans.
	MinLines int

	// CollapseImports starts import blocks collapsed.
	CollapseImports bool
}

// DefaultOptions returns the default extractor options.
func DefaultOptions() Options {
	return Options{MinLines: DefaultMinLines}
}

// Collector turns classifications into regions for one revision.
type Collector struct {
	ctx      context.Context
	snap     *document.Snapshot
	minLines int
	regions  []outline.Region
}

// NewCollector creates a collector for snap.
func NewCollector(ctx context.Context, snap *document.Snapshot, opts Options) *Collector {
	minLines := opts.MinLines
	if minLines <= 0 {
		minLines = DefaultMinLines
	}
	return &Collector{ctx: ctx, snap: snap, minLines: minLines}
}

// Visit checks for cancellation and records c if it is foldable.
// It returns the context error once ctx is done.
func (col *Collector) Visit(c Classification) error {
	if err := col.ctx.Err(); err != nil {
		return err
	}
	if rule, ok := c.Rule(); ok {
		col.Add(rule)
	}
	return nil
}

// Add records rule as a region if it spans enough lines.
func (col *Collector) Add(rule SpanRule) {
	fold := rule.Fold.Clamp(col.snap.Len())
	if fold.IsEmpty() || !col.snap.SpansLines(fold, max(col.minLines, rule.MinLines)) {
		return
	}
	hint := rule.Hint
	if hint.IsEmpty() {
		hint = fold
	}
	hint = hint.Clamp(col.snap.Len())

	r := outline.NewRegion(col.snap, fold, hint)
	if rule.Label != "" {
		r.CollapsedLabel = rule.Label
	}
	r.DefaultCollapsed = rule.Collapsed
	r.Implementation = rule.Implementation
	col.regions = append(col.regions, r)
}

// Err returns the context error, if any.
func (col *Collector) Err() error {
	return col.ctx.Err()
}

// Snapshot returns the revision being outlined.
func (col *Collector) Snapshot() *document.Snapshot {
	return col.snap
}

// Regions returns the collected regions in visit order.
func (col *Collector) Regions() []outline.Region {
	return col.regions
}

// BlockRule folds the text between an opening delimiter at open and the
// closing delimiter at close, keeping the line of the opening delimiter
// visible. The hint covers the whole construct from hintStart. Blocks
// spanning fewer than BlockMinLines lines are not folded.
func BlockRule(snap *document.Snapshot, hintStart, open, close int) SpanRule {
	return SpanRule{
		Fold:     text.FromBounds(snap.LineEnd(snap.LineOf(open)), close+1),
		Hint:     text.FromBounds(hintStart, close+1),
		MinLines: BlockMinLines,
	}
}

// Func adapts a classification-free function to outline.Extractor.
type Func func(ctx context.Context, snap *document.Snapshot) ([]outline.Region, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, snap *document.Snapshot) ([]outline.Region, error) {
	return f(ctx, snap)
}
