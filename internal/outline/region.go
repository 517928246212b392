package outline

import (
	"fmt"
	"slices"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
)

// DefaultCollapsedLabel is shown in place of a collapsed region.
const DefaultCollapsedLabel = "..."

// Region is a foldable range plus its display hint. Offsets are only
// meaningful together with the revision the region was extracted from.
type Region struct {
	// Span is the range hidden when the region is collapsed.
	Span text.Span

	// HintSpan is the range whose text is shown on hover.
	HintSpan text.Span

	// CollapsedLabel replaces the span while collapsed.
	CollapsedLabel string

	// Hint renders the hover content. It may be nil.
	Hint fmt.Stringer

	// DefaultCollapsed marks regions that start out collapsed.
	DefaultCollapsed bool

	// Implementation marks implementation bodies, as opposed to
	// declarations, comments and literals.
	Implementation bool
}

// String returns a human-readable representation of the region.
func (r Region) String() string {
	return fmt.Sprintf("%s %q", r.Span, r.CollapsedLabel)
}

// TextHint renders the text of a span of one revision on demand.
type TextHint struct {
	Snapshot *document.Snapshot
	Span     text.Span
}

// String returns the hinted text.
func (h TextHint) String() string {
	if h.Snapshot == nil {
		return ""
	}
	return h.Snapshot.Slice(h.Span)
}

// NewRegion creates a region that hides span and hints hint, with the default
// label and lazily rendered hint text.
func NewRegion(snap *document.Snapshot, span, hint text.Span) Region {
	return Region{
		Span:           span,
		HintSpan:       hint,
		CollapsedLabel: DefaultCollapsedLabel,
		Hint:           TextHint{Snapshot: snap, Span: hint},
	}
}

// SortRegions sorts regions by span start. Regions with equal starts keep
// their extraction order.
func SortRegions(regions []Region) {
	slices.SortStableFunc(regions, func(a, b Region) int {
		return a.Span.Start - b.Span.Start
	})
}

// IsSorted returns true if regions are ordered by span start.
func IsSorted(regions []Region) bool {
	return slices.IsSortedFunc(regions, func(a, b Region) int {
		return a.Span.Start - b.Span.Start
	})
}

// Spans returns the span of every region, in order.
func Spans(regions []Region) []text.Span {
	out := make([]text.Span, len(regions))
	for i, r := range regions {
		out[i] = r.Span
	}
	return out
}
