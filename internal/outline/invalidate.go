package outline

import (
	"cmp"
	"slices"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
)

// EditLog returns the edits between two revisions.
type EditLog interface {
	EditsBetween(from, to document.RevisionID) ([]text.Edit, error)
}

// InvalidatedRange returns the smallest span covering every span present in
// exactly one of prev and next. Both must be in the same coordinates.
// It returns false if the two sets are equal.
func InvalidatedRange(prev, next []text.Span) (text.Span, bool) {
	a := normalize(prev)
	b := normalize(next)

	first, last := -1, -1
	include := func(s text.Span) {
		if first < 0 || s.Start < first {
			first = s.Start
		}
		if s.End() > last {
			last = s.End()
		}
	}

	// Merge walk over both sorted sets; unmatched spans are the symmetric
	// difference.
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b):
			include(a[i])
			i++
		case i == len(a):
			include(b[j])
			j++
		default:
			switch c := compareSpans(a[i], b[j]); {
			case c == 0:
				i++
				j++
			case c < 0:
				include(a[i])
				i++
			default:
				include(b[j])
				j++
			}
		}
	}

	if first < 0 {
		return text.Span{}, false
	}
	return text.FromBounds(first, last), true
}

// invalidated computes the range to report after replacing prev with next.
// Previous spans are translated to next's revision through log; if the log
// no longer covers prev's revision the whole document is invalidated.
func invalidated(log EditLog, prev, next *RegionSet) (text.Span, bool) {
	rev := next.Revision()
	prevSpans := prev.Spans()

	if from := prev.Revision(); from != nil && len(prevSpans) > 0 && rev != nil && from.ID() != rev.ID() {
		edits, err := log.EditsBetween(from.ID(), rev.ID())
		if err != nil {
			return text.NewSpan(0, rev.Len()), true
		}
		prevSpans = text.TranslateSpans(prevSpans, edits)
	}
	return InvalidatedRange(prevSpans, next.Spans())
}

func compareSpans(a, b text.Span) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.Length, b.Length)
}

// normalize returns spans sorted by start then length, without duplicates.
func normalize(spans []text.Span) []text.Span {
	out := slices.Clone(spans)
	slices.SortFunc(out, compareSpans)
	return slices.Compact(out)
}
