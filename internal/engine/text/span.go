package text

import "fmt"

// Span is a byte range within one document revision.
// It covers [Start, Start+Length).
type Span struct {
	Start  int
	Length int
}

// NewSpan creates a span from a start offset and a length.
func NewSpan(start, length int) Span {
	return Span{Start: start, Length: length}
}

// FromBounds creates a span covering [start, end).
// If end < start the span is empty at start.
func FromBounds(start, end int) Span {
	if end < start {
		end = start
	}
	return Span{Start: start, Length: end - start}
}

// End returns the exclusive end offset.
func (s Span) End() int {
	return s.Start + s.Length
}

// IsEmpty returns true if the span has zero length.
func (s Span) IsEmpty() bool {
	return s.Length == 0
}

// Contains returns true if offset lies within the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End()
}

// ContainsSpan returns true if other lies entirely within s.
func (s Span) ContainsSpan(other Span) bool {
	return other.Start >= s.Start && other.End() <= s.End()
}

// Overlaps returns true if the two spans share at least one offset.
// Spans that only touch do not overlap.
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End() && other.Start < s.End()
}

// Intersects reports whether s should be considered part of a query for other.
// A non-empty query uses half-open overlap; an empty query at p matches
// spans that contain p.
func (s Span) Intersects(query Span) bool {
	if query.IsEmpty() {
		return s.Contains(query.Start)
	}
	return s.Overlaps(query)
}

// Union returns the smallest span covering both spans.
func (s Span) Union(other Span) Span {
	return FromBounds(min(s.Start, other.Start), max(s.End(), other.End()))
}

// Shift returns a new span moved by delta.
func (s Span) Shift(delta int) Span {
	return Span{Start: s.Start + delta, Length: s.Length}
}

// Clamp restricts the span to [0, limit).
func (s Span) Clamp(limit int) Span {
	start := min(max(s.Start, 0), limit)
	end := min(max(s.End(), start), limit)
	return FromBounds(start, end)
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	return fmt.Sprintf("[%d:%d)", s.Start, s.End())
}
