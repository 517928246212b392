package text

import "fmt"

// Edit is a single replacement applied to a revision.
// Position and Deleted are in the coordinates of the revision the edit was
// applied to; Inserted is the length of the replacement text.
type Edit struct {
	Position int
	Deleted  int
	Inserted int
}

// NewInsert creates an edit representing an insertion of n bytes.
func NewInsert(pos, n int) Edit {
	return Edit{Position: pos, Inserted: n}
}

// NewDelete creates an edit removing [start, end).
func NewDelete(start, end int) Edit {
	return Edit{Position: start, Deleted: end - start}
}

// NewReplace creates an edit replacing [start, end) with n bytes.
func NewReplace(start, end, n int) Edit {
	return Edit{Position: start, Deleted: end - start, Inserted: n}
}

// OldEnd returns the end of the replaced range before the edit.
func (e Edit) OldEnd() int {
	return e.Position + e.Deleted
}

// NewEnd returns the end of the inserted text after the edit.
func (e Edit) NewEnd() int {
	return e.Position + e.Inserted
}

// Delta returns the change in document length.
func (e Edit) Delta() int {
	return e.Inserted - e.Deleted
}

// IsInsert returns true if the edit removes nothing.
func (e Edit) IsInsert() bool {
	return e.Deleted == 0
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	switch {
	case e.Deleted == 0:
		return fmt.Sprintf("insert %d at %d", e.Inserted, e.Position)
	case e.Inserted == 0:
		return fmt.Sprintf("delete [%d:%d)", e.Position, e.OldEnd())
	default:
		return fmt.Sprintf("replace [%d:%d) with %d", e.Position, e.OldEnd(), e.Inserted)
	}
}

// trackStart moves a start edge across one edit.
// Insertions at the edge land outside the span.
func trackStart(x int, e Edit) int {
	switch {
	case x < e.Position:
		return x
	case x == e.Position:
		if e.Deleted == 0 {
			return x + e.Inserted
		}
		return x
	case x >= e.OldEnd():
		return x + e.Delta()
	default:
		// Edge was deleted; keep the replacement text outside.
		return e.NewEnd()
	}
}

// trackEnd moves an end edge across one edit.
// Insertions at the edge land outside the span.
func trackEnd(x int, e Edit) int {
	switch {
	case x <= e.Position:
		return x
	case x >= e.OldEnd():
		return x + e.Delta()
	default:
		return e.Position
	}
}

// TranslateSpan maps s through the edits, in order, using edge-exclusive
// tracking. The result never has negative length.
func TranslateSpan(s Span, edits []Edit) Span {
	start, end := s.Start, s.End()
	for _, e := range edits {
		start = trackStart(start, e)
		end = trackEnd(end, e)
		if end < start {
			end = start
		}
	}
	return FromBounds(start, end)
}

// TranslateSpans maps every span through the same edit log.
func TranslateSpans(spans []Span, edits []Edit) []Span {
	out := make([]Span, len(spans))
	for i, s := range spans {
		out[i] = TranslateSpan(s, edits)
	}
	return out
}

// TranslateOffset maps a single offset through the edits.
// Insertions at the offset push it forward.
func TranslateOffset(offset int, edits []Edit) int {
	for _, e := range edits {
		offset = trackStart(offset, e)
	}
	return offset
}
