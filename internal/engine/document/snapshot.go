package document

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dshills/outliner/internal/engine/text"
)

// RevisionID identifies a document state. IDs increase by one per edit.
type RevisionID uint64

// Snapshot is an immutable view of the document at one revision.
// It is safe for concurrent access.
type Snapshot struct {
	id        RevisionID
	text      string
	timestamp time.Time

	linesOnce sync.Once
	lines     []int // start offset of every line
}

func newSnapshot(id RevisionID, s string) *Snapshot {
	return &Snapshot{id: id, text: s, timestamp: time.Now()}
}

// ID returns the revision ID of this snapshot.
func (s *Snapshot) ID() RevisionID {
	return s.id
}

// Timestamp returns when the revision was created.
func (s *Snapshot) Timestamp() time.Time {
	return s.timestamp
}

// Text returns the full content.
func (s *Snapshot) Text() string {
	return s.text
}

// Len returns the byte length of the content.
func (s *Snapshot) Len() int {
	return len(s.text)
}

// Slice returns the text covered by span, clamped to the content.
func (s *Snapshot) Slice(span text.Span) string {
	c := span.Clamp(len(s.text))
	return s.text[c.Start:c.End()]
}

func (s *Snapshot) lineStarts() []int {
	s.linesOnce.Do(func() {
		s.lines = append(s.lines, 0)
		for i := 0; i < len(s.text); i++ {
			if s.text[i] == '\n' {
				s.lines = append(s.lines, i+1)
			}
		}
	})
	return s.lines
}

// LineCount returns the number of lines. An empty document has one line.
func (s *Snapshot) LineCount() int {
	return len(s.lineStarts())
}

// LineOf returns the zero-based line containing offset.
func (s *Snapshot) LineOf(offset int) int {
	starts := s.lineStarts()
	// First line whose start is past offset, minus one.
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > offset })
	if i == 0 {
		return 0
	}
	return i - 1
}

// LineStart returns the offset of the first byte of line.
func (s *Snapshot) LineStart(line int) int {
	starts := s.lineStarts()
	if line <= 0 {
		return 0
	}
	if line >= len(starts) {
		return len(s.text)
	}
	return starts[line]
}

// LineEnd returns the offset of the end of line, before its newline.
func (s *Snapshot) LineEnd(line int) int {
	starts := s.lineStarts()
	if line < 0 {
		return 0
	}
	if line+1 >= len(starts) {
		return len(s.text)
	}
	return starts[line+1] - 1
}

// LineText returns the text of line without its newline.
func (s *Snapshot) LineText(line int) string {
	if line < 0 || line >= s.LineCount() {
		return ""
	}
	return s.text[s.LineStart(line):s.LineEnd(line)]
}

// Offset converts a zero-based line and byte column to an offset.
// Columns past the end of the line are clamped to the line end.
func (s *Snapshot) Offset(line, col int) int {
	start, end := s.LineStart(line), s.LineEnd(line)
	if col < 0 {
		col = 0
	}
	if start+col > end {
		return end
	}
	return start + col
}

// SpansLines returns true if span covers at least n lines.
func (s *Snapshot) SpansLines(span text.Span, n int) bool {
	if n <= 1 {
		return true
	}
	c := span.Clamp(len(s.text))
	return strings.Count(s.text[c.Start:c.End()], "\n")+1 >= n
}
