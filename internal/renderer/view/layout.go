package view

import (
	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
	"github.com/dshills/outliner/internal/outline"
)

// lineSpan returns the span of line including its newline.
func lineSpan(snap *document.Snapshot, line int) text.Span {
	return text.FromBounds(snap.LineStart(line), min(snap.LineEnd(line)+1, snap.Len()))
}

// endLine returns the last line touched by r.
func endLine(snap *document.Snapshot, r outline.Region) int {
	if r.Span.IsEmpty() {
		return snap.LineOf(r.Span.Start)
	}
	return snap.LineOf(r.Span.End() - 1)
}

// fold returns the outermost region starting on line and whether it is
// collapsed.
func (v *Viewer) fold(line int) (outline.Region, bool, bool) {
	var best outline.Region
	found := false
	for r := range v.outline.Query(lineSpan(v.snap, line)) {
		if v.snap.LineOf(r.Span.Start) != line {
			continue
		}
		if !found || r.Span.Length > best.Span.Length {
			best, found = r, true
		}
	}
	if !found {
		return best, false, false
	}
	collapsed, ok := v.toggled[line]
	if !ok {
		collapsed = best.DefaultCollapsed
	}
	return best, collapsed, true
}

// visibleLine returns the line that displays line: line itself, or the
// first line of the outermost collapsed region hiding it.
func (v *Viewer) visibleLine(line int) int {
	result := line
	for r := range v.outline.Query(lineSpan(v.snap, line)) {
		start := v.snap.LineOf(r.Span.Start)
		if start >= result || endLine(v.snap, r) < line {
			continue
		}
		if _, collapsed, ok := v.fold(start); ok && collapsed {
			result = start
		}
	}
	return result
}

// nextVisible returns the first line drawn after line.
func (v *Viewer) nextVisible(line int) int {
	if r, collapsed, ok := v.fold(line); ok && collapsed {
		return max(endLine(v.snap, r), line) + 1
	}
	return line + 1
}

// layout computes the rows drawn from v.top.
func (v *Viewer) layout(height int) []row {
	rows := make([]row, 0, height)
	for line := v.top; line < v.snap.LineCount() && len(rows) < height; {
		r, collapsed, ok := v.fold(line)
		rows = append(rows, row{line: line, region: r, foldable: ok, collapsed: ok && collapsed})
		line = v.nextVisible(line)
	}
	return rows
}

// scrollToCursor moves the cursor out of hidden lines and adjusts v.top so
// the cursor row is drawn.
func (v *Viewer) scrollToCursor(height int) {
	last := v.snap.LineCount() - 1
	v.cursor = v.visibleLine(min(max(v.cursor, 0), last))
	v.top = v.visibleLine(min(max(v.top, 0), last))
	if v.cursor < v.top {
		v.top = v.cursor
		return
	}
	for !v.drawsCursor(v.layout(height)) {
		v.top = v.nextVisible(v.top)
	}
}

func (v *Viewer) drawsCursor(rows []row) bool {
	for _, r := range rows {
		if r.line == v.cursor {
			return true
		}
	}
	return false
}

// rowText returns the text of a row: the line itself, or for a collapsed
// row the text before the region, its label and the text after it.
func (v *Viewer) rowText(r row) (before, label, after string) {
	snap := v.snap
	lineStart, lineEnd := snap.LineStart(r.line), snap.LineEnd(r.line)
	if !r.collapsed {
		return snap.Text()[lineStart:lineEnd], "", ""
	}
	foldStart := min(max(r.region.Span.Start, lineStart), lineEnd)
	before = snap.Text()[lineStart:foldStart]
	end := endLine(snap, r.region)
	if tail := snap.LineEnd(end); r.region.Span.End() < tail {
		after = snap.Text()[r.region.Span.End():tail]
	}
	return before, r.region.CollapsedLabel, after
}
