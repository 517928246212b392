// Package brace folds C-family sources by matching braces.
//
// It folds every multi-line {...} block (bodies, initializers, switch
// bodies) and multi-line block comments, skipping braces inside string,
// character and template literals and comments.
package brace

import (
	"context"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
	"github.com/dshills/outliner/internal/outline"
	"github.com/dshills/outliner/internal/outline/extract"
)

// Extractor folds brace-delimited blocks.
type Extractor struct {
	opts extract.Options

	// RawQuote is a delimiter for raw multi-line literals, such as '`'.
	// Zero disables raw literals.
	RawQuote byte
}

// New creates a brace extractor.
func New(opts extract.Options) *Extractor {
	return &Extractor{opts: opts, RawQuote: '`'}
}

// Extract implements outline.Extractor.
func (x *Extractor) Extract(ctx context.Context, snap *document.Snapshot) ([]outline.Region, error) {
	col := extract.NewCollector(ctx, snap, x.opts)
	s := snap.Text()

	var open []int
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\n':
			if err := col.Visit(extract.NotFoldable()); err != nil {
				return nil, err
			}

		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			i = skipLine(s, i)

		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := skipBlockComment(s, i)
			if err := col.Visit(commentRule(snap, i, end)); err != nil {
				return nil, err
			}
			i = end - 1

		case c == '"' || c == '\'':
			i = skipQuoted(s, i, c)

		case x.RawQuote != 0 && c == x.RawQuote:
			i = skipRaw(s, i, c)

		case c == '{':
			open = append(open, i)

		case c == '}':
			if len(open) == 0 {
				// Unbalanced close; ignore it.
				continue
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			if err := col.Visit(classifyBlock(snap, start, i)); err != nil {
				return nil, err
			}
		}
	}

	if err := col.Err(); err != nil {
		return nil, err
	}
	return col.Regions(), nil
}

// classifyBlock folds a block below its opening line. Blocks whose brace
// opens a line fold from the end of the preceding header line.
func classifyBlock(snap *document.Snapshot, open, close int) extract.Classification {
	line := snap.LineOf(open)
	hintStart := firstNonBlank(snap, line)
	foldFrom := open
	if hintStart == open && line > 0 {
		// Allman style: the header is on the previous line.
		hintStart = firstNonBlank(snap, line-1)
		foldFrom = hintStart
	}
	rule := extract.BlockRule(snap, hintStart, foldFrom, close)
	rule.Implementation = true
	return extract.Foldable(rule)
}

func commentRule(snap *document.Snapshot, start, end int) extract.Classification {
	return extract.Foldable(extract.SpanRule{
		Fold: text.FromBounds(snap.LineEnd(snap.LineOf(start)), end),
		Hint: text.FromBounds(start, end),
	})
}

func firstNonBlank(snap *document.Snapshot, line int) int {
	start, end := snap.LineStart(line), snap.LineEnd(line)
	s := snap.Text()
	for i := start; i < end; i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return i
		}
	}
	return start
}

// skipLine returns the index of the newline ending the line at i.
func skipLine(s string, i int) int {
	for i < len(s) && s[i] != '\n' {
		i++
	}
	return i
}

// skipBlockComment returns the index just past the comment starting at i.
func skipBlockComment(s string, i int) int {
	for j := i + 2; j+1 < len(s); j++ {
		if s[j] == '*' && s[j+1] == '/' {
			return j + 2
		}
	}
	return len(s)
}

// skipQuoted returns the index of the closing quote. Literals end at the
// line end if unterminated.
func skipQuoted(s string, i int, q byte) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j
		case '\n':
			return j
		}
	}
	return len(s)
}

// skipRaw returns the index of the closing delimiter of a raw literal.
func skipRaw(s string, i int, q byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] == q {
			return j
		}
	}
	return len(s)
}
