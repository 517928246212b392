package app

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/outline"
)

// maxHintWidth bounds the hint text printed per region.
const maxHintWidth = 60

// WriteRegions writes one line per region of set.
func WriteRegions(w io.Writer, set *outline.RegionSet) error {
	bw := bufio.NewWriter(w)
	snap := set.Revision()
	for r := range set.All() {
		if _, err := fmt.Fprintln(bw, FormatRegion(snap, r)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FormatRegion renders a region as "start-end flags hint" with one-based
// line numbers. Flags are C for collapsed by default and I for
// implementation bodies.
func FormatRegion(snap *document.Snapshot, r outline.Region) string {
	start := snap.LineOf(r.Span.Start) + 1
	end := start
	if !r.Span.IsEmpty() {
		end = snap.LineOf(r.Span.End()-1) + 1
	}

	flags := ""
	if r.DefaultCollapsed {
		flags += "C"
	}
	if r.Implementation {
		flags += "I"
	}
	if flags == "" {
		flags = "-"
	}

	hint := ""
	if r.Hint != nil {
		hint = r.Hint.String()
	}
	hint, _, _ = strings.Cut(hint, "\n")
	hint = strings.TrimSpace(hint)
	if runes := []rune(hint); len(runes) > maxHintWidth {
		hint = string(runes[:maxHintWidth]) + r.CollapsedLabel
	}
	return fmt.Sprintf("%d-%d %s %s", start, end, flags, hint)
}
