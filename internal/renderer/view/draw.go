package view

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
)

const (
	markerExpanded  = '▾'
	markerCollapsed = '▸'
)

var (
	styleText   = tcell.StyleDefault
	styleGutter = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleCursor = tcell.StyleDefault.Reverse(true)
	styleLabel  = tcell.StyleDefault.Foreground(tcell.ColorTeal).Bold(true)
	styleStatus = tcell.StyleDefault.Reverse(true)
)

// Draw renders one frame and shows it.
func (v *Viewer) Draw() {
	v.snap = v.snapshot()
	w, h := v.screen.Size()
	body := max(h-1, 1)
	v.scrollToCursor(body)
	v.rows = v.layout(body)

	v.screen.Clear()
	numWidth := len(fmt.Sprint(v.snap.LineCount()))
	textX := numWidth + 3

	for y, r := range v.rows {
		gutter := styleGutter
		if r.line == v.cursor {
			gutter = styleCursor
		}
		drawString(v.screen, 0, y, w, fmt.Sprintf("%*d", numWidth, r.line+1), gutter)
		switch {
		case r.collapsed:
			v.screen.SetContent(numWidth+1, y, markerCollapsed, nil, styleGutter)
		case r.foldable:
			v.screen.SetContent(numWidth+1, y, markerExpanded, nil, styleGutter)
		}

		before, label, after := v.rowText(r)
		x := v.drawText(textX, y, w, before, styleText, textX)
		x = drawString(v.screen, x, y, w, label, styleLabel)
		v.drawText(x, y, w, after, styleText, textX)
	}
	if len(v.rows) > 0 {
		v.screen.ShowCursor(textX, v.cursorRow())
	}

	v.drawStatus(w, h-1)
	v.screen.Show()
}

func (v *Viewer) cursorRow() int {
	for y, r := range v.rows {
		if r.line == v.cursor {
			return y
		}
	}
	return 0
}

func (v *Viewer) drawStatus(w, y int) {
	for x := 0; x < w; x++ {
		v.screen.SetContent(x, y, ' ', nil, styleStatus)
	}
	name := v.name
	if name == "" {
		name = "[document]"
	}
	status := fmt.Sprintf(" %s  Ln %d/%d  %d folds  rev %d ",
		name, v.cursor+1, v.snap.LineCount(), v.outline.Regions().Len(), v.snap.ID())
	x := drawString(v.screen, 0, y, w, status, styleStatus)
	help := " space toggle  q quit "
	if hx := w - uniseg.StringWidth(help); hx > x {
		drawString(v.screen, hx, y, w, help, styleStatus)
	}
}

// drawText draws s with tabs expanded relative to origin.
func (v *Viewer) drawText(x, y, maxX int, s string, style tcell.Style, origin int) int {
	for s != "" && x < maxX {
		if s[0] == '\t' {
			next := origin + ((x-origin)/v.tabWidth+1)*v.tabWidth
			for ; x < next && x < maxX; x++ {
				v.screen.SetContent(x, y, ' ', nil, style)
			}
			s = s[1:]
			continue
		}
		var cluster string
		var width int
		cluster, s, width, _ = uniseg.FirstGraphemeClusterInString(s, -1)
		x = setCluster(v.screen, x, y, maxX, cluster, width, style)
	}
	return x
}

// drawString draws s without tab expansion.
func drawString(screen tcell.Screen, x, y, maxX int, s string, style tcell.Style) int {
	for s != "" && x < maxX {
		var cluster string
		var width int
		cluster, s, width, _ = uniseg.FirstGraphemeClusterInString(s, -1)
		x = setCluster(screen, x, y, maxX, cluster, width, style)
	}
	return x
}

func setCluster(screen tcell.Screen, x, y, maxX int, cluster string, width int, style tcell.Style) int {
	if width == 0 {
		return x
	}
	if x+width > maxX {
		return maxX
	}
	runes := []rune(cluster)
	screen.SetContent(x, y, runes[0], runes[1:], style)
	return x + width
}
