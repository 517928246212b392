package view

import (
	"context"
	"fmt"
	"iter"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
	"github.com/dshills/outliner/internal/outline"
)

// Document provides the text to display.
type Document interface {
	Snapshot() *document.Snapshot
}

// Outline provides the regions to display.
type Outline interface {
	Query(span text.Span) iter.Seq[outline.Region]
	Regions() *outline.RegionSet
}

// quitSignal is posted to stop Run.
type quitSignal struct{}

// Option configures a Viewer.
type Option func(*Viewer)

// WithTabWidth sets the number of cells a tab advances to.
func WithTabWidth(n int) Option {
	return func(v *Viewer) {
		if n > 0 {
			v.tabWidth = n
		}
	}
}

// WithName sets the name shown in the status line.
func WithName(name string) Option {
	return func(v *Viewer) {
		v.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Viewer) {
		v.logger = l
	}
}

// Viewer draws a document and its folds on a tcell screen.
// All methods except Notify must be called from the goroutine running Run.
type Viewer struct {
	screen  tcell.Screen
	doc     Document
	outline Outline

	name     string
	tabWidth int
	logger   zerolog.Logger

	snap    *document.Snapshot
	top     int
	cursor  int
	toggled map[int]bool
	rows    []row
}

// row is one drawn screen line.
type row struct {
	line      int
	region    outline.Region
	foldable  bool
	collapsed bool
}

// New creates a viewer. The screen is initialized by Run.
func New(screen tcell.Screen, doc Document, o Outline, opts ...Option) *Viewer {
	v := &Viewer{
		screen:   screen,
		doc:      doc,
		outline:  o,
		tabWidth: 4,
		logger:   zerolog.Nop(),
		toggled:  make(map[int]bool),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run initializes the screen and processes events until the user quits or
// ctx is done.
func (v *Viewer) Run(ctx context.Context) error {
	if err := v.screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer v.screen.Fini()

	stop := context.AfterFunc(ctx, func() {
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(quitSignal{}))
	})
	defer stop()

	v.Draw()
	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if v.HandleEvent(ev) {
			return nil
		}
		v.Draw()
	}
}

// Notify requests a redraw. It is safe to call from any goroutine.
func (v *Viewer) Notify() {
	if err := v.screen.PostEvent(tcell.NewEventInterrupt(nil)); err != nil {
		v.logger.Debug().Err(err).Msg("redraw request dropped")
	}
}

// Cursor returns the zero-based document line of the cursor.
func (v *Viewer) Cursor() int {
	return v.cursor
}

// HandleEvent applies ev and reports whether the viewer should quit.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	if v.snap == nil {
		v.snap = v.snapshot()
	}
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return v.handleKey(ev)
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventInterrupt:
		if _, ok := ev.Data().(quitSignal); ok {
			return true
		}
	}
	return false
}

func (v *Viewer) handleKey(ev *tcell.EventKey) bool {
	_, h := v.screen.Size()
	page := max(h-2, 1)

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		v.up(1)
	case tcell.KeyDown:
		v.down(1)
	case tcell.KeyPgUp:
		v.up(page)
	case tcell.KeyPgDn:
		v.down(page)
	case tcell.KeyHome:
		v.cursor, v.top = 0, 0
	case tcell.KeyEnd:
		v.cursor = v.visibleLine(v.snap.LineCount() - 1)
	case tcell.KeyEnter:
		v.Toggle()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true
		case ' ':
			v.Toggle()
		case 'k':
			v.up(1)
		case 'j':
			v.down(1)
		}
	}
	return false
}

func (v *Viewer) up(n int) {
	for ; n > 0 && v.cursor > 0; n-- {
		v.cursor = v.visibleLine(v.cursor - 1)
	}
}

func (v *Viewer) down(n int) {
	for ; n > 0; n-- {
		next := v.nextVisible(v.cursor)
		if next >= v.snap.LineCount() {
			return
		}
		v.cursor = next
	}
}

// Toggle collapses or expands the region starting on the cursor line. It
// returns false if no region starts there.
func (v *Viewer) Toggle() bool {
	if v.snap == nil {
		v.snap = v.snapshot()
	}
	_, collapsed, ok := v.fold(v.cursor)
	if !ok {
		return false
	}
	v.toggled[v.cursor] = !collapsed
	v.logger.Debug().Int("line", v.cursor+1).Bool("collapsed", !collapsed).Msg("fold toggled")
	return true
}

// snapshot returns the revision the current regions belong to, falling
// back to the document before the first outline is published.
func (v *Viewer) snapshot() *document.Snapshot {
	if snap := v.outline.Regions().Revision(); snap != nil {
		return snap
	}
	return v.doc.Snapshot()
}
