package document

import (
	"errors"
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/dshills/outliner/internal/engine/text"
)

// Errors returned by document operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
	ErrRevisionNotFound = errors.New("revision not found in edit history")
	ErrRevisionOrder    = errors.New("target revision precedes source revision")
	ErrNoComposite      = errors.New("no composite edit in progress")
)

// DefaultMaxHistory is the default number of edits kept for span translation.
const DefaultMaxHistory = 10000

// ChangeKind categorizes a change notification.
type ChangeKind uint8

const (
	// ChangeEdit is sent after every individual edit.
	ChangeEdit ChangeKind = iota

	// ChangeCompositeEnd is sent once the outermost composite edit completes.
	ChangeCompositeEnd
)

// String returns a human-readable representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeEdit:
		return "edit"
	case ChangeCompositeEnd:
		return "composite-end"
	default:
		return "unknown"
	}
}

// ChangeEvent describes a document change.
type ChangeEvent struct {
	Kind ChangeKind

	// Before is the snapshot the edit was applied to. For ChangeCompositeEnd it
	// is the snapshot that was current when the composite began.
	Before *Snapshot

	// After is the resulting snapshot.
	After *Snapshot

	// Edit is the applied edit. Zero for ChangeCompositeEnd.
	Edit text.Edit
}

// Listener receives change events. Listeners run synchronously on the
// goroutine that made the edit and must not edit the document.
type Listener func(ChangeEvent)

// Option configures a Document.
type Option func(*Document)

// WithMaxHistory sets how many edits are retained for EditsBetween.
func WithMaxHistory(n int) Option {
	return func(d *Document) {
		if n > 0 {
			d.maxHistory = n
		}
	}
}

type historyEntry struct {
	revision RevisionID // revision produced by the edit
	edit     text.Edit
}

// Document is a mutable text whose every state is an immutable Snapshot.
// All methods are thread-safe.
type Document struct {
	mu      sync.Mutex
	current *Snapshot

	// Edit history ring buffer
	history    []historyEntry
	head       int
	count      int
	maxHistory int

	composite      int
	compositeStart *Snapshot

	listeners    map[uint64]Listener
	nextListener uint64
}

// New creates a document with initial content at revision 1.
func New(content string, opts ...Option) *Document {
	d := &Document{
		current:    newSnapshot(1, content),
		maxHistory: DefaultMaxHistory,
		listeners:  make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.history = make([]historyEntry, d.maxHistory)
	return d
}

// Snapshot returns the current revision.
func (d *Document) Snapshot() *Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Insert inserts s at offset.
func (d *Document) Insert(offset int, s string) (*Snapshot, error) {
	return d.Replace(offset, offset, s)
}

// Delete removes [start, end).
func (d *Document) Delete(start, end int) (*Snapshot, error) {
	return d.Replace(start, end, "")
}

// Replace replaces [start, end) with s and returns the new snapshot.
func (d *Document) Replace(start, end int, s string) (*Snapshot, error) {
	d.mu.Lock()
	before := d.current
	if start > end {
		d.mu.Unlock()
		return nil, ErrRangeInvalid
	}
	if start < 0 || end > before.Len() {
		d.mu.Unlock()
		return nil, ErrOffsetOutOfRange
	}

	edit := text.NewReplace(start, end, len(s))
	content := before.text[:start] + s + before.text[end:]
	after := newSnapshot(before.id+1, content)
	d.current = after
	d.recordLocked(after.id, edit)
	listeners := d.listenersLocked()
	d.mu.Unlock()

	ev := ChangeEvent{Kind: ChangeEdit, Before: before, After: after, Edit: edit}
	for _, l := range listeners {
		l(ev)
	}
	return after, nil
}

// recordLocked appends an edit to the ring buffer (must hold lock).
func (d *Document) recordLocked(rev RevisionID, edit text.Edit) {
	idx := (d.head + d.count) % d.maxHistory
	if d.count < d.maxHistory {
		d.count++
	} else {
		d.head = (d.head + 1) % d.maxHistory
	}
	d.history[idx] = historyEntry{revision: rev, edit: edit}
}

func (d *Document) listenersLocked() []Listener {
	out := make([]Listener, 0, len(d.listeners))
	for i := uint64(0); i < d.nextListener; i++ {
		if l, ok := d.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

// BeginComposite starts a composite edit. Composite edits nest; the
// ChangeCompositeEnd event fires when the outermost one ends.
func (d *Document) BeginComposite() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.composite == 0 {
		d.compositeStart = d.current
	}
	d.composite++
}

// EndComposite ends the innermost composite edit.
func (d *Document) EndComposite() error {
	d.mu.Lock()
	if d.composite == 0 {
		d.mu.Unlock()
		return ErrNoComposite
	}
	d.composite--
	if d.composite > 0 {
		d.mu.Unlock()
		return nil
	}
	ev := ChangeEvent{Kind: ChangeCompositeEnd, Before: d.compositeStart, After: d.current}
	d.compositeStart = nil
	listeners := d.listenersLocked()
	d.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
	return nil
}

// InCompositeEdit returns true while a composite edit is open.
func (d *Document) InCompositeEdit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.composite > 0
}

// Subscribe registers a listener and returns a function that removes it.
func (d *Document) Subscribe(l Listener) (unsubscribe func()) {
	d.mu.Lock()
	id := d.nextListener
	d.nextListener++
	d.listeners[id] = l
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners, id)
			d.mu.Unlock()
		})
	}
}

// Subscribers returns the number of registered listeners.
func (d *Document) Subscribers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

// EditsBetween returns the edits that turn revision from into revision to.
// It fails with ErrRevisionNotFound once the history no longer reaches back
// to from.
func (d *Document) EditsBetween(from, to RevisionID) ([]text.Edit, error) {
	if from == to {
		return nil, nil
	}
	if to < from {
		return nil, ErrRevisionOrder
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if to > d.current.id {
		return nil, ErrRevisionNotFound
	}

	edits := make([]text.Edit, 0, int(to-from))
	next := from + 1
	for i := 0; i < d.count; i++ {
		entry := d.history[(d.head+i)%d.maxHistory]
		if entry.revision < next {
			continue
		}
		if entry.revision != next {
			return nil, ErrRevisionNotFound
		}
		edits = append(edits, entry.edit)
		if next == to {
			return edits, nil
		}
		next++
	}
	return nil, ErrRevisionNotFound
}

// Sync replaces the content with s using a line diff so that unchanged
// lines keep their identity in the edit history. The edits are applied as
// one composite edit. It returns false if the content was already s.
func (d *Document) Sync(s string) (bool, error) {
	old := d.Snapshot().Text()
	if old == s {
		return false, nil
	}

	a := splitLines(old)
	b := splitLines(s)
	ops := difflib.NewMatcher(a, b).GetOpCodes()
	aOff := lineOffsets(a)

	d.BeginComposite()
	defer d.EndComposite() //nolint:errcheck // balanced with BeginComposite above

	delta := 0
	for _, op := range ops {
		if op.Tag == 'e' {
			continue
		}
		start := aOff[op.I1] + delta
		end := aOff[op.I2] + delta
		repl := strings.Join(b[op.J1:op.J2], "")
		if _, err := d.Replace(start, end, repl); err != nil {
			return true, err
		}
		delta += len(repl) - (end - start)
	}
	return true, nil
}

// splitLines splits s after every newline. The final element holds any
// text after the last newline and is omitted when empty.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// lineOffsets returns the starting offset of each line plus the total length.
func lineOffsets(lines []string) []int {
	out := make([]int, len(lines)+1)
	for i, l := range lines {
		out[i+1] = out[i] + len(l)
	}
	return out
}
