package outline

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
)

// RegionSet is an immutable, start-sorted list of regions computed from one
// revision.
type RegionSet struct {
	regions  []Region
	ends     endTree
	revision *document.Snapshot
}

// NewRegionSet creates a set from regions already sorted by start.
// The set takes ownership of the slice.
func NewRegionSet(revision *document.Snapshot, regions []Region) *RegionSet {
	return &RegionSet{regions: regions, ends: newEndTree(regions), revision: revision}
}

// Revision returns the revision the regions were computed from.
// It is nil for the initial empty set.
func (s *RegionSet) Revision() *document.Snapshot {
	if s == nil {
		return nil
	}
	return s.revision
}

// Len returns the number of regions.
func (s *RegionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.regions)
}

// At returns the i'th region in start order.
func (s *RegionSet) At(i int) Region {
	return s.regions[i]
}

// All yields every region in start order.
func (s *RegionSet) All() iter.Seq[Region] {
	return func(yield func(Region) bool) {
		if s == nil {
			return
		}
		for _, r := range s.regions {
			if !yield(r) {
				return
			}
		}
	}
}

// Spans returns the span of every region in start order.
func (s *RegionSet) Spans() []text.Span {
	if s == nil {
		return nil
	}
	return Spans(s.regions)
}

// Query yields, in start order, every region whose span intersects q.
// An empty q at p yields the regions containing p.
func (s *RegionSet) Query(q text.Span) iter.Seq[Region] {
	return func(yield func(Region) bool) {
		if s == nil {
			return
		}
		s.scan(q, yield, nil)
	}
}

// scan walks only the regions that end after q.Start, stopping at the first
// one that starts past q. Each hit costs O(log n) in the end tree.
func (s *RegionSet) scan(q text.Span, yield func(Region) bool, visited *int) {
	for i := s.ends.next(0, q.Start, visited); i >= 0; i = s.ends.next(i+1, q.Start, visited) {
		r := s.regions[i]
		if pastQuery(r.Span, q) {
			return
		}
		if r.Span.Intersects(q) && !yield(r) {
			return
		}
	}
}

// pastQuery returns true once a start-sorted scan can no longer find a
// region intersecting q.
func pastQuery(span, q text.Span) bool {
	if q.IsEmpty() {
		return span.Start > q.Start
	}
	return span.Start >= q.End()
}

// Store holds the current RegionSet. Sets are replaced whole, never mutated.
//
// Readers never block: while a replacement is in progress Query declines and
// yields nothing.
type Store struct {
	mu        sync.RWMutex
	current   *RegionSet
	replacing atomic.Bool

	queries  atomic.Uint64
	declined atomic.Uint64
}

// NewStore creates a store holding an empty set.
func NewStore() *Store {
	return &Store{current: NewRegionSet(nil, nil)}
}

// Load returns the current set, blocking if a replacement is in progress.
func (s *Store) Load() *RegionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// tryLoad returns the current set unless a replacement is in progress.
func (s *Store) tryLoad() (*RegionSet, bool) {
	if s.replacing.Load() {
		return nil, false
	}
	if !s.mu.TryRLock() {
		return nil, false
	}
	defer s.mu.RUnlock()
	return s.current, true
}

// Query yields the regions intersecting q from the current set, or nothing
// if the store is being replaced.
func (s *Store) Query(q text.Span) iter.Seq[Region] {
	s.queries.Add(1)
	set, ok := s.tryLoad()
	if !ok {
		s.declined.Add(1)
		return func(func(Region) bool) {}
	}
	return set.Query(q)
}

// Replace swaps in next and returns the previous set. cancelled is checked
// under the write lock; if it reports true nothing is replaced and ok is
// false.
func (s *Store) Replace(next *RegionSet, cancelled func() bool) (prev *RegionSet, ok bool) {
	s.replacing.Store(true)
	defer s.replacing.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	if cancelled != nil && cancelled() {
		return s.current, false
	}
	prev = s.current
	s.current = next
	return prev, true
}

// StoreStats contains query statistics for a store.
type StoreStats struct {
	Queries  uint64
	Declined uint64
}

// Stats returns store statistics.
func (s *Store) Stats() StoreStats {
	return StoreStats{
		Queries:  s.queries.Load(),
		Declined: s.declined.Load(),
	}
}
