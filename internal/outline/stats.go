package outline

import (
	"sync/atomic"
	"time"

	"github.com/dshills/outliner/internal/engine/document"
)

type engineStats struct {
	runs          atomic.Uint64
	published     atomic.Uint64
	cancelled     atomic.Uint64
	failed        atomic.Uint64
	notifications atomic.Uint64
	lastDuration  atomic.Int64
	lastFailed    atomic.Uint64
}

// fail records a failed run for rev.
func (s *engineStats) fail(rev document.RevisionID) {
	s.lastFailed.Store(uint64(rev))
	s.failed.Add(1)
}

// Stats contains statistics for an engine.
type Stats struct {
	// Runs is the number of worker runs started.
	Runs uint64

	// Published is the number of runs that replaced the store.
	Published uint64

	// Cancelled is the number of runs superseded before publishing.
	Cancelled uint64

	// Failed is the number of runs aborted by an extraction error or panic.
	Failed uint64

	// Notifications is the number of change notifications delivered.
	Notifications uint64

	// Queries is the number of range queries served or declined.
	Queries uint64

	// DeclinedQueries is the number of queries that returned nothing
	// because the store was being replaced.
	DeclinedQueries uint64

	// LastDuration is how long the most recent run took.
	LastDuration time.Duration

	// Regions is the number of regions currently stored.
	Regions int

	// LastFailedRevision is the revision of the most recent failed run, or
	// zero if no run has failed.
	LastFailedRevision document.RevisionID
}
