package sync

import (
	"context"
	"time"
)

// Syncer moves refresh records into the operational collection.
//
// Every method takes the wall-clock instant the caller considers "now"; the
// sync day is derived from it in the configured zone. A Syncer does not own
// its collections and never closes them.
type Syncer interface {
	// Run performs one full sync pass.
	//
	// Every staging document becomes a new active record: the staging
	// identifier is dropped, date is set to the sync day and comments and
	// status_trail are reset to empty sequences. A failed insert is logged,
	// counted and skipped. After the inserts the retention window is
	// applied when enabled.
	//
	// An empty staging collection returns immediately with no side effects.
	//
	// Returns an error only when the pass could not run at all (staging
	// unreadable, context cancelled). Per-record and retention failures are
	// reported on the Result; check Result.OK.
	Run(ctx context.Context, now time.Time) (*Result, error)

	// Prune applies the retention window on its own, deleting every active
	// record whose date is before the cutoff. Records are archived first
	// when an archiver is configured; a failed archive skips the delete.
	Prune(ctx context.Context, now time.Time) (*Retention, error)

	// Check counts both collections, proving they are readable.
	Check(ctx context.Context) (*Counts, error)

	// Status summarizes recent sync activity.
	Status(ctx context.Context, now time.Time) (*Status, error)
}
