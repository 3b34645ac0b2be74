package state

import (
	"time"

	"github.com/fountainhq/fountain-agent/internal/platform"
)

// Status is the sync state of a single platform. It is only ever mutated
// through Store methods.
type Status string

const (
	// StatusIdle means no sync has run yet, or a stale in-flight marker was
	// cleared during startup recovery.
	StatusIdle Status = "idle"

	// StatusSyncing means a sync run is in progress.
	StatusSyncing Status = "syncing"

	// StatusSuccess means the last run completed, including runs that found
	// no changes.
	StatusSuccess Status = "success"

	// StatusError means the last run failed for a non-auth reason.
	StatusError Status = "error"

	// StatusNeedsAuth means the stored credentials for the platform are no
	// longer valid and the user must re-authenticate.
	StatusNeedsAuth Status = "needs_auth"
)

// Record is the durable per-platform sync state.
type Record struct {
	Status Status `json:"status"`

	// LastSyncAt is the completion time of the last successful run. It is
	// updated on every success, including empty-diff runs.
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`

	// ItemCount is the number of items pushed by the last successful run.
	ItemCount int `json:"item_count"`

	// LastError holds the failure message of the last run, cleared on success.
	LastError string `json:"last_error,omitempty"`
}

// Document is the single durable state document: one record per platform.
type Document struct {
	Records map[platform.Platform]Record `json:"records"`
}

// ManifestEntry is the per-item fingerprint persisted for platforms using
// fingerprint-manifest change detection.
type ManifestEntry struct {
	// Count is a cheap cardinality fingerprint, e.g. the number of
	// annotations attached to a book.
	Count int `json:"count"`

	// Progress is a numeric progress fingerprint in [0,1]. Compared with a
	// small tolerance since readers report it as floating point.
	Progress float64 `json:"progress"`
}

// Manifest maps a stable external item key to its last-pushed fingerprint.
type Manifest map[string]ManifestEntry

// Event is emitted on every record mutation so a shell can mirror progress.
type Event struct {
	Platform platform.Platform `json:"platform"`
	Record   Record            `json:"record"`
}
