// Package sources defines the contract a platform adapter must satisfy to
// plug into the sync engine, plus the registry through which adapter
// implementations make themselves available. Adapters themselves live in
// separate per-platform packages; this repo only ships test fakes.
package sources

import (
	"context"
	"log/slog"
	"time"

	"github.com/fountainhq/fountain-agent/internal/credentials"
	"github.com/fountainhq/fountain-agent/internal/platform"
)

// Item is one unit of data fetched from a platform, normalized just far
// enough for change detection. The platform-specific shape stays opaque in
// Data until ToPayload converts it for the backend.
type Item struct {
	// ExternalID is the platform's stable identifier for the item. Used as
	// the manifest key and as the backend's upsert identity.
	ExternalID string

	// Title is a human-readable label used in logs and notifications.
	Title string

	// UpdatedAt is the item's creation/modification time on the platform.
	// Nil when the platform does not expose one; timestamp-filtered sources
	// include such items conservatively.
	UpdatedAt *time.Time

	// Count and Progress form the item's fingerprint for fingerprint-diff
	// sources: a cardinality (e.g. number of highlights) and a reading
	// progress value in [0,1].
	Count    int
	Progress float64

	// Data is the adapter's raw representation, passed back to ToPayload.
	Data any
}

// FetchResult is the full current item list for one platform account.
type FetchResult struct {
	// UserID is the platform-side account identifier, sent to the backend
	// during setup so the source is scoped to the right account.
	UserID string

	Items []Item
}

// Adapter is implemented once per platform. Fetch may page and rate-limit
// internally; it returns the complete current item list, and the engine
// decides what is new.
type Adapter interface {
	// Platform identifies which platform this adapter serves.
	Platform() platform.Platform

	// Fetch returns the platform account's full current item list. It must
	// return a NotConfiguredError when required credentials are missing, an
	// AuthError when the platform rejects them, and a ParseError when the
	// platform's data cannot be decoded.
	Fetch(ctx context.Context) (*FetchResult, error)

	// ToPayload converts one item into the backend JSON shape for the
	// adapter's kind.
	ToPayload(item Item) (map[string]any, error)
}

// Deps is what the registry hands each adapter factory.
type Deps struct {
	Credentials credentials.Store
	Logger      *slog.Logger
}
