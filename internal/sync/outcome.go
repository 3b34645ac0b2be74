package sync

import "github.com/fountainhq/fountain-agent/internal/platform"

// Outcome is the result of one sync run, returned to the trigger (scheduler
// tick or manual request) and mirrored into the durable state record.
type Outcome struct {
	Platform    platform.Platform `json:"platform"`
	Success     bool              `json:"success"`
	ItemsSynced int               `json:"items_synced"`
	Message     string            `json:"message,omitempty"`
}
