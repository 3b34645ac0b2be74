package sync

import (
	"math"
	"time"

	"github.com/fountainhq/fountain-agent/internal/platform"
	"github.com/fountainhq/fountain-agent/internal/sources"
	"github.com/fountainhq/fountain-agent/internal/sync/state"
)

// progressTolerance absorbs floating-point jitter in reading-progress values
// reported by platforms; a smaller change is not a change.
const progressTolerance = 0.005

// Detector reduces a full fetched item list to the subset worth pushing.
// Each strategy uses only the input relevant to it: fingerprint-diff reads
// the manifest, timestamp-filter reads the backend watermark.
type Detector interface {
	Detect(items []sources.Item, manifest state.Manifest, watermark *time.Time) []sources.Item
}

// detectorFor selects the strategy configured for a platform.
func detectorFor(s platform.Strategy) Detector {
	if s == platform.StrategyFingerprint {
		return fingerprintDetector{}
	}
	return timestampDetector{}
}

// fingerprintDetector compares each item's fingerprint against the persisted
// manifest. Used for local stores with no server-confirmed watermark.
type fingerprintDetector struct{}

func (fingerprintDetector) Detect(
	items []sources.Item, manifest state.Manifest, _ *time.Time,
) []sources.Item {
	var changed []sources.Item
	for _, item := range items {
		entry, ok := manifest[item.ExternalID]
		if !ok {
			changed = append(changed, item)
			continue
		}
		if entry.Count != item.Count ||
			math.Abs(entry.Progress-item.Progress) > progressTolerance {
			changed = append(changed, item)
		}
	}
	return changed
}

// timestampDetector keeps items newer than the backend's watermark. Items
// with no timestamp are kept conservatively; dropping them could lose data.
type timestampDetector struct{}

func (timestampDetector) Detect(
	items []sources.Item, _ state.Manifest, watermark *time.Time,
) []sources.Item {
	if watermark == nil {
		// First sync: the backend has seen nothing.
		out := make([]sources.Item, len(items))
		copy(out, items)
		return out
	}

	var changed []sources.Item
	for _, item := range items {
		if item.UpdatedAt == nil || item.UpdatedAt.After(*watermark) {
			changed = append(changed, item)
		}
	}
	return changed
}

// fingerprintEntry is the manifest record written back for an item once its
// batch has been confirmed pushed.
func fingerprintEntry(item sources.Item) state.ManifestEntry {
	return state.ManifestEntry{Count: item.Count, Progress: item.Progress}
}
