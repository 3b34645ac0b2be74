// Package state contains the durable per-platform sync state which the agent
// persists across restarts, and the fingerprint manifests used by
// fingerprint-based change detection.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fountainhq/fountain-agent/internal/platform"
)

// eventBuffer bounds the per-subscriber event queue. A slow shell loses
// intermediate events rather than blocking a sync run.
const eventBuffer = 16

// Store provides atomic read-modify-write access to the per-platform sync
// records and manifests. All status transitions go through BeginSync and
// FinishSync; nothing else may mutate a record.
type Store interface {
	// Load reads the durable document and applies startup recovery: every
	// record found in Syncing is reset to Idle, since no run survives a
	// process restart. Must be called once before the scheduler starts.
	Load(ctx context.Context) error

	// Get returns a copy of the record for one platform.
	Get(ctx context.Context, p platform.Platform) (Record, error)

	// List returns a copy of every record.
	List(ctx context.Context) (map[platform.Platform]Record, error)

	// BeginSync transitions a platform to Syncing and persists the document.
	// Returns an error if the platform is already Syncing.
	BeginSync(ctx context.Context, p platform.Platform) error

	// FinishSync transitions a Syncing platform to its final status and
	// persists the document. On Success the sync timestamp is refreshed and
	// the error cleared; on Error or NeedsAuth the message is recorded.
	FinishSync(ctx context.Context, p platform.Platform, final Status, itemCount int, errMsg string) error

	// Manifest returns the fingerprint manifest for a platform. A corrupted
	// manifest is logged and treated as empty, never fatal to a run.
	Manifest(ctx context.Context, p platform.Platform) Manifest

	// SaveManifest persists the fingerprint manifest for a platform.
	SaveManifest(ctx context.Context, p platform.Platform, m Manifest) error

	// Subscribe returns a channel receiving an event for every record
	// mutation. Events are dropped rather than ever blocking a sync run.
	Subscribe() <-chan Event

	// Unsubscribe removes a channel returned by Subscribe and closes it.
	Unsubscribe(ch <-chan Event)
}

type fileStore struct {
	persistence Persistence

	mu      sync.RWMutex
	records map[platform.Platform]Record

	subMu       sync.Mutex
	subscribers []chan Event

	now func() time.Time
}

// NewStore creates a Store over the given persistence.
func NewStore(persistence Persistence) Store {
	return &fileStore{
		persistence: persistence,
		records:     make(map[platform.Platform]Record),
		now:         time.Now,
	}
}

func (s *fileStore) Load(ctx context.Context) error {
	doc, err := s.persistence.LoadDocument(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sync state: %w", err)
	}

	recovered := 0
	for p, rec := range doc.Records {
		if rec.Status == StatusSyncing {
			// A Syncing record can only be left behind by a process that died
			// mid-run. All other statuses are kept untouched.
			rec.Status = StatusIdle
			doc.Records[p] = rec
			recovered++
		}
	}

	// Platforms missing from the document start out Idle.
	for _, p := range platform.All() {
		if _, ok := doc.Records[p]; !ok {
			doc.Records[p] = Record{Status: StatusIdle}
		}
	}

	if recovered > 0 {
		slog.Warn("Recovered interrupted sync state on startup", "recovered", recovered)
		if err := s.persistence.SaveDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to persist recovered sync state: %w", err)
		}
	}

	s.mu.Lock()
	s.records = doc.Records
	s.mu.Unlock()
	return nil
}

func (s *fileStore) Get(_ context.Context, p platform.Platform) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[p]
	if !ok {
		return Record{}, fmt.Errorf("sync record for platform '%s' not found", p)
	}
	return rec, nil
}

func (s *fileStore) List(_ context.Context) (map[platform.Platform]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[platform.Platform]Record, len(s.records))
	for p, rec := range s.records {
		out[p] = rec
	}
	return out, nil
}

func (s *fileStore) BeginSync(ctx context.Context, p platform.Platform) error {
	return s.transition(ctx, p, func(rec *Record) error {
		if rec.Status == StatusSyncing {
			return fmt.Errorf("platform '%s' is already syncing", p)
		}
		rec.Status = StatusSyncing
		return nil
	})
}

func (s *fileStore) FinishSync(
	ctx context.Context, p platform.Platform, final Status, itemCount int, errMsg string,
) error {
	switch final {
	case StatusSuccess, StatusError, StatusNeedsAuth:
	default:
		return fmt.Errorf("invalid final sync status %q for platform '%s'", final, p)
	}

	return s.transition(ctx, p, func(rec *Record) error {
		if rec.Status != StatusSyncing {
			return fmt.Errorf("platform '%s' is not syncing (status=%s)", p, rec.Status)
		}
		rec.Status = final
		if final == StatusSuccess {
			now := s.now()
			rec.LastSyncAt = &now
			rec.ItemCount = itemCount
			rec.LastError = ""
		} else {
			rec.LastError = errMsg
		}
		return nil
	})
}

// transition applies fn to the record under the store lock, persists the full
// document, and notifies subscribers.
func (s *fileStore) transition(
	ctx context.Context, p platform.Platform, fn func(rec *Record) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[p]
	if !ok {
		return fmt.Errorf("sync record for platform '%s' not found", p)
	}

	if err := fn(&rec); err != nil {
		return err
	}

	doc := &Document{Records: make(map[platform.Platform]Record, len(s.records))}
	for k, v := range s.records {
		doc.Records[k] = v
	}
	doc.Records[p] = rec

	if err := s.persistence.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to persist sync state for platform '%s': %w", p, err)
	}

	s.records[p] = rec
	s.notify(Event{Platform: p, Record: rec})
	return nil
}

func (s *fileStore) Manifest(ctx context.Context, p platform.Platform) Manifest {
	m, err := s.persistence.LoadManifest(ctx, p)
	if err != nil {
		slog.Warn("Manifest unreadable, starting fresh", "platform", p, "error", err)
		return Manifest{}
	}
	return m
}

func (s *fileStore) SaveManifest(ctx context.Context, p platform.Platform, m Manifest) error {
	return s.persistence.SaveManifest(ctx, p, m)
}

func (s *fileStore) Subscribe() <-chan Event {
	ch := make(chan Event, eventBuffer)
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.subMu.Unlock()
	return ch
}

func (s *fileStore) Unsubscribe(ch <-chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for i, sub := range s.subscribers {
		if (<-chan Event)(sub) == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

func (s *fileStore) notify(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
