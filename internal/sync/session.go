// Package sync implements the incremental sync engine: one Session drives a
// full run for a platform through fetch, change detection, batched push and
// state transitions.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fountainhq/fountain-agent/internal/backend"
	"github.com/fountainhq/fountain-agent/internal/platform"
	"github.com/fountainhq/fountain-agent/internal/sources"
	"github.com/fountainhq/fountain-agent/internal/sync/state"
)

// Backend is the protocol surface the session needs; *backend.Client
// implements it.
type Backend interface {
	Setup(ctx context.Context, kind platform.Kind, p platform.Platform, userID string) (string, error)
	Status(ctx context.Context, kind platform.Kind, sourceID string) (*time.Time, error)
	Push(ctx context.Context, kind platform.Kind, payload any) error
}

// pushPayload is one batch on the wire. The backend upserts on each item's
// external identifier, so replaying a batch is safe.
type pushPayload struct {
	SourceID string           `json:"source_id"`
	Items    []map[string]any `json:"items"`
}

// Session runs syncs. Safe for concurrent callers: a per-platform guard
// rejects a second run for the same platform while one is in flight, so a
// manual trigger can never interleave with a scheduled run.
type Session struct {
	store    state.Store
	backend  Backend
	registry *sources.Registry
	deps     sources.Deps
	logger   *slog.Logger

	guards map[platform.Platform]*sync.Mutex
}

// NewSession creates a Session over the given collaborators.
func NewSession(
	store state.Store, b Backend, registry *sources.Registry, deps sources.Deps, logger *slog.Logger,
) *Session {
	guards := make(map[platform.Platform]*sync.Mutex, len(platform.All()))
	for _, p := range platform.All() {
		guards[p] = &sync.Mutex{}
	}
	return &Session{
		store:    store,
		backend:  b,
		registry: registry,
		deps:     deps,
		logger:   logger,
		guards:   guards,
	}
}

// Run performs one full sync for a platform and returns its outcome. Errors
// are folded into the outcome; Run itself never fails the caller.
func (s *Session) Run(ctx context.Context, p platform.Platform) Outcome {
	guard, ok := s.guards[p]
	if !ok {
		return Outcome{Platform: p, Message: fmt.Sprintf("unknown platform '%s'", p)}
	}
	if !guard.TryLock() {
		// A run is already in flight; no state transition happens here.
		return Outcome{Platform: p, Message: "sync already in progress"}
	}
	defer guard.Unlock()

	if err := s.store.BeginSync(ctx, p); err != nil {
		return Outcome{Platform: p, Message: err.Error()}
	}

	outcome := s.run(ctx, p)

	final := state.StatusSuccess
	if !outcome.Success {
		final = state.StatusError
		if isAuthFailure(outcome.err) {
			final = state.StatusNeedsAuth
		}
	}
	if err := s.store.FinishSync(ctx, p, final, outcome.ItemsSynced, outcome.Message); err != nil {
		s.logger.Error("Failed to persist sync result", "platform", p, "error", err)
	}
	return outcome.Outcome
}

// runResult carries the raw error alongside the outcome so Run can classify
// the final status with errors.As instead of message matching.
type runResult struct {
	Outcome
	err error
}

func (s *Session) run(ctx context.Context, p platform.Platform) runResult {
	fail := func(err error, step string) runResult {
		wrapped := fmt.Errorf("%s: %w", step, err)
		s.logger.Error("Sync failed", "platform", p, "error", wrapped)
		return runResult{Outcome: Outcome{Platform: p, Message: wrapped.Error()}, err: err}
	}

	traits := p.Traits()
	logger := s.logger.With("platform", p, "kind", traits.Kind)
	logger.Info("Starting sync")

	adapter, err := s.registry.New(p, s.deps)
	if err != nil {
		return fail(err, "adapter unavailable")
	}

	// A NotConfiguredError surfaces here too: it fails the run before any
	// backend traffic and classifies as Error, not NeedsAuth.
	fetched, err := adapter.Fetch(ctx)
	if err != nil {
		return fail(err, "fetch")
	}
	logger.Debug("Fetched items", "count", len(fetched.Items))

	sourceID, err := s.backend.Setup(ctx, traits.Kind, p, fetched.UserID)
	if err != nil {
		return fail(err, "setup")
	}

	watermark, err := s.backend.Status(ctx, traits.Kind, sourceID)
	if err != nil {
		if backend.IsUnauthorized(err) {
			return fail(err, "status")
		}
		// A missing watermark only widens the diff; the push itself is still
		// idempotent, so treat the status as "never synced" and continue.
		logger.Warn("Status check failed, assuming first sync", "error", err)
		watermark = nil
	}

	var manifest state.Manifest
	if traits.Strategy == platform.StrategyFingerprint {
		manifest = s.store.Manifest(ctx, p)
	}

	changed := detectorFor(traits.Strategy).Detect(fetched.Items, manifest, watermark)
	if len(changed) == 0 {
		logger.Info("No changes detected")
		return runResult{Outcome: Outcome{Platform: p, Success: true}}
	}
	logger.Info("Changes detected", "changed", len(changed), "fetched", len(fetched.Items))

	pushed, pushErr := s.pushBatches(ctx, logger, adapter, traits, sourceID, changed, manifest)

	if manifest != nil {
		// One flush per run, covering whole completed batches only.
		if err := s.store.SaveManifest(ctx, p, manifest); err != nil {
			logger.Error("Failed to persist manifest", "error", err)
		}
	}

	if pushErr != nil {
		return fail(pushErr, "push")
	}
	logger.Info("Sync complete", "items", pushed)
	return runResult{Outcome: Outcome{Platform: p, Success: true, ItemsSynced: pushed}}
}

// pushBatches pushes the changed subset in fixed-size batches, sequentially.
// A batch failure aborts the rest of the run; manifest entries are recorded
// only for batches confirmed pushed, so the next run re-detects the rest.
func (s *Session) pushBatches(
	ctx context.Context,
	logger *slog.Logger,
	adapter sources.Adapter,
	traits platform.Traits,
	sourceID string,
	changed []sources.Item,
	manifest state.Manifest,
) (int, error) {
	pushed := 0
	for start := 0; start < len(changed); start += traits.BatchSize {
		end := start + traits.BatchSize
		if end > len(changed) {
			end = len(changed)
		}
		batch := changed[start:end]

		payload := pushPayload{SourceID: sourceID, Items: make([]map[string]any, 0, len(batch))}
		for _, item := range batch {
			body, err := adapter.ToPayload(item)
			if err != nil {
				return pushed, fmt.Errorf("item '%s': %w", item.ExternalID, err)
			}
			payload.Items = append(payload.Items, body)
		}

		if err := s.backend.Push(ctx, traits.Kind, payload); err != nil {
			return pushed, err
		}

		pushed += len(batch)
		if manifest != nil {
			for _, item := range batch {
				manifest[item.ExternalID] = fingerprintEntry(item)
			}
		}
		logger.Debug("Pushed batch", "size", len(batch), "total", pushed)
	}
	return pushed, nil
}

// isAuthFailure decides NeedsAuth: the adapter reported a credential
// rejection, or the backend answered 401/403 on any protocol step.
func isAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	var authErr *sources.AuthError
	if errors.As(err, &authErr) {
		return true
	}
	return backend.IsUnauthorized(err)
}
