// Package fake provides a configurable in-memory adapter used by engine and
// API tests. It is the only adapter implementation that ships in this repo.
package fake

import (
	"context"
	"sync"

	"github.com/fountainhq/fountain-agent/internal/platform"
	"github.com/fountainhq/fountain-agent/internal/sources"
)

// Adapter is a scriptable sources.Adapter. Zero value is usable; configure
// with the setters before handing it to the engine.
type Adapter struct {
	platform platform.Platform

	mu         sync.Mutex
	userID     string
	items      []sources.Item
	fetchErr   error
	payloadErr error
	fetchCalls int
}

// New creates a fake adapter for the given platform.
func New(p platform.Platform) *Adapter {
	return &Adapter{platform: p, userID: "fake-user"}
}

// Register binds this fake into a registry so the engine resolves it like a
// real adapter.
func (a *Adapter) Register(r *sources.Registry) {
	r.Register(a.platform, func(_ sources.Deps) (sources.Adapter, error) {
		return a, nil
	})
}

// SetItems replaces the item list returned by Fetch.
func (a *Adapter) SetItems(items []sources.Item) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = items
}

// SetUserID replaces the platform account identifier returned by Fetch.
func (a *Adapter) SetUserID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userID = id
}

// SetFetchError makes every Fetch fail with err until cleared with nil.
func (a *Adapter) SetFetchError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetchErr = err
}

// SetPayloadError makes every ToPayload fail with err until cleared with nil.
func (a *Adapter) SetPayloadError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.payloadErr = err
}

// FetchCalls returns how many times Fetch has been invoked.
func (a *Adapter) FetchCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fetchCalls
}

// Platform implements sources.Adapter.
func (a *Adapter) Platform() platform.Platform {
	return a.platform
}

// Fetch implements sources.Adapter.
func (a *Adapter) Fetch(_ context.Context) (*sources.FetchResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.fetchCalls++
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}

	items := make([]sources.Item, len(a.items))
	copy(items, a.items)
	return &sources.FetchResult{UserID: a.userID, Items: items}, nil
}

// ToPayload implements sources.Adapter.
func (a *Adapter) ToPayload(item sources.Item) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.payloadErr != nil {
		return nil, a.payloadErr
	}
	return map[string]any{
		"external_id": item.ExternalID,
		"title":       item.Title,
	}, nil
}
