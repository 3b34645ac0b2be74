// Package credentials stores per-platform secrets (cookies, tokens) in the OS
// keychain. Keys are opaque strings owned by the adapters; the engine never
// interprets them.
package credentials

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// service namespaces every entry this agent writes into the OS keychain.
const service = "com.fountainhq.fountain-agent"

// KeyBackendAPIKey is where the backend API key lives. Platform adapters own
// their own keys; this is the only one the engine reads itself.
const KeyBackendAPIKey = "backend_api_key"

// ErrNotFound is returned when no credential is stored under a key.
var ErrNotFound = errors.New("credential not found")

// Store provides access to per-platform secrets.
type Store interface {
	// Get returns the credential stored under key, or ErrNotFound.
	Get(key string) (string, error)

	// Set stores a credential under key, replacing any existing value.
	Set(key, value string) error

	// Delete removes the credential under key. Deleting a missing key is not
	// an error.
	Delete(key string) error
}

type keyringStore struct{}

// NewKeyring returns a Store backed by the OS keychain.
func NewKeyring() Store {
	return &keyringStore{}
}

func (k *keyringStore) Get(key string) (string, error) {
	value, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to read credential '%s': %w", key, err)
	}
	return value, nil
}

func (k *keyringStore) Set(key, value string) error {
	if err := keyring.Set(service, key, value); err != nil {
		return fmt.Errorf("failed to store credential '%s': %w", key, err)
	}
	return nil
}

func (k *keyringStore) Delete(key string) error {
	if err := keyring.Delete(service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete credential '%s': %w", key, err)
	}
	return nil
}

// memoryStore is an in-process Store used by tests and by environments with no
// keychain service available.
type memoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an in-memory Store.
func NewMemory() Store {
	return &memoryStore{values: make(map[string]string)}
}

func (m *memoryStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return value, nil
}

func (m *memoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
