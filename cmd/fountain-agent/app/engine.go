package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
	"github.com/spf13/viper"

	"github.com/fountainhq/fountain-agent/internal/backend"
	"github.com/fountainhq/fountain-agent/internal/config"
	"github.com/fountainhq/fountain-agent/internal/credentials"
	"github.com/fountainhq/fountain-agent/internal/sources"
	"github.com/fountainhq/fountain-agent/internal/sync"
	"github.com/fountainhq/fountain-agent/internal/sync/state"
)

// engine bundles the wired-up collaborators shared by the serve and sync
// commands.
type engine struct {
	manager *config.Manager
	store   state.Store
	session *sync.Session
	logger  *slog.Logger
	lock    *flock.Flock
}

// close releases the state directory lock.
func (e *engine) close() {
	if err := e.lock.Unlock(); err != nil {
		e.logger.Error("Failed to release state directory lock", "error", err)
	}
}

func settingsPath() string {
	if path := viper.GetString("settings"); path != "" {
		return path
	}
	return config.DefaultPath()
}

// buildEngine loads settings, locks the state directory, opens the state
// store (with startup recovery) and wires the sync session. The backend URL
// and API key are read once; a changed server address takes effect on the
// next start. Callers release the lock through close.
func buildEngine(ctx context.Context) (*engine, error) {
	logger := slog.Default()

	manager, err := config.NewManager(settingsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	settings := manager.Current()

	dataDir := settings.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	// The lock comes before Load: recovery must never run while another
	// agent process may be mid-sync over the same directory.
	lock, err := state.AcquireLock(dataDir)
	if err != nil {
		return nil, err
	}

	store := state.NewStore(state.NewFilePersistence(dataDir))
	if err := store.Load(ctx); err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	creds := credentials.NewKeyring()
	apiKey, err := creds.Get(credentials.KeyBackendAPIKey)
	if err != nil {
		if !errors.Is(err, credentials.ErrNotFound) {
			_ = lock.Unlock()
			return nil, err
		}
		apiKey = ""
	}

	client := backend.NewClient(settings.ServerURL, apiKey)
	deps := sources.Deps{Credentials: creds, Logger: logger}
	session := sync.NewSession(store, client, sources.Default(), deps, logger)

	return &engine{
		manager: manager,
		store:   store,
		session: session,
		logger:  logger,
		lock:    lock,
	}, nil
}
