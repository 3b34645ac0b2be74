package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = "agent.lock"

// AcquireLock takes an exclusive advisory lock on the state directory. Only
// the holder may open a Store over it: the serve loop and a one-off sync
// command both mutate state.json and the manifests, and Load's startup
// recovery would wipe another process's in-flight Syncing record. The caller
// unlocks when done; the lock also dies with the process.
func AcquireLock(baseDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	lock := flock.New(filepath.Join(baseDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock state directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf(
			"state directory '%s' is in use by another agent process; stop it or use its control API",
			baseDir,
		)
	}
	return lock, nil
}
