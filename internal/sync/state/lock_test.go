package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fountainhq/fountain-agent/internal/platform"
)

func TestAcquireLockIsExclusive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	require.NoError(t, err)

	_, err = AcquireLock(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in use by another agent process")

	require.NoError(t, lock.Unlock())

	again, err := AcquireLock(dir)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}

func TestLockedDirectoryBlocksSecondStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	// First agent: lock, load, start a run.
	lock, err := AcquireLock(dir)
	require.NoError(t, err)
	defer func() { _ = lock.Unlock() }()

	store := NewStore(NewFilePersistence(dir))
	require.NoError(t, store.Load(ctx))
	require.NoError(t, store.BeginSync(ctx, platform.AppleBooks))

	// A second agent over the same directory must stop at the lock: if it
	// loaded anyway, recovery would reset the in-flight record to Idle and
	// both processes could hold a Syncing transition for the platform.
	_, err = AcquireLock(dir)
	require.Error(t, err)

	rec, err := store.Get(ctx, platform.AppleBooks)
	require.NoError(t, err)
	assert.Equal(t, StatusSyncing, rec.Status)

	doc, err := NewFilePersistence(dir).LoadDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSyncing, doc.Records[platform.AppleBooks].Status)
}
