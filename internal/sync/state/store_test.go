package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fountainhq/fountain-agent/internal/platform"
)

func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	return NewStore(NewFilePersistence(dir)), dir
}

func TestLoadSeedsAllPlatformsIdle(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	require.NoError(t, store.Load(context.Background()))

	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, len(platform.All()))
	for p, rec := range records {
		assert.Equal(t, StatusIdle, rec.Status, "platform %s", p)
	}
}

func TestLoadRecoversOnlySyncing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	persistence := NewFilePersistence(dir)

	now := time.Now().UTC()
	doc := &Document{Records: map[platform.Platform]Record{
		platform.AppleBooks: {Status: StatusSyncing},
		platform.WechatRead: {Status: StatusSuccess, LastSyncAt: &now, ItemCount: 7},
		platform.Kindle:     {Status: StatusNeedsAuth, LastError: "cookie expired"},
		platform.Douban:     {Status: StatusError, LastError: "boom"},
	}}
	require.NoError(t, persistence.SaveDocument(ctx, doc))

	store := NewStore(persistence)
	require.NoError(t, store.Load(ctx))

	rec, err := store.Get(ctx, platform.AppleBooks)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, rec.Status)

	rec, err = store.Get(ctx, platform.WechatRead)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, 7, rec.ItemCount)

	rec, err = store.Get(ctx, platform.Kindle)
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsAuth, rec.Status)
	assert.Equal(t, "cookie expired", rec.LastError)

	rec, err = store.Get(ctx, platform.Douban)
	require.NoError(t, err)
	assert.Equal(t, StatusError, rec.Status)

	// Recovery is persisted, so a second load sees Idle directly.
	reloaded, err := persistence.LoadDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, reloaded.Records[platform.AppleBooks].Status)
}

func TestBeginSyncRejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)
	require.NoError(t, store.Load(ctx))

	require.NoError(t, store.BeginSync(ctx, platform.AppleBooks))
	err := store.BeginSync(ctx, platform.AppleBooks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already syncing")
}

func TestFinishSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		final     Status
		itemCount int
		errMsg    string
		wantErr   bool
	}{
		{name: "success", final: StatusSuccess, itemCount: 5},
		{name: "error", final: StatusError, errMsg: "boom"},
		{name: "needs auth", final: StatusNeedsAuth, errMsg: "cookie expired"},
		{name: "idle is not a final status", final: StatusIdle, wantErr: true},
		{name: "syncing is not a final status", final: StatusSyncing, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store, _ := newTestStore(t)
			require.NoError(t, store.Load(ctx))
			require.NoError(t, store.BeginSync(ctx, platform.AppleBooks))

			err := store.FinishSync(ctx, platform.AppleBooks, tt.final, tt.itemCount, tt.errMsg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			rec, err := store.Get(ctx, platform.AppleBooks)
			require.NoError(t, err)
			assert.Equal(t, tt.final, rec.Status)
			if tt.final == StatusSuccess {
				require.NotNil(t, rec.LastSyncAt)
				assert.Equal(t, tt.itemCount, rec.ItemCount)
				assert.Empty(t, rec.LastError)
			} else {
				assert.Equal(t, tt.errMsg, rec.LastError)
			}
		})
	}
}

func TestFinishSyncRequiresSyncing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)
	require.NoError(t, store.Load(ctx))

	err := store.FinishSync(ctx, platform.AppleBooks, StatusSuccess, 0, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not syncing")
}

func TestSuccessClearsPreviousError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)
	require.NoError(t, store.Load(ctx))

	require.NoError(t, store.BeginSync(ctx, platform.Zhihu))
	require.NoError(t, store.FinishSync(ctx, platform.Zhihu, StatusError, 0, "boom"))

	require.NoError(t, store.BeginSync(ctx, platform.Zhihu))
	require.NoError(t, store.FinishSync(ctx, platform.Zhihu, StatusSuccess, 3, ""))

	rec, err := store.Get(ctx, platform.Zhihu)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Empty(t, rec.LastError)
	assert.Equal(t, 3, rec.ItemCount)
}

func TestManifestRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)
	require.NoError(t, store.Load(ctx))

	// Missing manifest reads as empty.
	assert.Empty(t, store.Manifest(ctx, platform.AppleBooks))

	m := Manifest{
		"book-1": {Count: 3, Progress: 0.4},
		"book-2": {Count: 0, Progress: 1},
	}
	require.NoError(t, store.SaveManifest(ctx, platform.AppleBooks, m))
	assert.Equal(t, m, store.Manifest(ctx, platform.AppleBooks))

	// Manifests are per platform.
	assert.Empty(t, store.Manifest(ctx, platform.Kindle))
}

func TestCorruptManifestTreatedAsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, dir := newTestStore(t)
	require.NoError(t, store.Load(ctx))

	path := filepath.Join(dir, manifestDirName, string(platform.AppleBooks)+".json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	assert.Empty(t, store.Manifest(ctx, platform.AppleBooks))
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)
	require.NoError(t, store.Load(ctx))

	events := store.Subscribe()

	require.NoError(t, store.BeginSync(ctx, platform.AppleBooks))
	require.NoError(t, store.FinishSync(ctx, platform.AppleBooks, StatusSuccess, 2, ""))

	ev := <-events
	assert.Equal(t, platform.AppleBooks, ev.Platform)
	assert.Equal(t, StatusSyncing, ev.Record.Status)

	ev = <-events
	assert.Equal(t, StatusSuccess, ev.Record.Status)
	assert.Equal(t, 2, ev.Record.ItemCount)

	store.Unsubscribe(events)
	_, open := <-events
	assert.False(t, open)
}
