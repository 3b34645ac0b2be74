package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fountainhq/fountain-agent/internal/platform"
)

func TestDefaultCoversAllPlatforms(t *testing.T) {
	t.Parallel()

	s := Default()
	require.Len(t, s.Platforms, len(platform.All()))

	assert.True(t, s.Enabled(platform.AppleBooks))
	assert.False(t, s.Enabled(platform.WechatRead))
	assert.Equal(t, 6*time.Hour, s.Interval(platform.AppleBooks))
	assert.Equal(t, 12*time.Hour, s.Interval(platform.Kindle))
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	s, err := Load(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	s := Default()
	s.ServerURL = "https://fountain.example.com"
	s.Platforms[platform.WechatRead] = PlatformSettings{Enabled: true, IntervalHours: 3}
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://fountain.example.com", loaded.ServerURL)
	assert.True(t, loaded.Enabled(platform.WechatRead))
	assert.Equal(t, 3*time.Hour, loaded.Interval(platform.WechatRead))
}

func TestLoadFillsInNewPlatforms(t *testing.T) {
	t.Parallel()

	// A settings file from an older agent that only knows one platform.
	path := filepath.Join(t.TempDir(), "settings.yaml")
	doc := "server_url: https://fountain.example.com\nplatforms:\n  apple_books:\n    enabled: true\n    interval_hours: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s.Platforms, len(platform.All()))
	assert.Equal(t, 2*time.Hour, s.Interval(platform.AppleBooks))
	assert.False(t, s.Enabled(platform.Bilibili))
}

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown platform",
			doc:  "platforms:\n  goodreads:\n    enabled: true\n",
		},
		{
			name: "negative interval",
			doc:  "platforms:\n  apple_books:\n    interval_hours: -1\n",
		},
		{
			name: "not yaml",
			doc:  "{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "settings.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0600))

			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestNotificationsDefaultOn(t *testing.T) {
	t.Parallel()

	assert.True(t, Default().NotificationsEnabled())

	// A document that predates the toggle reads as enabled, not false.
	path := filepath.Join(t.TempDir(), "settings.yaml")
	doc := "server_url: https://fountain.example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.True(t, s.NotificationsEnabled())
}

func TestNotificationsToggleRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	s := Default()
	off := false
	s.Notifications = &off
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.False(t, loaded.NotificationsEnabled())
}

func TestIntervalFallsBackToDefault(t *testing.T) {
	t.Parallel()

	s := Default()
	s.Platforms[platform.AppleBooks] = PlatformSettings{Enabled: true, IntervalHours: 0}
	assert.Equal(t, 6*time.Hour, s.Interval(platform.AppleBooks))
}

func TestManagerUpdatePersistsAndPublishes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	manager, err := NewManager(path)
	require.NoError(t, err)

	updates := manager.Subscribe()

	s := manager.Current()
	s.ServerURL = "https://fountain.example.com"
	require.NoError(t, manager.Update(s))

	select {
	case got := <-updates:
		assert.Equal(t, "https://fountain.example.com", got.ServerURL)
	case <-time.After(time.Second):
		t.Fatal("no settings update published")
	}

	// Durable: a fresh manager sees the update.
	reloaded, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, "https://fountain.example.com", reloaded.Current().ServerURL)
}

func TestManagerUpdateRejectsInvalidSettings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	manager, err := NewManager(path)
	require.NoError(t, err)

	bad := manager.Current()
	bad.Platforms["goodreads"] = PlatformSettings{Enabled: true}
	require.Error(t, manager.Update(bad))

	// The live snapshot is untouched.
	_, ok := manager.Current().Platforms["goodreads"]
	assert.False(t, ok)
}

func TestManagerCurrentReturnsCopy(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	s := manager.Current()
	s.Platforms[platform.AppleBooks] = PlatformSettings{Enabled: false, IntervalHours: 99}

	assert.True(t, manager.Current().Enabled(platform.AppleBooks))
}
