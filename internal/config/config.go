// Package config holds the agent settings document: backend address plus
// per-platform enablement and sync intervals. Settings live in a YAML file
// under the user config dir and are watched for live updates.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/fountainhq/fountain-agent/internal/platform"
)

const appDirName = "fountain-agent"

// PlatformSettings controls one platform's scheduling.
type PlatformSettings struct {
	Enabled       bool `yaml:"enabled" json:"enabled"`
	IntervalHours int  `yaml:"interval_hours" json:"interval_hours"`
}

// Settings is the full agent settings document.
type Settings struct {
	// ServerURL is the sync backend base URL. Empty means the agent is not
	// yet configured and no sync runs.
	ServerURL string `yaml:"server_url" json:"server_url"`

	// DataDir overrides where state and manifests are kept. Empty uses the
	// XDG data dir.
	DataDir string `yaml:"data_dir,omitempty" json:"data_dir,omitempty"`

	// Notifications toggles outcome notifications. A pointer so a document
	// that omits the field keeps the default (on) instead of reading false.
	Notifications *bool `yaml:"notifications_enabled,omitempty" json:"notifications_enabled,omitempty"`

	Platforms map[platform.Platform]PlatformSettings `yaml:"platforms" json:"platforms"`
}

// Default returns settings seeded from each platform's compiled-in traits.
func Default() *Settings {
	enabled := true
	s := &Settings{
		Notifications: &enabled,
		Platforms:     make(map[platform.Platform]PlatformSettings, len(platform.All())),
	}
	for _, p := range platform.All() {
		traits := p.Traits()
		s.Platforms[p] = PlatformSettings{
			Enabled:       traits.DefaultEnabled,
			IntervalHours: traits.DefaultIntervalHours,
		}
	}
	return s
}

// Interval returns the configured sync interval for a platform, falling back
// to the platform default when unset or invalid.
func (s *Settings) Interval(p platform.Platform) time.Duration {
	ps, ok := s.Platforms[p]
	if !ok || ps.IntervalHours <= 0 {
		return time.Duration(p.Traits().DefaultIntervalHours) * time.Hour
	}
	return time.Duration(ps.IntervalHours) * time.Hour
}

// Enabled reports whether a platform is enabled. Platforms missing from the
// document use their compiled-in default.
func (s *Settings) Enabled(p platform.Platform) bool {
	ps, ok := s.Platforms[p]
	if !ok {
		return p.Traits().DefaultEnabled
	}
	return ps.Enabled
}

// NotificationsEnabled reports whether outcome notifications should be shown.
func (s *Settings) NotificationsEnabled() bool {
	return s.Notifications == nil || *s.Notifications
}

// Validate rejects documents that reference unknown platforms or nonsensical
// intervals.
func (s *Settings) Validate() error {
	for p, ps := range s.Platforms {
		if !p.Valid() {
			return fmt.Errorf("unknown platform '%s' in settings", p)
		}
		if ps.IntervalHours < 0 {
			return fmt.Errorf("negative sync interval for platform '%s'", p)
		}
	}
	return nil
}

// clone returns a deep copy so callers can never mutate shared state.
func (s *Settings) clone() *Settings {
	out := &Settings{
		ServerURL: s.ServerURL,
		DataDir:   s.DataDir,
		Platforms: make(map[platform.Platform]PlatformSettings, len(s.Platforms)),
	}
	if s.Notifications != nil {
		v := *s.Notifications
		out.Notifications = &v
	}
	for p, ps := range s.Platforms {
		out.Platforms[p] = ps
	}
	return out
}

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appDirName, "settings.yaml")
}

// DefaultDataDir returns where state and manifests live unless overridden.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, appDirName)
}

// DefaultLogPath returns the rotating log file location.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, appDirName, "agent.log")
}

// Load reads settings from path. A missing file yields defaults; platforms
// absent from an existing file are filled in with their defaults so new
// platforms appear after an upgrade.
func Load(path string) (*Settings, error) {
	// #nosec G304 -- path comes from the agent's own config location
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s := &Settings{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if s.Platforms == nil {
		s.Platforms = make(map[platform.Platform]PlatformSettings)
	}
	for _, p := range platform.All() {
		if _, ok := s.Platforms[p]; !ok {
			traits := p.Traits()
			s.Platforms[p] = PlatformSettings{
				Enabled:       traits.DefaultEnabled,
				IntervalHours: traits.DefaultIntervalHours,
			}
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes settings to path atomically via a temp file and rename.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
