package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// updateBuffer bounds each subscriber's pending-update queue; only the newest
// snapshot matters, so overflow drops the older one.
const updateBuffer = 1

// Manager owns the live settings snapshot. Updates arrive either through the
// control API (Update) or by an external edit of the settings file (Watch);
// both paths persist-then-publish so subscribers always see durable state.
type Manager struct {
	path string

	mu      sync.RWMutex
	current *Settings

	subMu       sync.Mutex
	subscribers []chan *Settings
}

// NewManager loads settings from path and returns a manager over them.
func NewManager(path string) (*Manager, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, current: s}, nil
}

// Current returns a copy of the live settings.
func (m *Manager) Current() *Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.clone()
}

// Update validates, persists and publishes a new settings document.
func (m *Manager) Update(s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := s.Save(m.path); err != nil {
		return err
	}

	m.mu.Lock()
	m.current = s.clone()
	m.mu.Unlock()

	m.publish()
	return nil
}

// Subscribe returns a channel that receives a settings snapshot after every
// update. The newest snapshot wins if the subscriber lags.
func (m *Manager) Subscribe() <-chan *Settings {
	ch := make(chan *Settings, updateBuffer)
	m.subMu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.subMu.Unlock()
	return ch
}

func (m *Manager) publish() {
	snapshot := m.Current()
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale pending snapshot and queue the new one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Watch reloads and publishes the settings whenever the file changes on disk,
// until ctx is cancelled. Editors and the atomic Save both replace the file,
// so creates and renames in the parent directory count as changes.
func (m *Manager) Watch(ctx context.Context, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("failed to watch settings directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != m.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s, err := Load(m.path)
			if err != nil {
				logger.Warn("Ignoring invalid settings file change", "error", err)
				continue
			}
			m.mu.Lock()
			m.current = s
			m.mu.Unlock()
			m.publish()
			logger.Info("Settings reloaded from disk")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Settings watcher error", "error", err)
		}
	}
}
