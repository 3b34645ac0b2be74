package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fountainhq/fountain-agent/internal/platform"
)

const (
	// stateFileName is the name of the per-agent state document.
	stateFileName = "state.json"

	// manifestDirName holds one fingerprint manifest file per platform.
	manifestDirName = "manifests"
)

// Persistence defines durable storage for the state document and the
// per-platform fingerprint manifests.
type Persistence interface {
	// SaveDocument writes the full state document.
	SaveDocument(ctx context.Context, doc *Document) error

	// LoadDocument reads the state document. Returns an empty document if
	// none exists yet (first run).
	LoadDocument(ctx context.Context) (*Document, error)

	// SaveManifest writes the fingerprint manifest for a platform.
	SaveManifest(ctx context.Context, p platform.Platform, m Manifest) error

	// LoadManifest reads the fingerprint manifest for a platform. Returns an
	// empty manifest if none exists yet.
	LoadManifest(ctx context.Context, p platform.Platform) (Manifest, error)
}

// filePersistence implements Persistence on the local filesystem.
type filePersistence struct {
	baseDir string
}

// NewFilePersistence creates file-backed persistence rooted at baseDir.
func NewFilePersistence(baseDir string) Persistence {
	return &filePersistence{baseDir: baseDir}
}

func (f *filePersistence) SaveDocument(_ context.Context, doc *Document) error {
	path := filepath.Join(f.baseDir, stateFileName)
	if err := writeJSONAtomic(path, doc); err != nil {
		return fmt.Errorf("failed to write state document: %w", err)
	}
	return nil
}

func (f *filePersistence) LoadDocument(_ context.Context) (*Document, error) {
	path := filepath.Join(f.baseDir, stateFileName)

	// #nosec G304 -- path is constructed from the configured state directory
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{Records: make(map[platform.Platform]Record)}, nil
		}
		return nil, fmt.Errorf("failed to read state document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state document: %w", err)
	}
	if doc.Records == nil {
		doc.Records = make(map[platform.Platform]Record)
	}
	return &doc, nil
}

func (f *filePersistence) SaveManifest(_ context.Context, p platform.Platform, m Manifest) error {
	path := filepath.Join(f.baseDir, manifestDirName, string(p)+".json")
	if err := writeJSONAtomic(path, m); err != nil {
		return fmt.Errorf("failed to write manifest for platform '%s': %w", p, err)
	}
	return nil
}

func (f *filePersistence) LoadManifest(_ context.Context, p platform.Platform) (Manifest, error) {
	path := filepath.Join(f.baseDir, manifestDirName, string(p)+".json")

	// #nosec G304 -- path is constructed from the configured state directory
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, nil
		}
		return nil, fmt.Errorf("failed to read manifest for platform '%s': %w", p, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest for platform '%s': %w", p, err)
	}
	if m == nil {
		m = Manifest{}
	}
	return m, nil
}

// writeJSONAtomic marshals v and writes it via a temporary file plus rename so
// a crash mid-write never leaves a truncated document behind.
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return err
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	return nil
}
