package vectorstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"wikirag/internal/domain"
)

// ManifestFile is the name of the manifest inside an index directory.
const ManifestFile = "manifest.yaml"

const manifestVersion = 1

// Manifest describes how an index directory was built.
type Manifest struct {
	Version        int       `yaml:"version"`
	Backend        string    `yaml:"backend"`
	EmbeddingModel string    `yaml:"embedding_model"`
	Dimension      int       `yaml:"dimension"`
	Source         string    `yaml:"source"`
	ChunkerType    string    `yaml:"chunker_type"`
	ChunkSize      int       `yaml:"chunk_size,omitempty"`
	ChunkOverlap   int       `yaml:"chunk_overlap,omitempty"`
	Chunks         int       `yaml:"chunks"`
	CreatedAt      time.Time `yaml:"created_at"`
}

// WriteManifest writes m into dir, creating dir when needed.
func WriteManifest(dir string, m Manifest) error {
	if m.Version == 0 {
		m.Version = manifestVersion
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	tmp := filepath.Join(dir, ManifestFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, ManifestFile))
}

// ReadManifest loads the manifest from dir. A missing or unreadable manifest
// is reported as domain.ErrIndexNotFound.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return m, fmt.Errorf("no manifest in %s: %w", dir, domain.ErrIndexNotFound)
	}
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("corrupt manifest in %s (%v): %w", dir, err, domain.ErrIndexNotFound)
	}
	if m.Backend == "" || m.EmbeddingModel == "" || m.Dimension <= 0 {
		return m, fmt.Errorf("incomplete manifest in %s: %w", dir, domain.ErrIndexNotFound)
	}
	return m, nil
}
