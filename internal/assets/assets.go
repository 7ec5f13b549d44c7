// Package assets stores uploaded source documents on the serving filesystem.
//
// Documents are written under a content-hash-derived name, so byte-identical
// uploads land on the same asset and re-ingestion never duplicates files. The
// serving path recorded in page records points back at these assets, which is
// what orphan cleanup joins against.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidConfig indicates invalid configuration
var ErrInvalidConfig = errors.New("invalid configuration")

// Asset describes one stored document.
type Asset struct {
	// Name is the stored file name: "<content-hash><ext>".
	Name string

	// ServePath is the stable web path the asset is exposed at.
	ServePath string
}

// Config holds asset store configuration.
type Config struct {
	// Dir is the local directory assets are written to.
	Dir string

	// ServePrefix is the web path prefix assets are served under.
	ServePrefix string
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("%w: dir required", ErrInvalidConfig)
	}
	if c.ServePrefix == "" {
		return fmt.Errorf("%w: serve prefix required", ErrInvalidConfig)
	}
	return nil
}

// Store is a local-filesystem asset store.
type Store struct {
	config Config
}

// NewStore creates the asset directory if needed and returns the store.
func NewStore(config Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating asset dir: %w", err)
	}
	return &Store{config: config}, nil
}

// Save writes the document under its content hash, keeping the original
// extension. Saving the same bytes twice overwrites the same file.
func (s *Store) Save(hash, originalName string, data []byte) (Asset, error) {
	name := hash + strings.ToLower(filepath.Ext(originalName))

	path := filepath.Join(s.config.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Asset{}, fmt.Errorf("saving asset %s: %w", name, err)
	}

	return Asset{
		Name:      name,
		ServePath: s.config.ServePrefix + "/" + name,
	}, nil
}

// Exists reports whether the asset behind a serving path is still on disk.
// Paths outside the store's serve prefix are treated as missing.
func (s *Store) Exists(servePath string) bool {
	name, ok := strings.CutPrefix(servePath, s.config.ServePrefix+"/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return false
	}

	info, err := os.Stat(filepath.Join(s.config.Dir, name))
	return err == nil && info.Mode().IsRegular()
}

// Remove deletes the asset behind a serving path. Missing files are not an
// error: cleanup is reconciling toward absence anyway.
func (s *Store) Remove(servePath string) error {
	name, ok := strings.CutPrefix(servePath, s.config.ServePrefix+"/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("path %q is not under the asset store", servePath)
	}

	err := os.Remove(filepath.Join(s.config.Dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing asset %s: %w", name, err)
	}
	return nil
}

// Dir returns the local asset directory, for static file serving.
func (s *Store) Dir() string {
	return s.config.Dir
}

// ServePrefix returns the web path prefix assets are served under.
func (s *Store) ServePrefix() string {
	return s.config.ServePrefix
}
