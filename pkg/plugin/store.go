package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrManifestNotFound is returned when no descriptor on disk matches a
// dependency.
var ErrManifestNotFound = errors.New("plugin manifest not found")

// Store loads and caches plugin manifests from a plugin root directory.
type Store struct {
	dir       string
	mu        sync.Mutex
	manifests map[string]*Manifest // keyed by "name/version"
}

// NewStore creates a manifest store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:       dir,
		manifests: make(map[string]*Manifest),
	}
}

// Dir returns the plugin root directory the store scans.
func (s *Store) Dir() string {
	return s.dir
}

// Resolve returns the manifest matching dep, consulting the cache first
// and scanning the plugin root directory on a miss. An unversioned
// dependency resolves to the highest cached semantic version, or to the
// first on-disk match when nothing is cached.
func (s *Store) Resolve(dep Dependency) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m := s.lookupLocked(dep); m != nil {
		return m, nil
	}
	return s.scanLocked(dep)
}

// Lookup returns the cached manifest matching dep without touching the
// disk, or nil when nothing matches.
func (s *Store) Lookup(dep Dependency) *Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(dep)
}

func (s *Store) lookupLocked(dep Dependency) *Manifest {
	if dep.Version != "" {
		return s.manifests[dep.Name+"/"+dep.Version]
	}

	var best *Manifest
	for _, m := range s.manifests {
		if m.Name != dep.Name {
			continue
		}
		if best == nil || newerVersion(m, best) {
			best = m
		}
	}
	return best
}

// newerVersion reports whether a's semantic version orders after b's.
// Both manifests passed validation, so the versions parse.
func newerVersion(a, b *Manifest) bool {
	av, err := a.Semver()
	if err != nil {
		return false
	}
	bv, err := b.Semver()
	if err != nil {
		return true
	}
	return av.GreaterThan(bv)
}

// List scans the plugin root and returns every valid manifest found,
// sorted by name with the newest version first. Invalid descriptors are logged and
// skipped. The cache is refreshed with everything found.
func (s *Store) List() ([]*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read plugin directory %s: %w", s.dir, err)
	}

	var manifests []*Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginDir := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(pluginDir, ManifestFileName)) //nolint:gosec // path constructed from ReadDir entries
		if err != nil {
			continue
		}

		m, err := ParseManifest(data)
		if err != nil {
			slog.Warn("skipping plugin with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}
		m.Dir = pluginDir

		s.manifests[m.Key()] = m
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool {
		if manifests[i].Name != manifests[j].Name {
			return manifests[i].Name < manifests[j].Name
		}
		return newerVersion(manifests[i], manifests[j])
	})
	return manifests, nil
}

// scanLocked walks the immediate subdirectories of the plugin root,
// parsing each descriptor. The first manifest matching dep is adopted,
// cached, and returned. Invalid descriptors are logged and skipped.
func (s *Store) scanLocked(dep Dependency) (*Manifest, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plugin directory %s does not exist: %w", s.dir, ErrManifestNotFound)
		}
		return nil, fmt.Errorf("failed to read plugin directory %s: %w", s.dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginDir := filepath.Join(s.dir, entry.Name())
		manifestPath := filepath.Join(pluginDir, ManifestFileName)

		data, err := os.ReadFile(manifestPath) //nolint:gosec // manifestPath is constructed from ReadDir entries
		if err != nil {
			continue // no descriptor in this directory
		}

		m, err := ParseManifest(data)
		if err != nil {
			slog.Warn("skipping plugin with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}
		m.Dir = pluginDir

		if !m.Matches(dep) {
			continue
		}

		s.manifests[m.Key()] = m
		slog.Debug("adopted plugin manifest",
			"plugin", m.Key(),
			"dir", pluginDir)
		return m, nil
	}

	return nil, fmt.Errorf("plugin %s was not found in %s: %w", dep, s.dir, ErrManifestNotFound)
}
