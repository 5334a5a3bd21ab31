package plugin_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caphost/caphost/pkg/plugin"
)

// Helper functions for creating test fixtures with secure permissions.
func mkdirAll(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o750))
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

func writePlugin(t *testing.T, root, dir, name, version string) {
	t.Helper()
	pluginDir := filepath.Join(root, dir)
	mkdirAll(t, pluginDir)
	manifest := fmt.Sprintf(`{
  "name": %q,
  "version": %q,
  "executableType": "exec",
  "entryPoint": "run"
}`, name, version)
	writeFile(t, filepath.Join(pluginDir, plugin.ManifestFileName), []byte(manifest))
}

func TestStore_Resolve_ByName(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "csv-1.0.0", "csv", "1.0.0")

	store := plugin.NewStore(root)
	m, err := store.Resolve(plugin.Dependency{Name: "csv"})
	require.NoError(t, err)

	assert.Equal(t, "csv", m.Name)
	assert.Equal(t, "1.0.0", m.Version)
	assert.Equal(t, filepath.Join(root, "csv-1.0.0"), m.Dir)
}

func TestStore_Resolve_ByNameAndVersion(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "csv-1.0.0", "csv", "1.0.0")
	writePlugin(t, root, "csv-2.0.0", "csv", "2.0.0")

	store := plugin.NewStore(root)
	m, err := store.Resolve(plugin.Dependency{Name: "csv", Version: "2.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", m.Version)
}

func TestStore_Resolve_NotFound(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "csv", "csv", "1.0.0")

	store := plugin.NewStore(root)
	_, err := store.Resolve(plugin.Dependency{Name: "xml"})
	assert.ErrorIs(t, err, plugin.ErrManifestNotFound)
}

func TestStore_Resolve_MissingDirectory(t *testing.T) {
	store := plugin.NewStore(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := store.Resolve(plugin.Dependency{Name: "csv"})
	assert.ErrorIs(t, err, plugin.ErrManifestNotFound)
}

func TestStore_Resolve_WrongVersion(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "csv", "csv", "1.0.0")

	store := plugin.NewStore(root)
	_, err := store.Resolve(plugin.Dependency{Name: "csv", Version: "3.0.0"})
	assert.ErrorIs(t, err, plugin.ErrManifestNotFound)
}

func TestStore_Resolve_SkipsInvalidManifests(t *testing.T) {
	root := t.TempDir()

	brokenDir := filepath.Join(root, "broken")
	mkdirAll(t, brokenDir)
	writeFile(t, filepath.Join(brokenDir, plugin.ManifestFileName), []byte(`{"name": [`))

	writePlugin(t, root, "zz-valid", "csv", "1.0.0")

	store := plugin.NewStore(root)
	m, err := store.Resolve(plugin.Dependency{Name: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "csv", m.Name)
}

func TestStore_Resolve_SkipsDirectoriesWithoutManifest(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "not-a-plugin"))
	writePlugin(t, root, "csv", "csv", "1.0.0")

	store := plugin.NewStore(root)
	m, err := store.Resolve(plugin.Dependency{Name: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "csv", m.Name)
}

func TestStore_Resolve_CachedHighestVersion(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "csv-a", "csv", "1.0.0")
	writePlugin(t, root, "csv-b", "csv", "1.10.0")
	writePlugin(t, root, "csv-c", "csv", "1.2.0")

	store := plugin.NewStore(root)

	// Warm the cache with every version.
	for _, v := range []string{"1.0.0", "1.10.0", "1.2.0"} {
		_, err := store.Resolve(plugin.Dependency{Name: "csv", Version: v})
		require.NoError(t, err)
	}

	// Unversioned resolution picks the semantic maximum, not the
	// lexicographic one.
	m, err := store.Resolve(plugin.Dependency{Name: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "1.10.0", m.Version)
}

func TestStore_Lookup_CacheOnly(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "csv", "csv", "1.0.0")

	store := plugin.NewStore(root)

	assert.Nil(t, store.Lookup(plugin.Dependency{Name: "csv"}), "Lookup must not scan the disk")

	_, err := store.Resolve(plugin.Dependency{Name: "csv"})
	require.NoError(t, err)

	m := store.Lookup(plugin.Dependency{Name: "csv"})
	require.NotNil(t, m)
	assert.Equal(t, "1.0.0", m.Version)
}

func TestStore_Resolve_CachedManifestReturned(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "csv", "csv", "1.0.0")

	store := plugin.NewStore(root)
	first, err := store.Resolve(plugin.Dependency{Name: "csv"})
	require.NoError(t, err)

	// Remove the descriptor; the cached manifest must still resolve.
	require.NoError(t, os.RemoveAll(filepath.Join(root, "csv")))

	second, err := store.Resolve(plugin.Dependency{Name: "csv", Version: "1.0.0"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestStore_List(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "csv-1.2.0", "csv", "1.2.0")
	writePlugin(t, root, "csv-1.10.0", "csv", "1.10.0")
	writePlugin(t, root, "avro-0.3.0", "avro", "0.3.0")
	writeFile(t, filepath.Join(root, "stray-file"), []byte("not a plugin"))
	mkdirAll(t, filepath.Join(root, "broken"))
	writeFile(t, filepath.Join(root, "broken", plugin.ManifestFileName), []byte("{"))

	store := plugin.NewStore(root)
	manifests, err := store.List()
	require.NoError(t, err)

	keys := make([]string, len(manifests))
	for i, m := range manifests {
		keys[i] = m.Key()
	}
	assert.Equal(t, []string{"avro/0.3.0", "csv/1.10.0", "csv/1.2.0"}, keys)

	// Listing primes the cache.
	assert.NotNil(t, store.Lookup(plugin.Dependency{Name: "avro"}))
}

func TestStore_List_MissingDir(t *testing.T) {
	store := plugin.NewStore(filepath.Join(t.TempDir(), "absent"))
	manifests, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, manifests)
}
