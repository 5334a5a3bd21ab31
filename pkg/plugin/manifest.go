// Package plugin defines the on-disk plugin descriptor model and the
// manifest store shared by the catalogue and the driver.
package plugin

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ExecutableType identifies how a plugin is executed.
type ExecutableType string

// Executable types known to the descriptor format. Only exec is
// supported by the driver; other values parse but fail at load time.
const (
	ExecutableExec ExecutableType = "exec"
)

// ManifestFileName is the descriptor file expected in each plugin directory.
const ManifestFileName = "caphost-plugin.json"

// Dependency identifies a desired plugin. An empty Version means
// "highest available version".
type Dependency struct {
	Name    string
	Version string
}

// String returns "name" or "name/version".
func (d Dependency) String() string {
	if d.Version == "" {
		return d.Name
	}
	return d.Name + "/" + d.Version
}

// ParseDependency parses "name" or "name/version" into a Dependency.
func ParseDependency(s string) (Dependency, error) {
	name, version, _ := strings.Cut(s, "/")
	if name == "" {
		return Dependency{}, fmt.Errorf("dependency %q has no plugin name", s)
	}
	if strings.Contains(version, "/") {
		return Dependency{}, fmt.Errorf("dependency %q is not of the form name[/version]", s)
	}
	return Dependency{Name: name, Version: version}, nil
}

// Manifest represents a caphost-plugin.json descriptor. Immutable once
// loaded.
type Manifest struct {
	Name           string         `json:"name"`
	Version        string         `json:"version"`
	ExecutableType ExecutableType `json:"executableType"`
	EntryPoint     string         `json:"entryPoint"`
	// EntryPoints maps platform identifiers (e.g. "linux", "windows",
	// "darwin-arm64") to platform-specific entry points.
	EntryPoints map[string]string `json:"entryPoints,omitempty"`

	// Dir is the plugin directory the descriptor was read from.
	// Set by the store, never serialized.
	Dir string `json:"-"`

	// Extra holds free-form extension fields preserved but not
	// interpreted by this layer.
	Extra map[string]json.RawMessage `json:"-"`
}

// Key returns the registry key "name/version".
func (m *Manifest) Key() string {
	return m.Name + "/" + m.Version
}

// Semver returns the parsed semantic version.
func (m *Manifest) Semver() (*semver.Version, error) {
	v, err := semver.StrictNewVersion(m.Version)
	if err != nil {
		return nil, fmt.Errorf("version %q is not valid semver: %w", m.Version, err)
	}
	return v, nil
}

// Matches reports whether the manifest satisfies the dependency.
func (m *Manifest) Matches(dep Dependency) bool {
	if m.Name != dep.Name {
		return false
	}
	return dep.Version == "" || dep.Version == m.Version
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: must start with lowercase letter,
// followed by lowercase letters, digits, or hyphens.
// Cannot end with a hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// knownFields are the descriptor fields interpreted by this layer;
// everything else is preserved in Extra.
var knownFields = []string{"name", "version", "executableType", "entryPoint", "entryPoints"}

// UnmarshalJSON decodes the descriptor and stashes unrecognized fields
// in Extra.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	type alias Manifest
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, field := range knownFields {
		delete(raw, field)
	}
	if len(raw) > 0 {
		a.Extra = raw
	}

	*m = Manifest(a)
	return nil
}

// ParseManifest parses and validates a caphost-plugin.json descriptor.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not valid semver: %w", m.Version, err)
	}

	if m.ExecutableType == "" {
		return fmt.Errorf("executableType is required")
	}

	if m.EntryPoint == "" {
		return fmt.Errorf("entryPoint is required")
	}

	return nil
}
