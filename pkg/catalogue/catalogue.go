// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

// Package catalogue maintains the process-wide registry of capability
// entries contributed by the core framework and by loaded plugins.
package catalogue

import (
	"fmt"
	"log/slog"
	"mime"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/caphost/caphost/pkg/plugin"
	"github.com/caphost/caphost/pkg/pluginrpc"
)

// EntryType identifies the kind of capability an entry provides.
type EntryType string

// The closed set of catalogue entry types.
const (
	ContentMatcher   EntryType = "content-matcher"
	ContentGenerator EntryType = "content-generator"
	MockServer       EntryType = "mock-server"
	Matcher          EntryType = "matcher"
	Interaction      EntryType = "interaction"
)

// ParseEntryType converts the wire representation of an entry type.
func ParseEntryType(s string) (EntryType, error) {
	switch t := EntryType(s); t {
	case ContentMatcher, ContentGenerator, MockServer, Matcher, Interaction:
		return t, nil
	default:
		return "", fmt.Errorf("%q is not a valid catalogue entry type", s)
	}
}

// ProviderType identifies who contributed an entry.
type ProviderType string

// Entry providers.
const (
	ProviderCore   ProviderType = "core"
	ProviderPlugin ProviderType = "plugin"
)

// ContentTypesKey is the Values key listing `;`-separated regular
// expression patterns for the content types an entry handles.
const ContentTypesKey = "content-types"

// Entry is one capability in the catalogue.
type Entry struct {
	// Type of capability.
	Type EntryType
	// Provider that contributed the entry.
	Provider ProviderType
	// Plugin is the owning manifest for plugin-provided entries, nil
	// for core entries.
	Plugin *plugin.Manifest
	// Key is the full namespaced catalogue key.
	Key string
	// Values carries free-form metadata.
	Values map[string]string
}

// Registry is the process-wide catalogue. A single exclusive lock
// guards registration and removal; lookups take a shared lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty catalogue registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// RegisterPlugin registers the entries a plugin announced during its
// handshake under keys namespaced by the plugin's name. Re-registering
// the same plugin replaces prior state for each key. Entries with an
// unknown type are logged and skipped.
func (r *Registry) RegisterPlugin(m *plugin.Manifest, entries []pluginrpc.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entries {
		entryType, err := ParseEntryType(e.Type)
		if err != nil {
			slog.Warn("skipping catalogue entry with unknown type",
				"plugin", m.Name,
				"type", e.Type,
				"key", e.Key)
			continue
		}

		key := fmt.Sprintf("plugin/%s/%s/%s", m.Name, entryType, e.Key)
		values := make(map[string]string, len(e.Values))
		for k, v := range e.Values {
			values[k] = v
		}
		r.entries[key] = Entry{
			Type:     entryType,
			Provider: ProviderPlugin,
			Plugin:   m,
			Key:      key,
			Values:   values,
		}
	}

	slog.Debug("updated catalogue entries", "catalogue", strings.Join(r.sortedKeysLocked(), "\n"))
}

// CoreEntry is a capability contributed by the core framework, keyed
// before namespacing.
type CoreEntry struct {
	Type   EntryType
	Key    string
	Values map[string]string
}

// RegisterCore inserts core entries for keys not already present and
// returns the newly added namespaced keys. Existing keys are never
// overwritten.
func (r *Registry) RegisterCore(entries []CoreEntry) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []string
	for _, e := range entries {
		key := fmt.Sprintf("core/%s/%s", e.Type, e.Key)
		if _, exists := r.entries[key]; exists {
			continue
		}
		r.entries[key] = Entry{
			Type:     e.Type,
			Provider: ProviderCore,
			Key:      key,
			Values:   e.Values,
		}
		added = append(added, key)
	}

	if len(added) > 0 {
		sort.Strings(added)
		slog.Debug("registered core catalogue entries", "keys", strings.Join(added, "\n"))
	}
	return added
}

// RemovePlugin removes every entry contributed by the named plugin,
// regardless of version. Removing an unknown plugin is a no-op.
func (r *Registry) RemovePlugin(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := "plugin/" + name + "/"
	for key := range r.entries {
		if strings.HasPrefix(key, prefix) {
			delete(r.entries, key)
		}
	}

	slog.Debug("removed catalogue entries for plugin", "plugin", name)
}

// FindContentMatcher returns a content matcher entry whose declared
// content-type patterns match the given content type.
func (r *Registry) FindContentMatcher(contentType string) (Entry, bool) {
	return r.findByContentType(ContentMatcher, contentType)
}

// FindContentGenerator returns a content generator entry whose declared
// content-type patterns match the given content type.
func (r *Registry) FindContentGenerator(contentType string) (Entry, bool) {
	return r.findByContentType(ContentGenerator, contentType)
}

// findByContentType scans entries of the given type for one whose
// "content-types" patterns match either the full content type or its
// base type/subtype. Map iteration order makes ties non-deterministic;
// the catalogue does not enforce at most one match per content type.
func (r *Registry) findByContentType(entryType EntryType, contentType string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base := baseContentType(contentType)
	for _, entry := range r.entries {
		if entry.Type != entryType {
			continue
		}
		patterns, ok := entry.Values[ContentTypesKey]
		if !ok {
			continue
		}
		for _, pattern := range strings.Split(patterns, ";") {
			if matchesPattern(strings.TrimSpace(pattern), contentType, base) {
				return entry, true
			}
		}
	}
	return Entry{}, false
}

// Entries returns a snapshot of the catalogue keyed by namespaced key.
func (r *Registry) Entries() map[string]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]Entry, len(r.entries))
	for k, v := range r.entries {
		snapshot[k] = v
	}
	return snapshot
}

func (r *Registry) sortedKeysLocked() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// matchesPattern reports whether the regular expression matches the
// full content type or its base type. A malformed pattern is a
// non-match.
func matchesPattern(pattern, full, base string) bool {
	if pattern == "" {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		slog.Error("failed to parse content-type pattern as a regex",
			"pattern", pattern,
			"error", err)
		return false
	}
	return re.MatchString(full) || re.MatchString(base)
}

// baseContentType strips parameters from a content type, leaving
// "type/subtype".
func baseContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		if i := strings.IndexByte(contentType, ';'); i >= 0 {
			return strings.TrimSpace(contentType[:i])
		}
		return strings.TrimSpace(contentType)
	}
	return mediaType
}
