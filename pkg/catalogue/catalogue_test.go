// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

package catalogue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caphost/caphost/pkg/catalogue"
	"github.com/caphost/caphost/pkg/plugin"
	"github.com/caphost/caphost/pkg/pluginrpc"
)

func csvManifest() *plugin.Manifest {
	return &plugin.Manifest{
		Name:           "csv",
		Version:        "1.0.0",
		ExecutableType: plugin.ExecutableExec,
		EntryPoint:     "csv-provider",
	}
}

func TestRegisterPlugin_NamespacedKeys(t *testing.T) {
	reg := catalogue.NewRegistry()

	reg.RegisterPlugin(csvManifest(), []pluginrpc.Entry{
		{Type: "content-matcher", Key: "csv", Values: map[string]string{"content-types": "text/csv"}},
		{Type: "content-generator", Key: "csv", Values: map[string]string{"content-types": "text/csv"}},
	})

	entries := reg.Entries()
	require.Len(t, entries, 2)
	assert.Contains(t, entries, "plugin/csv/content-matcher/csv")
	assert.Contains(t, entries, "plugin/csv/content-generator/csv")

	entry := entries["plugin/csv/content-matcher/csv"]
	assert.Equal(t, catalogue.ProviderPlugin, entry.Provider)
	require.NotNil(t, entry.Plugin)
	assert.Equal(t, "csv", entry.Plugin.Name)
}

func TestRegisterPlugin_OverwritesOnReload(t *testing.T) {
	reg := catalogue.NewRegistry()
	m := csvManifest()

	reg.RegisterPlugin(m, []pluginrpc.Entry{
		{Type: "content-matcher", Key: "csv", Values: map[string]string{"content-types": "text/csv"}},
	})
	reg.RegisterPlugin(m, []pluginrpc.Entry{
		{Type: "content-matcher", Key: "csv", Values: map[string]string{"content-types": "text/csv;application/csv"}},
	})

	entries := reg.Entries()
	require.Len(t, entries, 1, "re-registration must replace, not duplicate")
	assert.Equal(t, "text/csv;application/csv",
		entries["plugin/csv/content-matcher/csv"].Values["content-types"])
}

func TestRegisterPlugin_SkipsUnknownEntryType(t *testing.T) {
	reg := catalogue.NewRegistry()

	reg.RegisterPlugin(csvManifest(), []pluginrpc.Entry{
		{Type: "transport", Key: "grpc"},
		{Type: "interaction", Key: "csv"},
	})

	entries := reg.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries, "plugin/csv/interaction/csv")
}

func TestRegisterCore_FirstWriterWins(t *testing.T) {
	reg := catalogue.NewRegistry()

	added := reg.RegisterCore([]catalogue.CoreEntry{
		{Type: catalogue.Interaction, Key: "http", Values: map[string]string{"scheme": "http"}},
	})
	assert.Equal(t, []string{"core/interaction/http"}, added)

	// A second registration under the same key must not change the
	// existing entry.
	added = reg.RegisterCore([]catalogue.CoreEntry{
		{Type: catalogue.Interaction, Key: "http", Values: map[string]string{"scheme": "smtp"}},
		{Type: catalogue.Interaction, Key: "https"},
	})
	assert.Equal(t, []string{"core/interaction/https"}, added)

	entries := reg.Entries()
	assert.Equal(t, "http", entries["core/interaction/http"].Values["scheme"])
}

func TestRemovePlugin_ByNamePrefix(t *testing.T) {
	reg := catalogue.NewRegistry()

	foo := &plugin.Manifest{Name: "foo", Version: "1.0.0"}
	foobar := &plugin.Manifest{Name: "foobar", Version: "1.0.0"}

	reg.RegisterPlugin(foo, []pluginrpc.Entry{
		{Type: "content-matcher", Key: "a"},
		{Type: "interaction", Key: "b"},
	})
	reg.RegisterPlugin(foobar, []pluginrpc.Entry{
		{Type: "content-matcher", Key: "a"},
	})
	reg.RegisterCore([]catalogue.CoreEntry{{Type: catalogue.Interaction, Key: "http"}})

	reg.RemovePlugin("foo")

	entries := reg.Entries()
	assert.NotContains(t, entries, "plugin/foo/content-matcher/a")
	assert.NotContains(t, entries, "plugin/foo/interaction/b")
	assert.Contains(t, entries, "plugin/foobar/content-matcher/a",
		"removal must not touch plugins sharing a name prefix")
	assert.Contains(t, entries, "core/interaction/http")
}

func TestRemovePlugin_UnknownIsNoOp(t *testing.T) {
	reg := catalogue.NewRegistry()
	reg.RemovePlugin("ghost")
	assert.Empty(t, reg.Entries())
}

func TestFindContentMatcher(t *testing.T) {
	reg := catalogue.NewRegistry()
	reg.RegisterPlugin(csvManifest(), []pluginrpc.Entry{
		{Type: "content-matcher", Key: "json", Values: map[string]string{
			"content-types": `application/json;application/.*\+json`,
		}},
	})

	tests := []struct {
		name        string
		contentType string
		wantMatch   bool
	}{
		{name: "exact", contentType: "application/json", wantMatch: true},
		{name: "suffix pattern", contentType: "application/vnd.api+json", wantMatch: true},
		{name: "parameters stripped", contentType: "application/json; charset=utf-8", wantMatch: true},
		{name: "no match", contentType: "text/plain", wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := reg.FindContentMatcher(tt.contentType)
			assert.Equal(t, tt.wantMatch, ok)
			if tt.wantMatch {
				assert.Equal(t, catalogue.ContentMatcher, entry.Type)
			}
		})
	}
}

func TestFindContentGenerator(t *testing.T) {
	reg := catalogue.NewRegistry()
	reg.RegisterPlugin(csvManifest(), []pluginrpc.Entry{
		{Type: "content-generator", Key: "csv", Values: map[string]string{
			"content-types": "text/csv",
		}},
	})

	_, ok := reg.FindContentMatcher("text/csv")
	assert.False(t, ok, "generator entries must not satisfy matcher lookups")

	entry, ok := reg.FindContentGenerator("text/csv")
	require.True(t, ok)
	assert.Equal(t, catalogue.ContentGenerator, entry.Type)
}

func TestFindContentMatcher_MalformedPattern(t *testing.T) {
	reg := catalogue.NewRegistry()
	reg.RegisterPlugin(csvManifest(), []pluginrpc.Entry{
		{Type: "content-matcher", Key: "bad", Values: map[string]string{
			"content-types": "[invalid",
		}},
		{Type: "content-matcher", Key: "good", Values: map[string]string{
			"content-types": "[invalid;text/csv",
		}},
	})

	// The malformed pattern is a non-match, not a failure; later
	// patterns in the same entry still apply.
	entry, ok := reg.FindContentMatcher("text/csv")
	require.True(t, ok)
	assert.Equal(t, "plugin/csv/content-matcher/good", entry.Key)

	_, ok = reg.FindContentMatcher("application/json")
	assert.False(t, ok)
}

func TestFindContentMatcher_NoContentTypesValue(t *testing.T) {
	reg := catalogue.NewRegistry()
	reg.RegisterPlugin(csvManifest(), []pluginrpc.Entry{
		{Type: "content-matcher", Key: "bare"},
	})

	_, ok := reg.FindContentMatcher("text/csv")
	assert.False(t, ok)
}

func TestParseEntryType(t *testing.T) {
	for _, valid := range []string{
		"content-matcher", "content-generator", "mock-server", "matcher", "interaction",
	} {
		got, err := catalogue.ParseEntryType(valid)
		require.NoError(t, err)
		assert.Equal(t, catalogue.EntryType(valid), got)
	}

	_, err := catalogue.ParseEntryType("telemetry")
	assert.Error(t, err)
}

func TestEntries_Snapshot(t *testing.T) {
	reg := catalogue.NewRegistry()
	reg.RegisterCore([]catalogue.CoreEntry{{Type: catalogue.Interaction, Key: "http"}})

	snapshot := reg.Entries()
	delete(snapshot, "core/interaction/http")

	assert.Len(t, reg.Entries(), 1, "mutating a snapshot must not affect the registry")
}
