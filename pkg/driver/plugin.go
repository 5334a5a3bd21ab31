// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

package driver

import (
	"github.com/oklog/ulid/v2"

	"github.com/caphost/caphost/pkg/plugin"
)

// RunningPlugin is a live plugin instance tracked by the driver.
type RunningPlugin struct {
	// Manifest describes the plugin this instance was started from.
	Manifest *plugin.Manifest
	// ID uniquely identifies this instance across restarts.
	ID ulid.ULID

	proc Process
	refs int // guarded by Driver.mu
}

func newRunningPlugin(manifest *plugin.Manifest, proc Process) *RunningPlugin {
	return &RunningPlugin{
		Manifest: manifest,
		ID:       ulid.Make(),
		proc:     proc,
		refs:     1,
	}
}

// Key returns the "name/version" identifier of the plugin.
func (p *RunningPlugin) Key() string {
	return p.Manifest.Key()
}

// Addr returns the plugin's listener address, or "" if unknown.
func (p *RunningPlugin) Addr() string {
	return p.proc.Addr()
}
