// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

package driver

import (
	"context"

	"github.com/caphost/caphost/pkg/plugin"
	"github.com/caphost/caphost/pkg/pluginrpc"
)

// Process is a running plugin subprocess with an established connection.
type Process interface {
	// Service returns the RPC client for driving the plugin.
	Service() pluginrpc.Service
	// Addr returns a printable address of the plugin's listener, or ""
	// if the transport does not expose one.
	Addr() string
	// Stop tears the process down. Safe to call more than once; later
	// calls are no-ops.
	Stop()
}

// Supervisor starts plugin subprocesses from their manifests.
type Supervisor interface {
	// Start launches the plugin described by the manifest and waits for
	// it to become ready. On failure no process is left behind.
	Start(ctx context.Context, manifest *plugin.Manifest) (Process, error)
}
