// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

// Package pluginsdk provides the SDK for building caphost plugins.
//
// Plugins are standalone executables that communicate with the caphost
// driver via HashiCorp's go-plugin framework. This package provides
// helpers to simplify plugin development.
//
// Example usage:
//
//	package main
//
//	import (
//		"github.com/caphost/caphost/pkg/pluginrpc"
//		"github.com/caphost/caphost/pkg/pluginsdk"
//	)
//
//	func main() {
//		pluginsdk.Serve(&pluginsdk.ServeConfig{
//			Entries: []pluginrpc.Entry{
//				{
//					Type:   "content-matcher",
//					Key:    "csv",
//					Values: map[string]string{"content-types": "text/csv"},
//				},
//			},
//		})
//	}
package pluginsdk

import (
	"log/slog"

	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/caphost/caphost/pkg/pluginrpc"
)

// HandshakeConfig is re-exported so plugins and host cannot drift.
var HandshakeConfig = pluginrpc.HandshakeConfig

// ServeConfig configures the plugin server.
type ServeConfig struct {
	// Entries are the catalogue entries announced to the driver during
	// the initialization handshake. Required; Serve panics if empty.
	Entries []pluginrpc.Entry

	// OnInit is called when the driver initializes the plugin,
	// with the driver's implementation identity and version. Optional.
	OnInit func(implementation, version string)

	// OnCatalogueUpdate is called when the driver broadcasts a new
	// catalogue snapshot. Optional.
	OnCatalogueUpdate func(entries []pluginrpc.Entry)

	// OnShutdown is called when the driver requests a graceful stop,
	// shortly before the process is terminated. Optional.
	OnShutdown func()
}

// Serve starts the plugin server. This should be called from main().
// It blocks and never returns under normal operation.
func Serve(config *ServeConfig) {
	if config == nil {
		panic("pluginsdk: config cannot be nil")
	}
	if len(config.Entries) == 0 {
		panic("pluginsdk: config.Entries cannot be empty")
	}
	hashiplug.Serve(&hashiplug.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins: map[string]hashiplug.Plugin{
			pluginrpc.ProtocolName: &pluginrpc.Plugin{
				Impl: &serviceAdapter{config: config},
			},
		},
	})
}

// serviceAdapter adapts ServeConfig callbacks to pluginrpc.Service.
type serviceAdapter struct {
	config *ServeConfig
}

var _ pluginrpc.Service = (*serviceAdapter)(nil)

// InitPlugin answers the driver's handshake with the configured entries.
func (a *serviceAdapter) InitPlugin(req pluginrpc.InitRequest) (pluginrpc.InitResponse, error) {
	slog.Debug("plugin initialized by driver",
		"implementation", req.Implementation,
		"version", req.Version)
	if a.config.OnInit != nil {
		a.config.OnInit(req.Implementation, req.Version)
	}
	return pluginrpc.InitResponse{Catalogue: a.config.Entries}, nil
}

// UpdateCatalogue forwards catalogue broadcasts to the optional hook.
func (a *serviceAdapter) UpdateCatalogue(req pluginrpc.UpdateRequest) error {
	if a.config.OnCatalogueUpdate != nil {
		a.config.OnCatalogueUpdate(req.Catalogue)
	}
	return nil
}

// Shutdown runs the optional shutdown hook. The driver terminates the
// process shortly after this call returns.
func (a *serviceAdapter) Shutdown() error {
	if a.config.OnShutdown != nil {
		a.config.OnShutdown()
	}
	return nil
}
