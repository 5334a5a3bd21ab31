// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

// Package main implements an example content plugin for CSV bodies.
// It registers a content matcher and a content generator for the CSV
// media types.
//
// Build and install:
//
//	go build -o csvmatch ./plugins/csvmatch
//	mkdir -p "$CAPHOST_PLUGIN_DIR/csvmatch-0.1.0"
//	cp csvmatch plugins/csvmatch/caphost-plugin.json "$CAPHOST_PLUGIN_DIR/csvmatch-0.1.0/"
package main

import (
	"log/slog"
	"os"

	"github.com/caphost/caphost/pkg/pluginrpc"
	"github.com/caphost/caphost/pkg/pluginsdk"
)

func main() {
	level := slog.LevelInfo
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		_ = level.UnmarshalText([]byte(s))
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	pluginsdk.Serve(&pluginsdk.ServeConfig{
		Entries: []pluginrpc.Entry{
			{
				Type:   "content-matcher",
				Key:    "csv",
				Values: map[string]string{"content-types": "text/csv;application/csv"},
			},
			{
				Type:   "content-generator",
				Key:    "csv",
				Values: map[string]string{"content-types": "text/csv;application/csv"},
			},
		},
		OnInit: func(implementation, version string) {
			logger.Info("connected to driver",
				"implementation", implementation,
				"version", version)
		},
		OnCatalogueUpdate: func(entries []pluginrpc.Entry) {
			logger.Debug("catalogue updated", "entries", len(entries))
		},
		OnShutdown: func() {
			logger.Info("shutting down")
		},
	})
}
