// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/caphost/caphost/pkg/errutil"
	"github.com/caphost/caphost/pkg/pluginrpc"
)

// broadcastTimeout bounds the catalogue broadcast to all plugins.
const broadcastTimeout = 10 * time.Second

// initPlugin runs the initialization handshake against a freshly
// started plugin and returns the catalogue entries it announced.
func (d *Driver) initPlugin(proc Process) ([]pluginrpc.Entry, error) {
	resp, err := proc.Service().InitPlugin(pluginrpc.InitRequest{
		Implementation: d.impl,
		Version:        d.version,
	})
	if err != nil {
		return nil, fmt.Errorf("init handshake failed: %w", err)
	}
	return resp.Catalogue, nil
}

// broadcastCatalogue pushes the current catalogue snapshot to every
// running plugin. Delivery is best effort: failures are retried a few
// times, then logged and dropped.
func (d *Driver) broadcastCatalogue() {
	entries := d.wireEntries()

	d.mu.Lock()
	targets := make(map[string]Process, len(d.running))
	for key, p := range d.running {
		targets[key] = p.proc
	}
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
	defer cancel()

	for key, proc := range targets {
		backoff := retry.WithMaxRetries(2, retry.NewExponential(100*time.Millisecond))
		err := retry.Do(ctx, backoff, func(_ context.Context) error {
			if err := proc.Service().UpdateCatalogue(pluginrpc.UpdateRequest{Catalogue: entries}); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			errutil.LogWarn(slog.Default().With("plugin", key), "catalogue broadcast failed", err)
		}
	}
}

// wireEntries converts the catalogue snapshot to its wire form.
func (d *Driver) wireEntries() []pluginrpc.Entry {
	snapshot := d.catalogue.Entries()
	entries := make([]pluginrpc.Entry, 0, len(snapshot))
	for key, e := range snapshot {
		entries = append(entries, pluginrpc.Entry{
			Type:   string(e.Type),
			Key:    key,
			Values: e.Values,
		})
	}
	return entries
}
