// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

// Package driver orchestrates plugin lifecycles: it resolves manifests,
// supervises plugin subprocesses, runs the initialization handshake and
// maintains the capability catalogue.
package driver

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/oops"

	"github.com/caphost/caphost/pkg/catalogue"
	"github.com/caphost/caphost/pkg/plugin"
)

// Driver manages running plugins and the shared catalogue.
type Driver struct {
	impl      string
	version   string
	store     *plugin.Store
	catalogue *catalogue.Registry
	sup       Supervisor

	mu      sync.Mutex
	running map[string]*RunningPlugin
}

// Option configures a Driver.
type Option func(*Driver)

// WithImplementation sets the identity announced to plugins during the
// initialization handshake.
func WithImplementation(name, version string) Option {
	return func(d *Driver) {
		d.impl = name
		d.version = version
	}
}

// WithCatalogue uses an existing catalogue registry instead of a fresh one.
func WithCatalogue(reg *catalogue.Registry) Option {
	return func(d *Driver) {
		d.catalogue = reg
	}
}

// New creates a driver backed by the given manifest store and supervisor.
// Panics if store or sup is nil.
func New(store *plugin.Store, sup Supervisor, opts ...Option) *Driver {
	if store == nil {
		panic("driver: store cannot be nil")
	}
	if sup == nil {
		panic("driver: supervisor cannot be nil")
	}
	d := &Driver{
		impl:      "caphost",
		version:   "0.0.0",
		store:     store,
		catalogue: catalogue.NewRegistry(),
		sup:       sup,
		running:   make(map[string]*RunningPlugin),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Catalogue returns the driver's catalogue registry.
func (d *Driver) Catalogue() *catalogue.Registry {
	return d.catalogue
}

// Load locates the plugin matching dep and ensures it is running. If a
// matching plugin is already running its access count is incremented
// and the same instance is returned; otherwise the plugin is started,
// the initialization handshake is run and its catalogue entries are
// registered.
func (d *Driver) Load(ctx context.Context, dep plugin.Dependency) (*RunningPlugin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p := d.lookupLocked(dep); p != nil {
		p.refs++
		return p, nil
	}

	manifest, err := d.store.Resolve(dep)
	if err != nil {
		if errors.Is(err, plugin.ErrManifestNotFound) {
			return nil, oops.Code("MANIFEST_NOT_FOUND").
				With("plugin", dep.String()).
				With("plugin_dir", d.store.Dir()).
				Wrap(err)
		}
		return nil, oops.Code("LOAD_ERROR").With("plugin", dep.String()).Wrap(err)
	}

	if manifest.ExecutableType != plugin.ExecutableExec {
		return nil, oops.Code("UNSUPPORTED_EXECUTABLE_TYPE").
			With("plugin", manifest.Key()).
			With("executable_type", string(manifest.ExecutableType)).
			Errorf("unsupported executable type: %s", manifest.ExecutableType)
	}

	proc, err := d.sup.Start(ctx, manifest)
	if err != nil {
		return nil, oops.Code("START_ERROR").With("plugin", manifest.Key()).Wrap(err)
	}

	entries, err := d.initPlugin(proc)
	if err != nil {
		proc.Stop()
		return nil, oops.Code("HANDSHAKE_ERROR").With("plugin", manifest.Key()).Wrap(err)
	}

	d.catalogue.RegisterPlugin(manifest, entries)

	p := newRunningPlugin(manifest, proc)
	d.running[manifest.Key()] = p

	go d.broadcastCatalogue()

	return p, nil
}

// LookupPlugin returns a running plugin matching dep without changing
// its access count.
func (d *Driver) LookupPlugin(dep plugin.Dependency) (*RunningPlugin, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := d.lookupLocked(dep)
	return p, p != nil
}

// lookupLocked finds a running plugin for dep: the exact version when
// one is requested, otherwise the highest version of that name.
func (d *Driver) lookupLocked(dep plugin.Dependency) *RunningPlugin {
	if dep.Version != "" {
		return d.running[dep.String()]
	}
	var best *RunningPlugin
	for _, p := range d.running {
		if p.Manifest.Name != dep.Name {
			continue
		}
		if best == nil || newerManifest(p.Manifest, best.Manifest) {
			best = p
		}
	}
	return best
}

// newerManifest reports whether a's version is higher than b's.
func newerManifest(a, b *plugin.Manifest) bool {
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

// Release decrements the plugin's access count. When the count reaches
// zero the plugin is stopped and its catalogue entries are removed.
func (d *Driver) Release(p *RunningPlugin) {
	if p == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.running[p.Manifest.Key()]
	if !ok || current != p {
		return
	}
	d.releaseLocked(current)
}

// ReleasePlugin is Release addressed by dependency. A dependency with
// no running match is a no-op.
func (d *Driver) ReleasePlugin(dep plugin.Dependency) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p := d.lookupLocked(dep); p != nil {
		d.releaseLocked(p)
	}
}

func (d *Driver) releaseLocked(p *RunningPlugin) {
	p.refs--
	if p.refs > 0 {
		return
	}

	p.proc.Stop()
	d.catalogue.RemovePlugin(p.Manifest.Name)
	delete(d.running, p.Manifest.Key())
}

// ShutdownAll stops every running plugin regardless of access counts.
func (d *Driver) ShutdownAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, p := range d.running {
		p.proc.Stop()
		d.catalogue.RemovePlugin(p.Manifest.Name)
		delete(d.running, key)
	}
}

// Running returns the currently running plugins.
func (d *Driver) Running() []*RunningPlugin {
	d.mu.Lock()
	defer d.mu.Unlock()

	plugins := make([]*RunningPlugin, 0, len(d.running))
	for _, p := range d.running {
		plugins = append(plugins, p)
	}
	return plugins
}

// RegisterCoreEntries adds core capabilities to the catalogue and
// notifies running plugins of the change. Returns the keys that were
// newly added.
func (d *Driver) RegisterCoreEntries(entries []catalogue.CoreEntry) []string {
	added := d.catalogue.RegisterCore(entries)
	if len(added) > 0 {
		go d.broadcastCatalogue()
	}
	return added
}

// FindContentMatcher returns the catalogue entry able to match content
// of the given type.
func (d *Driver) FindContentMatcher(contentType string) (catalogue.Entry, bool) {
	return d.catalogue.FindContentMatcher(contentType)
}

// FindContentGenerator returns the catalogue entry able to generate
// content of the given type.
func (d *Driver) FindContentGenerator(contentType string) (catalogue.Entry, bool) {
	return d.catalogue.FindContentGenerator(contentType)
}
