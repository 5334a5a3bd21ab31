// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

// Package goplugin provides a driver.Supervisor implementation that
// launches plugin executables using HashiCorp's go-plugin system.
package goplugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/caphost/caphost/pkg/driver"
	"github.com/caphost/caphost/pkg/plugin"
	"github.com/caphost/caphost/pkg/pluginrpc"
)

// DefaultStartTimeout bounds how long Start waits for a plugin to
// announce readiness before giving up.
const DefaultStartTimeout = 30 * time.Second

// shutdownGrace is how long Stop waits for a graceful shutdown before
// killing the process.
const shutdownGrace = time.Second

// Compile-time interface check.
var _ driver.Supervisor = (*Supervisor)(nil)

// PluginClient wraps go-plugin client for testability.
type PluginClient interface {
	// Client returns the RPC client protocol.
	Client() (hashiplug.ClientProtocol, error)
	// Kill terminates the plugin process.
	Kill()
	// ReattachConfig returns connection details for the running plugin,
	// or nil if it is not running.
	ReattachConfig() *hashiplug.ReattachConfig
}

// ClientFactory creates plugin clients.
type ClientFactory interface {
	// NewClient creates a client that will run the given command.
	NewClient(cmd *exec.Cmd) PluginClient
}

// DefaultClientFactory creates real go-plugin clients.
type DefaultClientFactory struct {
	// StartTimeout bounds the wait for the plugin's readiness
	// announcement. Zero means DefaultStartTimeout.
	StartTimeout time.Duration
	// Logger receives go-plugin's internal logs. Nil means a logger
	// at warn level writing to stderr.
	Logger hclog.Logger
}

// NewClient creates a real go-plugin client.
func (f *DefaultClientFactory) NewClient(cmd *exec.Cmd) PluginClient {
	timeout := f.StartTimeout
	if timeout == 0 {
		timeout = DefaultStartTimeout
	}
	logger := f.Logger
	if logger == nil {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:        "goplugin",
			Level:       hclog.Info,
			Output:      &slogWriter{logger: slog.Default()},
			DisableTime: true,
		})
	}
	return hashiplug.NewClient(&hashiplug.ClientConfig{
		HandshakeConfig: pluginrpc.HandshakeConfig,
		Plugins: map[string]hashiplug.Plugin{
			pluginrpc.ProtocolName: &pluginrpc.Plugin{},
		},
		Cmd:              cmd, // #nosec G204 -- command resolved from plugin manifest; manifests validated during discovery
		AllowedProtocols: []hashiplug.Protocol{hashiplug.ProtocolNetRPC},
		StartTimeout:     timeout,
		Logger:           logger,
	})
}

// slogWriter routes go-plugin's line-oriented internal logs into slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Write(p []byte) (int, error) {
	if line := strings.TrimSpace(string(p)); line != "" {
		w.logger.Debug(line, "source", "goplugin")
	}
	return len(p), nil
}

// Supervisor launches plugin subprocesses via go-plugin.
type Supervisor struct {
	factory  ClientFactory
	logLevel string
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClientFactory overrides the client factory (for testing).
func WithClientFactory(factory ClientFactory) Option {
	return func(s *Supervisor) {
		s.factory = factory
	}
}

// WithLogLevel sets the log level passed to plugin subprocesses via the
// LOG_LEVEL environment variable.
func WithLogLevel(level string) Option {
	return func(s *Supervisor) {
		s.logLevel = level
	}
}

// NewSupervisor creates a supervisor with the given options.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		factory:  &DefaultClientFactory{},
		logLevel: "info",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EntryPoint resolves the manifest entry point for a platform. Platform
// specific entries win over the generic one, with "goos-goarch" checked
// before "goos". Windows additionally accepts the legacy "win32" key.
func EntryPoint(manifest *plugin.Manifest, goos, goarch string) string {
	if ep, ok := manifest.EntryPoints[goos+"-"+goarch]; ok && ep != "" {
		return ep
	}
	if ep, ok := manifest.EntryPoints[goos]; ok && ep != "" {
		return ep
	}
	if goos == "windows" {
		if ep, ok := manifest.EntryPoints["win32"]; ok && ep != "" {
			return ep
		}
	}
	return manifest.EntryPoint
}

// Start launches the plugin executable and connects to it.
func (s *Supervisor) Start(_ context.Context, manifest *plugin.Manifest) (driver.Process, error) {
	entry := EntryPoint(manifest, runtime.GOOS, runtime.GOARCH)
	execPath := entry
	if !filepath.IsAbs(execPath) {
		execPath = filepath.Join(manifest.Dir, entry)
	}
	if _, err := os.Stat(execPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plugin executable not found: %s: %w", execPath, err)
		}
		return nil, fmt.Errorf("cannot access plugin executable %s: %w", execPath, err)
	}

	cmd := exec.Command(execPath) // #nosec G204 -- path resolved from plugin manifest; manifests validated during discovery
	cmd.Dir = manifest.Dir
	cmd.Env = append(os.Environ(), "LOG_LEVEL="+s.logLevel)

	client := s.factory.NewClient(cmd)

	proto, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to plugin %s: %w", manifest.Name, err)
	}

	raw, err := proto.Dispense(pluginrpc.ProtocolName)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin %s: %w", manifest.Name, err)
	}

	svc, ok := raw.(pluginrpc.Service)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s does not implement the driver protocol", manifest.Name)
	}

	return &process{client: client, service: svc}, nil
}

// process is a running go-plugin subprocess.
type process struct {
	client  PluginClient
	service pluginrpc.Service
	once    sync.Once
}

var _ driver.Process = (*process)(nil)

// Service returns the RPC client for the plugin.
func (p *process) Service() pluginrpc.Service {
	return p.service
}

// Addr returns the plugin's listener address, or "" if unknown.
func (p *process) Addr() string {
	rc := p.client.ReattachConfig()
	if rc == nil || rc.Addr == nil {
		return ""
	}
	return rc.Addr.String()
}

// Stop asks the plugin to shut down gracefully, then kills the process.
// Safe to call more than once.
func (p *process) Stop() {
	p.once.Do(func() {
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = p.service.Shutdown()
		}()
		select {
		case <-done:
		case <-time.After(shutdownGrace):
		}
		p.client.Kill()
	})
}
