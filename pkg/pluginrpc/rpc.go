// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

// Package pluginrpc defines the RPC contract between the caphost driver
// and plugin processes. Both sides speak it over HashiCorp go-plugin's
// net/rpc protocol; the wire framing and the port announcement on the
// child's stdout belong to go-plugin, not to this package.
package pluginrpc

import (
	"errors"
	"net/rpc"

	hashiplug "github.com/hashicorp/go-plugin"
)

// ProtocolName is the dispense key for the driver service.
const ProtocolName = "driver"

// HandshakeConfig is the go-plugin handshake configuration.
// Both host and plugins must use the same values.
var HandshakeConfig = hashiplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "CAPHOST_PLUGIN",
	MagicCookieValue: "caphost-v1",
}

// Entry is one capability offered by a plugin or by the core framework.
type Entry struct {
	// Type is the catalogue entry type ("content-matcher",
	// "content-generator", "mock-server", "matcher", "interaction").
	Type string
	// Key names the capability within its type.
	Key string
	// Values carries free-form metadata, e.g. "content-types".
	Values map[string]string
}

// InitRequest is sent to a freshly started plugin. It identifies the
// host implementation driving the plugin.
type InitRequest struct {
	Implementation string
	Version        string
}

// InitResponse carries the catalogue entries the plugin offers.
type InitResponse struct {
	Catalogue []Entry
}

// UpdateRequest broadcasts the full current catalogue to a running
// plugin after the catalogue changed.
type UpdateRequest struct {
	Catalogue []Entry
}

// Service is the RPC surface every plugin process implements.
type Service interface {
	// InitPlugin performs the initialization handshake.
	InitPlugin(req InitRequest) (InitResponse, error)
	// UpdateCatalogue notifies the plugin of catalogue changes.
	// Best-effort; the driver ignores failures.
	UpdateCatalogue(req UpdateRequest) error
	// Shutdown asks the plugin to terminate gracefully. The driver
	// kills the process shortly after regardless of the outcome.
	Shutdown() error
}

// Plugin implements go-plugin's Plugin interface for the driver service.
type Plugin struct {
	// Impl is used by the plugin side; the host leaves it nil.
	Impl Service
}

// Server returns the RPC server for this plugin (called in the plugin process).
func (p *Plugin) Server(*hashiplug.MuxBroker) (any, error) {
	if p.Impl == nil {
		return nil, errors.New("pluginrpc: service implementation is nil")
	}
	return &rpcServer{impl: p.Impl}, nil
}

// Client returns the RPC client for this plugin (called in the host process).
func (p *Plugin) Client(_ *hashiplug.MuxBroker, c *rpc.Client) (any, error) {
	return &rpcClient{client: c}, nil
}

// rpcServer adapts Service to net/rpc method signatures.
type rpcServer struct {
	impl Service
}

func (s *rpcServer) InitPlugin(req InitRequest, resp *InitResponse) error {
	out, err := s.impl.InitPlugin(req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *rpcServer) UpdateCatalogue(req UpdateRequest, _ *struct{}) error {
	return s.impl.UpdateCatalogue(req)
}

func (s *rpcServer) Shutdown(_ struct{}, _ *struct{}) error {
	return s.impl.Shutdown()
}

// rpcClient is the host-side view of a plugin's Service.
type rpcClient struct {
	client *rpc.Client
}

var _ Service = (*rpcClient)(nil)

func (c *rpcClient) InitPlugin(req InitRequest) (InitResponse, error) {
	var resp InitResponse
	err := c.client.Call("Plugin.InitPlugin", req, &resp)
	return resp, err
}

func (c *rpcClient) UpdateCatalogue(req UpdateRequest) error {
	return c.client.Call("Plugin.UpdateCatalogue", req, &struct{}{})
}

func (c *rpcClient) Shutdown() error {
	return c.client.Call("Plugin.Shutdown", struct{}{}, &struct{}{})
}
