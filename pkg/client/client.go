package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cmarsh/mcpgo/pkg/mcpsession"
	"github.com/cmarsh/mcpgo/pkg/protocol"
	"github.com/cmarsh/mcpgo/pkg/transport"
)

// Config configures a Client at construction time.
type Config struct {
	// Transport names the registered transport-type tag (pkg/transport's
	// registry) and its constructor config, e.g. {"type": "stdio",
	// "command": "mcp-server"} or {"type": "http", "url": "http://..."}.
	Transport map[string]any
	// ProtocolVersion is the version this client requests on initialize;
	// defaults to protocol.LatestVersion.
	ProtocolVersion string
	// ClientInfo identifies this client to the server.
	ClientInfo protocol.Implementation
	// Capabilities advertises this client's own capabilities.
	Capabilities protocol.ClientCapabilities
	// RequestTimeout overrides DefaultRequestTimeout for every operation.
	RequestTimeout time.Duration
}

// Client is the client core: it owns a transport, a
// Correlator, and a Session tracking this connection's lifecycle state,
// and exposes the typed MCP operations a host program calls.
type Client struct {
	cfg        Config
	tr         transport.ClientTransport
	correlator *Correlator
	session    *mcpsession.Session

	readyOnce sync.Once
	readyCh   chan struct{}
	readyErr  error
}

// New builds the configured transport, starts the three-step
// initialization handshake in the background, and returns immediately -
// callers that need to block until the handshake completes call
// WaitForReady.
func New(cfg Config) (*Client, error) {
	transportCfg, _ := cfg.Transport["type"].(string)
	if transportCfg == "" {
		return nil, fmt.Errorf("client: config.Transport[\"type\"] is required")
	}
	tr, err := transport.Build(transportCfg, cfg.Transport)
	if err != nil {
		return nil, fmt.Errorf("client: build transport: %w", err)
	}
	return NewWithTransport(tr, cfg), nil
}

// NewWithTransport builds a Client directly on top of an already-
// constructed transport, bypassing the transport registry. This is the
// path used for the in-memory transport, where the server half of the
// pair (transport.NewMemoryPair) must be handed to the caller alongside
// the client half - the type-keyed registry (pkg/transport/registry.go)
// only ever returns one side, so it can't express a connected pair.
func NewWithTransport(tr transport.ClientTransport, cfg Config) *Client {
	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = protocol.LatestVersion
	}
	c := &Client{
		cfg:        cfg,
		tr:         tr,
		correlator: NewCorrelator(tr),
		session:    mcpsession.New(func(any) error { return nil }),
		readyCh:    make(chan struct{}),
	}
	go c.initialize()
	return c
}

// initialize drives the three-step handshake: send initialize,
// record the negotiated result, send notifications/initialized, and
// transition the session to Ready - or to Error if any step fails.
func (c *Client) initialize() {
	finish := func(err error) {
		c.readyErr = err
		c.readyOnce.Do(func() { close(c.readyCh) })
	}

	if err := c.session.Transition(mcpsession.Initializing, nil); err != nil {
		finish(err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout())
	defer cancel()

	params := protocol.InitializeParams{
		ProtocolVersion: c.cfg.ProtocolVersion,
		Capabilities:    c.cfg.Capabilities,
		ClientInfo:      c.cfg.ClientInfo,
	}
	raw, err := c.correlator.SendRequest(ctx, string(protocol.MethodInitialize), params, c.requestTimeout())
	if err != nil {
		_ = c.session.Transition(mcpsession.Error, err)
		finish(err)
		return
	}

	var result protocol.InitializeResult
	if err := protocol.DecodeParams(raw, &result); err != nil {
		_ = c.session.Transition(mcpsession.Error, err)
		finish(err)
		return
	}
	c.session.SetInitializeInfo(result.ProtocolVersion, c.cfg.ClientInfo, c.cfg.Capabilities, result.ServerInfo, result.Capabilities)

	if err := c.correlator.SendNotification(string(protocol.MethodInitialized), nil); err != nil {
		_ = c.session.Transition(mcpsession.Error, err)
		finish(err)
		return
	}

	if err := c.session.Transition(mcpsession.Ready, nil); err != nil {
		finish(err)
		return
	}
	finish(nil)
}

func (c *Client) requestTimeout() time.Duration {
	if c.cfg.RequestTimeout > 0 {
		return c.cfg.RequestTimeout
	}
	return DefaultRequestTimeout
}

// WaitForReady blocks until the initialize handshake completes (Ready) or
// fails (Error), or timeout elapses. Default timeout is 30s.
func (c *Client) WaitForReady(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case <-c.readyCh:
		return c.readyErr
	case <-time.After(timeout):
		return fmt.Errorf("client: wait-for-ready timed out after %s", timeout)
	}
}

// Session exposes the client's session record (state, negotiated
// version, server identity/capabilities) for callers that need it.
func (c *Client) Session() *mcpsession.Session { return c.session }

// ListTools calls tools/list.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	raw, err := c.correlator.SendRequest(ctx, string(protocol.MethodToolsList), nil, c.requestTimeout())
	if err != nil {
		return nil, err
	}
	var result struct {
		Tools []protocol.Tool `json:"tools"`
	}
	if err := protocol.DecodeParams(raw, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool calls tools/call.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (protocol.ToolCallResult, error) {
	raw, err := c.correlator.SendRequest(ctx, string(protocol.MethodToolsCall), protocol.ToolCallParams{Name: name, Arguments: arguments}, c.requestTimeout())
	if err != nil {
		return protocol.ToolCallResult{}, err
	}
	var result protocol.ToolCallResult
	if err := protocol.DecodeParams(raw, &result); err != nil {
		return protocol.ToolCallResult{}, err
	}
	return result, nil
}

// ListPrompts calls prompts/list.
func (c *Client) ListPrompts(ctx context.Context) ([]protocol.Prompt, error) {
	raw, err := c.correlator.SendRequest(ctx, string(protocol.MethodPromptsList), nil, c.requestTimeout())
	if err != nil {
		return nil, err
	}
	var result struct {
		Prompts []protocol.Prompt `json:"prompts"`
	}
	if err := protocol.DecodeParams(raw, &result); err != nil {
		return nil, err
	}
	return result.Prompts, nil
}

// GetPrompt calls prompts/get.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (protocol.PromptGetResult, error) {
	raw, err := c.correlator.SendRequest(ctx, string(protocol.MethodPromptsGet), protocol.PromptGetParams{Name: name, Arguments: arguments}, c.requestTimeout())
	if err != nil {
		return protocol.PromptGetResult{}, err
	}
	var result protocol.PromptGetResult
	if err := protocol.DecodeParams(raw, &result); err != nil {
		return protocol.PromptGetResult{}, err
	}
	return result, nil
}

// ListResources calls resources/list.
func (c *Client) ListResources(ctx context.Context) ([]protocol.Resource, error) {
	raw, err := c.correlator.SendRequest(ctx, string(protocol.MethodResourcesList), nil, c.requestTimeout())
	if err != nil {
		return nil, err
	}
	var result struct {
		Resources []protocol.Resource `json:"resources"`
	}
	if err := protocol.DecodeParams(raw, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// ReadResource calls resources/read.
func (c *Client) ReadResource(ctx context.Context, uri string) (protocol.ReadResourceResult, error) {
	raw, err := c.correlator.SendRequest(ctx, string(protocol.MethodResourcesRead), protocol.ReadResourceParams{URI: uri}, c.requestTimeout())
	if err != nil {
		return protocol.ReadResourceResult{}, err
	}
	var result protocol.ReadResourceResult
	if err := protocol.DecodeParams(raw, &result); err != nil {
		return protocol.ReadResourceResult{}, err
	}
	return result, nil
}

// SubscribeResource calls resources/subscribe.
func (c *Client) SubscribeResource(ctx context.Context, uri string) error {
	_, err := c.correlator.SendRequest(ctx, string(protocol.MethodResourcesSub), protocol.SubscribeParams{URI: uri}, c.requestTimeout())
	return err
}

// UnsubscribeResource calls resources/unsubscribe.
func (c *Client) UnsubscribeResource(ctx context.Context, uri string) error {
	_, err := c.correlator.SendRequest(ctx, string(protocol.MethodResourcesUnub), protocol.SubscribeParams{URI: uri}, c.requestTimeout())
	return err
}

// SetLogLevel calls logging/setLevel.
func (c *Client) SetLogLevel(ctx context.Context, level protocol.LogLevel) error {
	_, err := c.correlator.SendRequest(ctx, string(protocol.MethodSetLogLevel), protocol.SetLogLevelParams{Level: string(level)}, c.requestTimeout())
	return err
}

// SubscribeLogMessages registers handler to be called for every inbound
// notifications/message notification. The handler runs on the
// transport's reader goroutine and must not block.
func (c *Client) SubscribeLogMessages(handler func(protocol.LogMessageParams)) {
	c.correlator.OnNotification(string(protocol.NotifyMessage), func(params any) {
		var p protocol.LogMessageParams
		if err := protocol.DecodeParams(params, &p); err == nil {
			handler(p)
		}
	})
}

// SubscribeToolsChanged registers handler to be called for every inbound
// notifications/tools/list_changed notification.
func (c *Client) SubscribeToolsChanged(handler func()) {
	c.correlator.OnNotification(string(protocol.NotifyToolsListChanged), func(any) { handler() })
}

// SubscribePromptsChanged registers handler to be called for every inbound
// notifications/prompts/list_changed notification.
func (c *Client) SubscribePromptsChanged(handler func()) {
	c.correlator.OnNotification(string(protocol.NotifyPromptsListChanged), func(any) { handler() })
}

// SubscribeResourcesChanged registers handler to be called for every
// inbound notifications/resources/list_changed notification.
func (c *Client) SubscribeResourcesChanged(handler func()) {
	c.correlator.OnNotification(string(protocol.NotifyResourcesListChanged), func(any) { handler() })
}

// SubscribeResourceUpdated registers handler to be called for every
// inbound notifications/resources/updated notification, delivering the
// updated URI - the client-side counterpart of SubscribeResource's
// server-side subscription.
func (c *Client) SubscribeResourceUpdated(handler func(uri string)) {
	c.correlator.OnNotification(string(protocol.NotifyResourcesUpdated), func(params any) {
		var p protocol.ResourceUpdatedParams
		if err := protocol.DecodeParams(params, &p); err == nil {
			handler(p.URI)
		}
	})
}

// Close tears down the transport and fails every in-flight request with
// ErrTransportClosed.
func (c *Client) Close() error {
	return c.correlator.Close()
}
