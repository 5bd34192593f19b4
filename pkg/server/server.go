// Package server implements the server core:
// assembly of the three capability registries, the session table, and the
// dispatcher into a single runnable MCP server that can drive any number
// of concurrent transports/sessions.
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/config"
	"github.com/cmarsh/mcpgo/pkg/dispatcher"
	"github.com/cmarsh/mcpgo/pkg/mcplog"
	"github.com/cmarsh/mcpgo/pkg/mcpsession"
	"github.com/cmarsh/mcpgo/pkg/prompts"
	"github.com/cmarsh/mcpgo/pkg/protocol"
	"github.com/cmarsh/mcpgo/pkg/resources"
	"github.com/cmarsh/mcpgo/pkg/tools"
	"github.com/cmarsh/mcpgo/pkg/transport"
)

// stopGrace is the window Stop gives in-flight handlers to finish before
// the dispatcher's worker pool is abandoned.
const stopGrace = 5 * time.Second

// Server is the assembled MCP server: three capability registries, a
// session table, and a dispatcher wired with every supported MCP method.
type Server struct {
	identity        mcpsession.ServerIdentity
	instructions    string
	defaultLogLevel protocol.LogLevel

	tools     *tools.Registry
	prompts   *prompts.Registry
	resources *resources.Registry
	sessions  *mcpsession.Manager
	dispatch  *dispatcher.Dispatcher
	logSink   mcplog.Sink

	mu       sync.Mutex
	closers  []func() error
	stopping bool
}

// Option configures a Server at construction time.
type Option func(*options)

type options struct {
	poolSize        int
	timeout         time.Duration
	enableLogging   bool
	instructions    string
	logSink         mcplog.Sink
	defaultLogLevel protocol.LogLevel
}

// WithPoolSize overrides the dispatcher's worker-pool size (default
// 2*runtime.NumCPU()).
func WithPoolSize(n int) Option { return func(o *options) { o.poolSize = n } }

// WithTimeout overrides the dispatcher's per-request deadline (default
// 30s).
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithLogging advertises the logging capability on initialize.
// logging/setLevel is served with or without it.
func WithLogging() Option { return func(o *options) { o.enableLogging = true } }

// WithInstructions sets the free-text instructions field of the
// initialize response.
func WithInstructions(s string) Option { return func(o *options) { o.instructions = s } }

// WithLogSink overrides how notifications/message is delivered; tests use
// this to capture log traffic instead of writing through a session.
func WithLogSink(sink mcplog.Sink) Option { return func(o *options) { o.logSink = sink } }

// WithDefaultLogLevel sets the logging threshold every new session starts
// at, before any logging/setLevel request.
func WithDefaultLogLevel(l protocol.LogLevel) Option {
	return func(o *options) { o.defaultLogLevel = l }
}

// WithConfig applies a loaded config.Config's server settings - pool size,
// per-request timeout, default log level, logging capability, and
// instructions - as a single Option, so cmd/mcpd can build a Server
// straight from an on-disk config file instead of repeating its fields as
// individual Option calls.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg.Dispatcher.PoolSize > 0 {
			o.poolSize = cfg.Dispatcher.PoolSize
		}
		if cfg.Dispatcher.Timeout > 0 {
			o.timeout = time.Duration(cfg.Dispatcher.Timeout)
		}
		if lvl, ok := protocol.ParseLogLevel(cfg.DefaultLogLevel); ok {
			o.defaultLogLevel = lvl
		}
		if cfg.Server.Instructions != "" {
			o.instructions = cfg.Server.Instructions
		}
		if cfg.EnableLogging {
			o.enableLogging = true
		}
	}
}

// New assembles a server identified by name/version, with empty tool and
// resource registries and a prompt registry seeded with the sample
// prompts, ready for AddTool/AddPrompt/AddResource.
func New(name, version string, opts ...Option) *Server {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	caps := protocol.ServerCapabilities{
		Tools:     &protocol.ListChangedCapability{ListChanged: true},
		Prompts:   &protocol.ListChangedCapability{ListChanged: true},
		Resources: &protocol.ResourcesCapability{ListChanged: true, Subscribe: true},
	}
	if cfg.enableLogging {
		caps.Logging = map[string]any{}
	}

	logSink := cfg.logSink
	if logSink == nil {
		logSink = mcplog.DefaultSink()
	}

	defaultLogLevel := cfg.defaultLogLevel
	if defaultLogLevel == "" {
		defaultLogLevel = protocol.DefaultLogLevel
	}

	s := &Server{
		identity: mcpsession.ServerIdentity{
			Info:         protocol.Implementation{Name: name, Version: version},
			Capabilities: caps,
		},
		instructions:    cfg.instructions,
		defaultLogLevel: defaultLogLevel,
		tools:           tools.New(),
		prompts:         prompts.New(),
		resources:       resources.New(),
		sessions:        mcpsession.NewManager(),
		dispatch:        dispatcher.New(cfg.poolSize, cfg.timeout),
		logSink:         logSink,
	}

	s.tools.OnChange(func() { s.sessions.NotifyInitialized(protocol.NewNotification(string(protocol.NotifyToolsListChanged), nil)) })
	s.prompts.OnChange(func() { s.sessions.NotifyInitialized(protocol.NewNotification(string(protocol.NotifyPromptsListChanged), nil)) })
	s.resources.OnChange(func() { s.sessions.NotifyInitialized(protocol.NewNotification(string(protocol.NotifyResourcesListChanged), nil)) })

	s.registerHandlers()
	return s
}

// NewFromConfig builds a Server from an on-disk config.Config, for callers
// (cmd/mcpd) that load server identity and tuning from a YAML file rather
// than literal Option calls. Extra opts are applied after cfg, so callers
// can still override individual fields (e.g. WithLogSink for tests).
func NewFromConfig(cfg *config.Config, opts ...Option) *Server {
	all := append([]Option{WithConfig(cfg)}, opts...)
	return New(cfg.Server.Name, cfg.Server.Version, all...)
}

// AddTool registers a tool, firing notifications/tools/list_changed to
// every initialized session.
func (s *Server) AddTool(tool protocol.Tool, handler tools.HandlerFunc) error {
	return s.tools.Add(tool, handler)
}

// RemoveTool deregisters a tool by name.
func (s *Server) RemoveTool(name string) bool { return s.tools.Remove(name) }

// AddPrompt registers a prompt template, firing
// notifications/prompts/list_changed.
func (s *Server) AddPrompt(prompt protocol.Prompt, messages []protocol.PromptMessage) error {
	return s.prompts.Add(prompt, messages)
}

// RemovePrompt deregisters a prompt by name.
func (s *Server) RemovePrompt(name string) bool { return s.prompts.Remove(name) }

// AddResource registers a resource, firing
// notifications/resources/list_changed.
func (s *Server) AddResource(resource protocol.Resource, reader resources.ReaderFunc) error {
	return s.resources.Add(resource, reader)
}

// RemoveResource deregisters a resource by URI.
func (s *Server) RemoveResource(uri string) bool { return s.resources.Remove(uri) }

// NotifyResourceUpdated sends notifications/resources/updated to exactly
// the sessions currently subscribed to uri that are initialized and whose
// transport is still alive.
func (s *Server) NotifyResourceUpdated(uri string) {
	params := protocol.ResourceUpdatedParams{URI: uri}
	notification := protocol.NewNotification(string(protocol.NotifyResourcesUpdated), params)
	for _, id := range s.resources.Subscribers(uri) {
		sess, ok := s.sessions.Get(id)
		if !ok || !sess.IsInitialized() {
			continue
		}
		if err := sess.Reply(notification); err != nil {
			logger.Warn("resources/updated delivery failed", id, err)
		}
	}
}

// Log delivers data at the given level to sess, subject to the session's
// configured threshold.
func (s *Server) Log(sess *mcpsession.Session, level protocol.LogLevel, data any, loggerName string) error {
	return mcplog.Log(sess, level, data, loggerName, s.logSink)
}

// Session looks up one of this server's live sessions by id, for callers
// (notably server-initiated logging) that hold a session-id rather than
// a *mcpsession.Session.
func (s *Server) Session(id string) (*mcpsession.Session, bool) {
	return s.sessions.Get(id)
}

// EachSession invokes fn once per currently-registered session, following
// the session manager's copy-on-write iteration contract.
func (s *Server) EachSession(fn func(*mcpsession.Session)) {
	s.sessions.Each(fn)
}

// bindSession attaches a freshly created session to this server's table
// and returns the transport.HandleFunc that dispatches through it.
func (s *Server) bindSession(sess *mcpsession.Session) transport.HandleFunc {
	s.sessions.Add(sess)
	return func(req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
		return s.dispatch.Dispatch(context.Background(), sess, req)
	}
}

// Serve runs a single-session transport (stdio or the in-memory test
// double) until it closes or ctx is cancelled, creating and tearing down
// exactly one session for the connection's lifetime.
func (s *Server) Serve(ctx context.Context, t transport.Transport) error {
	sess := mcpsession.New(func(v any) error { return t.Send(v) })
	sess.SetLogLevel(s.defaultLogLevel)
	handle := s.bindSession(sess)

	s.mu.Lock()
	s.closers = append(s.closers, t.Close)
	s.mu.Unlock()

	err := t.Serve(ctx, handle)
	_ = sess.Transition(mcpsession.Terminated, nil)
	s.sessions.Remove(sess.ID())
	return err
}

// ServeHTTP runs the multi-session HTTP/SSE transport until ctx is
// cancelled; every SSE connection becomes its own session.
func (s *Server) ServeHTTP(ctx context.Context, t *transport.HTTPServerTransport) error {
	s.mu.Lock()
	s.closers = append(s.closers, t.Close)
	s.mu.Unlock()

	return t.ServeHTTP(ctx, func(sessionID string, reply func(v any) error) (transport.HandleFunc, func()) {
		sess := mcpsession.NewWithID(sessionID, reply)
		sess.SetLogLevel(s.defaultLogLevel)
		handle := s.bindSession(sess)
		onClose := func() {
			_ = sess.Transition(mcpsession.Terminated, nil)
			s.sessions.Remove(sessionID)
		}
		return handle, onClose
	})
}

// Stop closes every live session's transport, then gives in-flight
// handlers stopGrace to finish before returning regardless.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	closers := s.closers
	s.mu.Unlock()

	var errs []error
	for _, close := range closers {
		if err := close(); err != nil {
			errs = append(errs, err)
		}
	}

	graceCtx, cancel := context.WithTimeout(ctx, stopGrace)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for s.dispatch.InFlight() > 0 {
		select {
		case <-graceCtx.Done():
			logger.Warn("server stop: abandoning in-flight handlers after grace window", s.dispatch.InFlight())
			return errors.Join(errs...)
		case <-ticker.C:
		}
	}

	return errors.Join(errs...)
}
