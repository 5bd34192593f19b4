package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/mcplog"
	"github.com/cmarsh/mcpgo/pkg/mcpsession"
	"github.com/cmarsh/mcpgo/pkg/prompts"
	"github.com/cmarsh/mcpgo/pkg/protocol"
	"github.com/cmarsh/mcpgo/pkg/tools"
)

// registerHandlers wires every MCP method this server understands into
// the dispatcher's handler table. Each handler only ever returns a
// *protocol.JsonRpcError when it wants a specific error code preserved
// (invalid-params for an unknown tool/prompt/resource); any other
// returned error becomes internal-error, per the dispatcher's contract.
func (s *Server) registerHandlers() {
	s.dispatch.Handle(string(protocol.MethodInitialize), s.handleInitialize)
	s.dispatch.Handle(string(protocol.MethodInitialized), s.handleInitialized)
	s.dispatch.Handle(string(protocol.MethodPing), s.handlePing)

	s.dispatch.Handle(string(protocol.MethodToolsList), s.handleToolsList)
	s.dispatch.Handle(string(protocol.MethodToolsCall), s.handleToolsCall)

	s.dispatch.Handle(string(protocol.MethodPromptsList), s.handlePromptsList)
	s.dispatch.Handle(string(protocol.MethodPromptsGet), s.handlePromptsGet)

	s.dispatch.Handle(string(protocol.MethodResourcesList), s.handleResourcesList)
	s.dispatch.Handle(string(protocol.MethodResourcesRead), s.handleResourcesRead)
	s.dispatch.Handle(string(protocol.MethodResourcesSub), s.handleResourcesSubscribe)
	s.dispatch.Handle(string(protocol.MethodResourcesUnub), s.handleResourcesUnsubscribe)

	s.dispatch.Handle(string(protocol.MethodSetLogLevel), s.handleSetLogLevel)
}

// handleInitialize implements the first step of the three-step
// handshake: negotiate the version, record both sides' identity, and
// move the session from Disconnected to Initializing.
func (s *Server) handleInitialize(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	var p protocol.InitializeParams
	if err := protocol.DecodeParams(params, &p); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: fmt.Sprintf("invalid initialize params: %v", err)}
	}
	if err := sess.Transition(mcpsession.Initializing, nil); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidRequest, Message: err.Error()}
	}

	result := mcpsession.BuildInitializeResult(p, s.identity)
	result.Instructions = s.instructions
	if result.ProtocolVersion != p.ProtocolVersion {
		logger.Warn("client requested unsupported protocol version, negotiated fallback",
			p.ProtocolVersion, "->", result.ProtocolVersion)
	}
	sess.SetInitializeInfo(result.ProtocolVersion, p.ClientInfo, p.Capabilities, result.ServerInfo, result.Capabilities)
	return result, nil
}

// handleInitialized implements the handshake's third step: the client's
// notifications/initialized moves the session to Ready.
func (s *Server) handleInitialized(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	if err := sess.Transition(mcpsession.Ready, nil); err != nil {
		logger.Warn("notifications/initialized on session in unexpected state", sess.ID(), err)
	}
	return nil, nil
}

// handlePing answers a liveness check. Usable on any session state,
// including Initializing, since liveness checks must not require a
// completed handshake.
func (s *Server) handlePing(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	return map[string]any{}, nil
}

// handleToolsList implements tools/list, stripped to the
// fields the session's negotiated version carries.
func (s *Server) handleToolsList(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	return map[string]any{"tools": s.tools.List(sess.ProtocolVersion())}, nil
}

// handleToolsCall implements tools/call: an unknown tool
// name is a protocol-level invalid-params error; a handler-returned error
// is an application-level failure, wrapped into {isError:true} rather
// than a JSON-RPC error.
func (s *Server) handleToolsCall(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	var p protocol.ToolCallParams
	if err := protocol.DecodeParams(params, &p); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: fmt.Sprintf("invalid tools/call params: %v", err)}
	}

	result, err := s.tools.Call(ctx, p.Name, p.Arguments)
	if err != nil {
		if errors.Is(err, tools.ErrUnknownTool) {
			return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: fmt.Sprintf("unknown tool: %q", p.Name)}
		}
		return protocol.ToolCallResult{
			Content: []protocol.Content{protocol.TextContent(err.Error())},
			IsError: true,
		}, nil
	}
	return result, nil
}

// handlePromptsList implements prompts/list.
func (s *Server) handlePromptsList(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	return map[string]any{"prompts": s.prompts.List(sess.ProtocolVersion())}, nil
}

// handlePromptsGet implements prompts/get: an unknown
// prompt name is invalid-params.
func (s *Server) handlePromptsGet(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	var p protocol.PromptGetParams
	if err := protocol.DecodeParams(params, &p); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: fmt.Sprintf("invalid prompts/get params: %v", err)}
	}
	result, err := s.prompts.Get(p.Name, p.Arguments)
	if err != nil {
		if errors.Is(err, prompts.ErrUnknownPrompt) {
			return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: fmt.Sprintf("unknown prompt: %q", p.Name)}
		}
		return nil, err
	}
	return result, nil
}

// handleResourcesList implements resources/list.
func (s *Server) handleResourcesList(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	return map[string]any{"resources": s.resources.List(sess.ProtocolVersion())}, nil
}

// handleResourcesRead implements resources/read. An unknown URI is an
// application-level {isError:true, contents:[]} result, not a JSON-RPC
// error.
func (s *Server) handleResourcesRead(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	var p protocol.ReadResourceParams
	if err := protocol.DecodeParams(params, &p); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: fmt.Sprintf("invalid resources/read params: %v", err)}
	}
	return s.resources.Read(ctx, p.URI), nil
}

// handleResourcesSubscribe implements resources/subscribe. Idempotent:
// subscribing twice is a no-op.
func (s *Server) handleResourcesSubscribe(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	var p protocol.SubscribeParams
	if err := protocol.DecodeParams(params, &p); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: fmt.Sprintf("invalid resources/subscribe params: %v", err)}
	}
	s.resources.Subscribe(p.URI, sess.ID())
	sess.Subscribe(p.URI)
	return map[string]any{}, nil
}

// handleResourcesUnsubscribe implements resources/unsubscribe.
// Idempotent. After this, no further
// notifications/resources/updated{uri} reaches this session even if
// NotifyResourceUpdated fires, since NotifyResourceUpdated consults only
// the registry's subscriber set.
func (s *Server) handleResourcesUnsubscribe(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	var p protocol.SubscribeParams
	if err := protocol.DecodeParams(params, &p); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: fmt.Sprintf("invalid resources/unsubscribe params: %v", err)}
	}
	s.resources.Unsubscribe(p.URI, sess.ID())
	sess.Unsubscribe(p.URI)
	return map[string]any{}, nil
}

// handleSetLogLevel implements logging/setLevel. An invalid level name
// is invalid-params.
func (s *Server) handleSetLogLevel(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
	var p protocol.SetLogLevelParams
	if err := protocol.DecodeParams(params, &p); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: fmt.Sprintf("invalid logging/setLevel params: %v", err)}
	}
	if !mcplog.SetLevel(sess, p.Level) {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: fmt.Sprintf("invalid log level: %q", p.Level)}
	}
	return map[string]any{}, nil
}
