// Package dispatcher implements the handler table and bounded worker
// pool: every inbound request is validated, routed to its
// handler on a fixed-size pool, bounded by a per-request timeout, and its
// result or panic converted to a JSON-RPC response.
package dispatcher

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/mcpsession"
	"github.com/cmarsh/mcpgo/pkg/metrics"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// HandlerFunc handles one method's params for a given session, returning
// the JSON-RPC result value or an error. Returning a plain error produces
// an internal-error response; returning a
// *protocol.JsonRpcError instead preserves its code, e.g. invalid-params
// for an unknown tool name.
type HandlerFunc func(ctx context.Context, sess *mcpsession.Session, params any) (any, error)

// DefaultPoolSize is 2x the number of CPUs.
func DefaultPoolSize() int {
	return 2 * runtime.NumCPU()
}

// DefaultTimeout is the per-request wall-clock deadline.
const DefaultTimeout = 30 * time.Second

// Dispatcher routes JSON-RPC requests to registered handlers on a bounded
// worker pool.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	sem      chan struct{}
	timeout  time.Duration
}

// New constructs a Dispatcher with the given worker-pool size and
// per-request timeout. Pass 0 for either to use the defaults.
func New(poolSize int, timeout time.Duration) *Dispatcher {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		sem:      make(chan struct{}, poolSize),
		timeout:  timeout,
	}
}

// Handle registers a handler for method. Re-registering a method replaces
// its handler.
func (d *Dispatcher) Handle(method string, h HandlerFunc) {
	d.handlers[method] = h
}

// InFlight reports how many handlers currently occupy worker-pool slots.
func (d *Dispatcher) InFlight() int {
	return len(d.sem)
}

// Dispatch runs req against its registered handler and returns the
// response to write back (nil for a notification that completed without
// error - notifications never get a response). Envelope validation,
// method lookup, bounded-pool submission, timeout, panic recovery, and
// overload handling all happen here.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *mcpsession.Session, req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	if err := protocol.ValidateEnvelope(req); err != nil {
		if req.IsNotification() {
			logger.Warn("dropping malformed notification", err)
			return nil
		}
		return protocol.NewErrorResponse(protocol.ErrInvalidRequest, err.Error(), nil, req.ID)
	}

	// A session mid-handshake may only issue initialize, the initialized
	// notification, or ping; everything else is rejected until it reaches
	// Ready.
	if sess.State() == mcpsession.Initializing && !allowedDuringHandshake(req.Method) {
		if req.IsNotification() {
			logger.Warn("dropping notification sent before handshake completed", req.Method)
			return nil
		}
		return protocol.NewErrorResponse(protocol.ErrInvalidRequest,
			fmt.Sprintf("session is initializing: %s not allowed until the handshake completes", req.Method), nil, req.ID)
	}

	h, ok := d.handlers[req.Method]
	if !ok {
		if req.IsNotification() {
			return nil
		}
		return protocol.NewErrorResponse(protocol.ErrMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil, req.ID)
	}

	select {
	case d.sem <- struct{}{}:
	default:
		metrics.RecordOverload(req.Method)
		if req.IsNotification() {
			logger.Warn("dropping notification", req.Method, "- pool saturated")
			return nil
		}
		return protocol.NewErrorResponse(protocol.ErrOverloaded, "server overloaded", nil, req.ID)
	}
	defer func() { <-d.sem }()
	metrics.RecordRequest(req.Method)

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result, err := d.run(runCtx, sess, h, req.Params)
	metrics.ObserveHandlerDuration(req.Method, time.Since(start))

	if req.IsNotification() {
		if err != nil {
			metrics.RecordHandlerError(req.Method)
			logger.Error("notification handler failed", req.Method, err)
		}
		return nil
	}

	if err != nil {
		metrics.RecordHandlerError(req.Method)
		if rpcErr, ok := err.(*protocol.JsonRpcError); ok {
			return protocol.NewErrorResponse(rpcErr.Code, rpcErr.Message, rpcErr.Data, req.ID)
		}
		// The failure detail rides in error.data; message stays generic so
		// handler internals never leak into the one field every client
		// surfaces.
		return protocol.NewErrorResponse(protocol.ErrInternal, "internal error", err.Error(), req.ID)
	}
	return protocol.NewResponse(result, req.ID)
}

// allowedDuringHandshake lists the methods a session may issue before the
// initialize handshake completes: initialize itself, the initialized
// notification that finishes it, and ping, since liveness checks must not
// require a completed handshake.
func allowedDuringHandshake(method string) bool {
	switch method {
	case string(protocol.MethodInitialize),
		string(protocol.MethodInitialized),
		string(protocol.MethodPing):
		return true
	}
	return false
}

// run executes h on a new goroutine, turning a panic into an error
// and honoring runCtx's deadline: if the deadline fires first, run returns
// a timeout error and the goroutine it spawned is abandoned.
func (d *Dispatcher) run(runCtx context.Context, sess *mcpsession.Session, h HandlerFunc, params any) (any, error) {
	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic in handler: %v", r)}
			}
		}()
		result, err := h(runCtx, sess, params)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-runCtx.Done():
		return nil, fmt.Errorf("request-timeout: %w", runCtx.Err())
	}
}
