// Package client implements the client-side correlation core and the
// typed MCP client API built on top of it. Each in-flight request is a
// pending entry keyed by id; a single reader goroutine resolves entries
// as responses arrive.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/protocol"
	"github.com/cmarsh/mcpgo/pkg/transport"
)

// ErrTransportClosed is the error every pending request resolves with
// when the underlying transport closes out from under it.
var ErrTransportClosed = errors.New("transport-closed")

// ErrRequestTimeout is the error a pending request resolves with when it
// outlives its timeout.
var ErrRequestTimeout = errors.New("request-timeout")

// DefaultRequestTimeout is used when a caller doesn't specify one.
const DefaultRequestTimeout = 30 * time.Second

// pending is one in-flight request's resolution point. Exactly one of the
// reader goroutine (Correlator.readLoop) or the scheduled timeout task
// resolves it; the other becomes a no-op via sync.Once.
type pending struct {
	once   sync.Once
	result chan *protocol.JsonRpcResponse
	err    error
}

func newPending() *pending {
	return &pending{result: make(chan *protocol.JsonRpcResponse, 1)}
}

func (p *pending) resolve(resp *protocol.JsonRpcResponse) {
	p.once.Do(func() { p.result <- resp })
}

// fail resolves p with a local error (timeout, transport close) rather
// than a server response; SendRequest returns err itself.
func (p *pending) fail(err error) {
	p.once.Do(func() {
		p.err = err
		p.result <- nil
	})
}

// NotificationHandler processes one inbound server-to-client notification.
// Handlers run on the transport's reader goroutine and must not block.
type NotificationHandler func(params any)

// Correlator owns request-id generation, the pending-request table, and
// per-request timeout scheduling for one client connection. It also
// demultiplexes inbound notifications to registered, method-keyed
// handlers.
type Correlator struct {
	tr      transport.ClientTransport
	counter int64

	mu      sync.Mutex
	pending map[int64]*pending
	closed  bool

	handlersMu     sync.RWMutex
	handlers       map[string]NotificationHandler
	defaultHandler NotificationHandler

	done chan struct{}
}

// NewCorrelator wraps tr and starts the single reader goroutine that
// drains tr.Inbound()/tr.Notifications() - the sole consumer of both
// streams; a second consumer on the same inbound stream would steal
// messages from it.
func NewCorrelator(tr transport.ClientTransport) *Correlator {
	c := &Correlator{
		tr:       tr,
		pending:  make(map[int64]*pending),
		handlers: make(map[string]NotificationHandler),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Correlator) readLoop() {
	defer close(c.done)
	inbound := c.tr.Inbound()
	notifications := c.tr.Notifications()
	for inbound != nil || notifications != nil {
		select {
		case resp, ok := <-inbound:
			if !ok {
				inbound = nil
				continue
			}
			c.resolveResponse(resp)
		case note, ok := <-notifications:
			if !ok {
				notifications = nil
				continue
			}
			c.dispatchNotification(note)
		}
	}
	c.cancelAllPending(ErrTransportClosed)
}

func (c *Correlator) resolveResponse(resp *protocol.JsonRpcResponse) {
	id, ok := asInt64(resp.ID)
	if !ok {
		logger.Warn("client: response with non-integer id dropped", resp.ID)
		return
	}
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		logger.Warn("client: orphan response dropped, no pending request for id", id)
		return
	}
	p.resolve(resp)
}

func (c *Correlator) dispatchNotification(note *protocol.JsonRpcRequest) {
	c.handlersMu.RLock()
	h, ok := c.handlers[note.Method]
	def := c.defaultHandler
	c.handlersMu.RUnlock()
	switch {
	case ok:
		h(note.Params)
	case def != nil:
		def(note.Params)
	}
}

// OnNotification registers the handler invoked for every inbound
// notification of the given method, replacing any previously registered
// handler for that method.
func (c *Correlator) OnNotification(method string, h NotificationHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[method] = h
}

// OnDefaultNotification registers the handler invoked for a notification
// whose method has no specific handler registered.
func (c *Correlator) OnDefaultNotification(h NotificationHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.defaultHandler = h
}

// SendRequest allocates an id, registers a pending future, writes the
// request, schedules its timeout, and blocks until one of {response,
// timeout, transport close, ctx cancellation} resolves it.
func (c *Correlator) SendRequest(ctx context.Context, method string, params any, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	id := atomic.AddInt64(&c.counter, 1)
	p := newPending()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrTransportClosed
	}
	c.pending[id] = p
	c.mu.Unlock()

	req := protocol.NewRequest(method, params, id)
	if err := c.tr.Send(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("client: send %s: %w", method, err)
	}

	timer := time.AfterFunc(timeout, func() {
		c.mu.Lock()
		_, stillPending := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()
		if stillPending {
			p.fail(ErrRequestTimeout)
		}
	})
	defer timer.Stop()

	select {
	case resp := <-p.result:
		if resp == nil {
			return nil, p.err
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// SendNotification writes a fire-and-forget notification; it never
// produces a response.
func (c *Correlator) SendNotification(method string, params any) error {
	return c.tr.Send(protocol.NewNotification(method, params))
}

// Close tears down the transport and resolves every pending request with
// ErrTransportClosed.
func (c *Correlator) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	err := c.tr.Close()
	<-c.done
	return err
}

func (c *Correlator) cancelAllPending(cause error) {
	c.mu.Lock()
	oldPending := c.pending
	c.pending = make(map[int64]*pending)
	c.mu.Unlock()
	for _, p := range oldPending {
		p.fail(cause)
	}
}

// asInt64 widens whatever numeric type a response id decoded to (the
// in-memory transport carries a live int64; the wire-decoded path already
// normalized it, per pkg/protocol/codec.go) into a lookup key.
func asInt64(id any) (int64, bool) {
	switch v := id.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
