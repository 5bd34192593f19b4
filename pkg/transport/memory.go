package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// memoryQueueDepth bounds each direction of an in-memory transport pair.
const memoryQueueDepth = 64

// memoryConn is the state both halves of an in-memory pair share: the two
// bounded queues, one alive flag, and a done channel closed exactly once
// by whichever half closes first.
type memoryConn struct {
	c2s   chan *protocol.JsonRpcRequest
	s2c   chan any
	alive atomic.Bool
	done  chan struct{}
	once  sync.Once
}

func (c *memoryConn) close() {
	c.once.Do(func() {
		c.alive.Store(false)
		close(c.done)
	})
}

// NewMemoryPair builds a connected client/server transport pair sharing
// two bounded queues and one alive flag. Nothing is serialized: requests,
// responses and notifications cross as *protocol.JsonRpcRequest /
// *protocol.JsonRpcResponse values. It's the module's primary end-to-end
// test harness.
func NewMemoryPair() (*MemoryServerTransport, *MemoryClientTransport) {
	conn := &memoryConn{
		c2s:  make(chan *protocol.JsonRpcRequest, memoryQueueDepth),
		s2c:  make(chan any, memoryQueueDepth),
		done: make(chan struct{}),
	}
	conn.alive.Store(true)

	server := &MemoryServerTransport{conn: conn}
	client := &MemoryClientTransport{
		conn:          conn,
		inbound:       make(chan *protocol.JsonRpcResponse, memoryQueueDepth),
		notifications: make(chan *protocol.JsonRpcRequest, memoryQueueDepth),
	}
	return server, client
}

// MemoryServerTransport is the server half of an in-memory pair.
type MemoryServerTransport struct {
	conn *memoryConn
}

func (t *MemoryServerTransport) Serve(ctx context.Context, handle HandleFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.conn.done:
			return nil
		case req := <-t.conn.c2s:
			if resp := handle(req); resp != nil {
				if err := t.Send(resp); err != nil {
					return err
				}
			}
		}
	}
}

// Send blocks when the server-to-client queue is full, the way a real
// transport's write blocks on I/O flow control; it only fails once the
// pair is closed.
func (t *MemoryServerTransport) Send(v any) error {
	if !t.conn.alive.Load() {
		return fmt.Errorf("memory transport closed")
	}
	select {
	case t.conn.s2c <- v:
		return nil
	case <-t.conn.done:
		return fmt.Errorf("memory transport closed")
	}
}

func (t *MemoryServerTransport) Close() error {
	t.conn.close()
	return nil
}

func (t *MemoryServerTransport) Alive() bool { return t.conn.alive.Load() }

// MemoryClientTransport is the client half of an in-memory pair. Its
// single reader goroutine (started by Start) is the sole consumer of
// s2c.
type MemoryClientTransport struct {
	conn          *memoryConn
	inbound       chan *protocol.JsonRpcResponse
	notifications chan *protocol.JsonRpcRequest
	startOnce     sync.Once
}

// Start launches the reader goroutine that demultiplexes s2c into
// Inbound() (responses) and Notifications() (server-to-client
// notifications). Must be called exactly once before use.
func (t *MemoryClientTransport) Start() {
	t.startOnce.Do(func() {
		go func() {
			defer close(t.inbound)
			defer close(t.notifications)
			for {
				select {
				case <-t.conn.done:
					return
				case v := <-t.conn.s2c:
					switch m := v.(type) {
					case *protocol.JsonRpcResponse:
						t.inbound <- m
					case *protocol.JsonRpcRequest:
						t.notifications <- m
					}
				}
			}
		}()
	})
}

// Send blocks when the client-to-server queue is full; it only fails once
// the pair is closed.
func (t *MemoryClientTransport) Send(req *protocol.JsonRpcRequest) error {
	if !t.conn.alive.Load() {
		return fmt.Errorf("memory transport closed")
	}
	select {
	case t.conn.c2s <- req:
		return nil
	case <-t.conn.done:
		return fmt.Errorf("memory transport closed")
	}
}

func (t *MemoryClientTransport) Inbound() <-chan *protocol.JsonRpcResponse { return t.inbound }

func (t *MemoryClientTransport) Notifications() <-chan *protocol.JsonRpcRequest {
	return t.notifications
}

func (t *MemoryClientTransport) Close() error {
	t.conn.close()
	return nil
}

func (t *MemoryClientTransport) Alive() bool { return t.conn.alive.Load() }
