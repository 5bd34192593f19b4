// Package transport implements the pluggable transport abstraction:
// stdio, HTTP/SSE, and an in-memory test double, all
// conforming to one server-side and one client-side interface so the
// dispatcher and client core never know which substrate they're running
// over.
package transport

import (
	"context"

	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// HandleFunc processes one inbound request and returns the response to
// write back. A nil return means "no response" - either the request was a
// notification, or the caller chose to reply asynchronously via Transport.Send.
type HandleFunc func(req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse

// Transport is the server side of one session's connection: Serve blocks,
// deframing one request at a time and invoking handle, writing back
// whatever handle returns. Exactly one Transport instance exists per
// session.
type Transport interface {
	// Serve blocks until ctx is cancelled or the connection closes.
	Serve(ctx context.Context, handle HandleFunc) error
	// Send writes a server-initiated notification (or an out-of-band
	// response) directly to this connection.
	Send(v any) error
	// Close tears down the underlying connection.
	Close() error
	// Alive reports whether the connection is still usable.
	Alive() bool
}

// ClientTransport is the client side of a connection: it moves framed
// bytes, nothing more. Request/response correlation lives one layer
// up, in pkg/client.
type ClientTransport interface {
	// Send writes req to the connection.
	Send(req *protocol.JsonRpcRequest) error
	// Inbound returns the channel of decoded responses arriving from the
	// server; notifications arrive on Notifications instead. The transport's single
	// reader goroutine is the sole writer to this channel and the sole
	// consumer of the underlying stream.
	Inbound() <-chan *protocol.JsonRpcResponse
	// Notifications returns the channel of inbound server-to-client
	// notifications (requests with no id).
	Notifications() <-chan *protocol.JsonRpcRequest
	// Close tears down the connection; after Close, Inbound and
	// Notifications are closed too.
	Close() error
	// Alive reports whether the connection is still usable.
	Alive() bool
}
