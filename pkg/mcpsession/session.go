// Package mcpsession implements the session manager:
// the per-connection session record, its lifecycle state machine, and
// version negotiation.
package mcpsession

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// State is a session's position in the lifecycle state machine.
type State string

const (
	Disconnected State = "disconnected"
	Initializing State = "initializing"
	Ready        State = "ready"
	Error        State = "error"
	Terminated   State = "terminated"
)

// allowedTransitions is the session lifecycle diagram. Any transition
// not listed here fails with an invalid-state-transition error.
var allowedTransitions = map[State]map[State]bool{
	Disconnected: {Initializing: true},
	Initializing: {Ready: true, Error: true},
	Ready:        {Error: true, Terminated: true},
	Error:        {Disconnected: true},
}

// ReplyFunc writes a response or notification back through the session's
// owning transport.
type ReplyFunc func(v any) error

// Session is a per-connection record: exactly one transport connection
// owns it, and the server's Manager co-owns it for notification fan-out.
type Session struct {
	mu sync.Mutex

	id                 string
	state              State
	protocolVersion    string
	clientInfo         protocol.Implementation
	clientCapabilities protocol.ClientCapabilities
	serverInfo         protocol.Implementation
	serverCapabilities protocol.ServerCapabilities
	logLevel           protocol.LogLevel
	reply              ReplyFunc
	subscriptions      map[string]bool
	errorInfo          error
}

// New creates a session in the Disconnected state, with a fresh uuid
// session-id and the default log-level (error).
func New(reply ReplyFunc) *Session {
	return NewWithID(uuid.NewString(), reply)
}

// NewWithID creates a session using a caller-supplied id, for transports
// (HTTP/SSE) that mint their own session identifier ahead of the
// session record itself.
func NewWithID(id string, reply ReplyFunc) *Session {
	return &Session{
		id:            id,
		state:         Disconnected,
		logLevel:      protocol.DefaultLogLevel,
		reply:         reply,
		subscriptions: make(map[string]bool),
	}
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the session to next, enforcing allowedTransitions.
// On an Error transition, err is recorded as the session's error-info.
func (s *Session) Transition(next State, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !allowedTransitions[s.state][next] {
		return fmt.Errorf("invalid-state-transition: %s -> %s", s.state, next)
	}
	s.state = next
	if next == Error {
		s.errorInfo = err
	}
	return nil
}

// ErrorInfo returns the error recorded on the session's last transition
// into Error, or nil.
func (s *Session) ErrorInfo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorInfo
}

// ProtocolVersion returns the negotiated protocol version, empty until
// initialize completes.
func (s *Session) ProtocolVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocolVersion
}

// SetInitializeInfo records the negotiated version and both sides'
// identity/capabilities, captured at initialize time.
func (s *Session) SetInitializeInfo(version string, clientInfo protocol.Implementation, clientCaps protocol.ClientCapabilities, serverInfo protocol.Implementation, serverCaps protocol.ServerCapabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocolVersion = version
	s.clientInfo = clientInfo
	s.clientCapabilities = clientCaps
	s.serverInfo = serverInfo
	s.serverCapabilities = serverCaps
}

// ClientInfo returns the client identity captured at initialize time.
func (s *Session) ClientInfo() protocol.Implementation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientInfo
}

// LogLevel returns the session's current logging threshold.
func (s *Session) LogLevel() protocol.LogLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logLevel
}

// SetLogLevel updates the session's logging threshold (logging/setLevel).
func (s *Session) SetLogLevel(l protocol.LogLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLevel = l
}

// Reply delivers v (a response or notification) through the owning
// transport.
func (s *Session) Reply(v any) error {
	s.mu.Lock()
	reply := s.reply
	s.mu.Unlock()
	if reply == nil {
		return fmt.Errorf("session %s: no reply function bound", s.id)
	}
	return reply(v)
}

// Subscribe adds uri to this session's resource-subscription set.
// Idempotent.
func (s *Session) Subscribe(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[uri] = true
}

// Unsubscribe removes uri from this session's resource-subscription set.
// Idempotent.
func (s *Session) Unsubscribe(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, uri)
}

// IsSubscribed reports whether this session is currently subscribed to
// uri.
func (s *Session) IsSubscribed(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriptions[uri]
}

// IsInitialized reports whether the session has completed the handshake
// and reached Ready - the precondition for the list_changed and
// resources/updated fan-out.
func (s *Session) IsInitialized() bool {
	return s.State() == Ready
}
