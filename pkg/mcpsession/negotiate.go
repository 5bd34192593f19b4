package mcpsession

import "github.com/cmarsh/mcpgo/pkg/protocol"

// ServerIdentity is the static identity and capability shape a server
// presents on every initialize response, independent of any
// one session.
type ServerIdentity struct {
	Info         protocol.Implementation
	Capabilities protocol.ServerCapabilities
}

// BuildInitializeResult negotiates the protocol version requested by the
// client and assembles the initialize response. The
// server always succeeds initialize - an unsupported version falls back
// to the latest one this server speaks rather than failing the handshake.
func BuildInitializeResult(params protocol.InitializeParams, identity ServerIdentity) protocol.InitializeResult {
	negotiated := protocol.NegotiateVersion(params.ProtocolVersion)
	return protocol.InitializeResult{
		ProtocolVersion: negotiated,
		Capabilities:    identity.Capabilities,
		ServerInfo:      identity.Info,
	}
}
