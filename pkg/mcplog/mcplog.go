// Package mcplog implements the MCP protocol-level notifications/message
// capability, distinct from internal/logger's process self-diagnostics:
// this package carries protocol traffic a connected client asked to
// receive, not this process's own console output.
package mcplog

import (
	"github.com/cmarsh/mcpgo/pkg/mcpsession"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// Sink delivers a notifications/message payload to one session, normally
// mcpsession.Session.Reply wrapped around a protocol.NewNotification call.
type Sink func(sess *mcpsession.Session, params protocol.LogMessageParams) error

// Log delivers data at the given level to sess's reply channel iff the
// session's configured log-level threshold admits it. loggerName is
// optional and carried through verbatim.
func Log(sess *mcpsession.Session, level protocol.LogLevel, data any, loggerName string, sink Sink) error {
	if !level.Admits(sess.LogLevel()) {
		return nil
	}
	return sink(sess, protocol.LogMessageParams{
		Level:  string(level),
		Data:   data,
		Logger: loggerName,
	})
}

// SetLevel validates and applies a logging/setLevel request: an invalid
// level name yields a false report so the caller can raise invalid-params
// without mcplog knowing about JSON-RPC codes.
func SetLevel(sess *mcpsession.Session, levelName string) bool {
	level, ok := protocol.ParseLogLevel(levelName)
	if !ok {
		return false
	}
	sess.SetLogLevel(level)
	return true
}

// DefaultSink builds a Sink that delivers through a session's own Reply
// closure as a notifications/message notification - the shape every real
// server uses; tests can substitute a Sink that records calls instead.
func DefaultSink() Sink {
	return func(sess *mcpsession.Session, params protocol.LogMessageParams) error {
		return sess.Reply(protocol.NewNotification(string(protocol.NotifyMessage), params))
	}
}
