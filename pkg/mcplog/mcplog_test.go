package mcplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/mcpgo/pkg/mcpsession"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

func TestLogFiltersBySessionThreshold(t *testing.T) {
	sess := mcpsession.New(func(v any) error { return nil })
	require.True(t, SetLevel(sess, "warning"))

	var delivered []protocol.LogLevel
	sink := func(s *mcpsession.Session, params protocol.LogMessageParams) error {
		lvl, _ := protocol.ParseLogLevel(params.Level)
		delivered = append(delivered, lvl)
		return nil
	}

	for _, lvl := range []protocol.LogLevel{
		protocol.LevelDebug, protocol.LevelInfo, protocol.LevelNotice,
		protocol.LevelWarning, protocol.LevelError,
	} {
		require.NoError(t, Log(sess, lvl, "msg", "", sink))
	}

	assert.Equal(t, []protocol.LogLevel{protocol.LevelWarning, protocol.LevelError}, delivered)
}

func TestSetLevelRejectsUnknownLevel(t *testing.T) {
	sess := mcpsession.New(func(v any) error { return nil })
	assert.False(t, SetLevel(sess, "not-a-level"))
	assert.Equal(t, protocol.DefaultLogLevel, sess.LogLevel())
}
