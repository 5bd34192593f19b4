package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/mcpgo/pkg/config"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

func TestNewFromConfigAppliesServerIdentityAndTuning(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Name = "configured-server"
	cfg.Server.Version = "9.9.9"
	cfg.Server.Instructions = "say hello"
	cfg.DefaultLogLevel = "debug"
	cfg.Dispatcher.PoolSize = 3
	cfg.Dispatcher.Timeout = config.Duration(5 * time.Second)
	cfg.EnableLogging = true

	s := NewFromConfig(cfg)

	assert.Equal(t, "configured-server", s.identity.Info.Name)
	assert.Equal(t, "9.9.9", s.identity.Info.Version)
	assert.Equal(t, "say hello", s.instructions)
	assert.Equal(t, protocol.LevelDebug, s.defaultLogLevel)
	assert.NotNil(t, s.identity.Capabilities.Logging)
}

func TestNewFromConfigRejectsUnknownLogLevelFallsBackToDefault(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultLogLevel = "not-a-level"

	s := NewFromConfig(cfg)

	assert.Equal(t, protocol.DefaultLogLevel, s.defaultLogLevel)
}

func TestWithConfigComposesWithOtherOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Instructions = "from config"

	s := New("explicit-name", "1.0.0", WithConfig(cfg), WithInstructions("overridden"))

	require.Equal(t, "explicit-name", s.identity.Info.Name)
	assert.Equal(t, "overridden", s.instructions)
}
