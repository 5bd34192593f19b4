package mcpsession

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/mcpgo/pkg/protocol"
)

func TestStateTransitionDiagram(t *testing.T) {
	s := New(func(v any) error { return nil })
	assert.Equal(t, Disconnected, s.State())

	require.NoError(t, s.Transition(Initializing, nil))
	require.NoError(t, s.Transition(Ready, nil))
	require.NoError(t, s.Transition(Terminated, nil))

	assert.Equal(t, Terminated, s.State())
}

func TestInvalidTransitionRejected(t *testing.T) {
	s := New(func(v any) error { return nil })
	err := s.Transition(Ready, nil)
	assert.ErrorContains(t, err, "invalid-state-transition")
	assert.Equal(t, Disconnected, s.State())
}

func TestErrorTransitionRecordsErrorInfo(t *testing.T) {
	s := New(func(v any) error { return nil })
	require.NoError(t, s.Transition(Initializing, nil))

	boom := errors.New("boom")
	require.NoError(t, s.Transition(Error, boom))
	assert.ErrorIs(t, s.ErrorInfo(), boom)

	require.NoError(t, s.Transition(Disconnected, nil))
	assert.Equal(t, Disconnected, s.State())
}

func TestManagerNotifyInitializedOnlyReachesReadySessions(t *testing.T) {
	m := NewManager()

	var delivered []string
	notInit := New(func(v any) error { delivered = append(delivered, "not-init"); return nil })
	m.Add(notInit)

	ready := New(func(v any) error { delivered = append(delivered, "ready"); return nil })
	require.NoError(t, ready.Transition(Initializing, nil))
	require.NoError(t, ready.Transition(Ready, nil))
	m.Add(ready)

	m.NotifyInitialized("ping")
	assert.Equal(t, []string{"ready"}, delivered)
}

func TestBuildInitializeResultFallsBackOnUnknownVersion(t *testing.T) {
	identity := ServerIdentity{
		Info:         protocol.Implementation{Name: "mcpgo", Version: "0.1"},
		Capabilities: protocol.ServerCapabilities{Tools: &protocol.ListChangedCapability{ListChanged: true}},
	}
	result := BuildInitializeResult(protocol.InitializeParams{ProtocolVersion: "1999-01-01"}, identity)
	assert.Equal(t, protocol.LatestVersion, result.ProtocolVersion)

	result2 := BuildInitializeResult(protocol.InitializeParams{ProtocolVersion: protocol.Version20241105}, identity)
	assert.Equal(t, protocol.Version20241105, result2.ProtocolVersion)
}
