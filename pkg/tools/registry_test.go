package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/mcpgo/pkg/protocol"
)

func TestRegistryAddListCall(t *testing.T) {
	r := New()
	require.NoError(t, RegisterDefaults(r))
	assert.Equal(t, 3, r.Len())

	listed := r.List(protocol.LatestVersion)
	assert.Len(t, listed, 3)
	assert.Equal(t, "calculator", listed[0].Name) // alphabetic snapshot order

	result, err := r.Call(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "hi", result.Content[0].Text)
	assert.False(t, result.IsError)
}

func TestRegistryCallUnknownTool(t *testing.T) {
	r := New()
	_, err := r.Call(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistryListStripsVersionedFields(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(protocol.Tool{
		Name:        "t",
		Description: "d",
		InputSchema: map[string]any{"type": "object"},
		Title:       "T",
		Annotations: map[string]any{"readOnlyHint": true},
	}, func(ctx context.Context, args map[string]any) (protocol.ToolCallResult, error) {
		return protocol.ToolCallResult{}, nil
	}))

	old := r.List(protocol.Version20241105)
	require.Len(t, old, 1)
	assert.Empty(t, old[0].Title)
	assert.Nil(t, old[0].Annotations)

	latest := r.List(protocol.Version20250618)
	assert.Equal(t, "T", latest[0].Title)
	assert.NotNil(t, latest[0].Annotations)
}

func TestRegistryOnChangeFiresOnMutation(t *testing.T) {
	r := New()
	calls := 0
	r.OnChange(func() { calls++ })

	require.NoError(t, r.Add(EchoTool(), HandleEchoTool))
	assert.Equal(t, 1, calls)

	assert.True(t, r.Remove("echo"))
	assert.Equal(t, 2, calls)

	assert.False(t, r.Remove("echo"))
	assert.Equal(t, 2, calls) // no-op remove does not notify
}

func TestCalculatorDivisionByZero(t *testing.T) {
	result, err := HandleCalculatorTool(context.Background(), map[string]any{"expression": "1 / 0"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
