package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/mcpgo/pkg/protocol"
)

func TestSamplePromptsRegistered(t *testing.T) {
	r := New()
	assert.Equal(t, 4, r.Len())
	listed := r.List(protocol.LatestVersion)
	assert.Len(t, listed, 4)
}

func TestGetSubstitutesKnownArgsLeavesMissingUntouched(t *testing.T) {
	r := New()
	result, err := r.Get("explain-concept", map[string]string{"concept": "TCP"})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	text := result.Messages[0].Content.Text
	assert.Contains(t, text, "explain TCP in simple terms")
	assert.Contains(t, text, "{{audience}}") // missing arg left untouched
}

func TestGetUnknownPrompt(t *testing.T) {
	r := New()
	_, err := r.Get("nope", nil)
	assert.ErrorIs(t, err, ErrUnknownPrompt)
}

func TestRemoveFiresOnChange(t *testing.T) {
	r := New()
	calls := 0
	r.OnChange(func() { calls++ })
	assert.True(t, r.Remove("sample"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 3, r.Len())
}
