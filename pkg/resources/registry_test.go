package resources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/mcpgo/pkg/protocol"
)

func TestReadUnknownURIIsApplicationError(t *testing.T) {
	r := New()
	result := r.Read(context.Background(), "file:///nope")
	assert.True(t, result.IsError)
	assert.Empty(t, result.Contents)
}

func TestAddAndReadResource(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(protocol.Resource{Name: "x", URI: "file:///x"}, func(ctx context.Context, uri string) (protocol.ReadResourceResult, error) {
		return protocol.ReadResourceResult{Contents: []protocol.ResourceContents{{URI: uri, Text: "hello"}}}, nil
	}))

	result := r.Read(context.Background(), "file:///x")
	assert.False(t, result.IsError)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "hello", result.Contents[0].Text)
}

func TestSubscribeUnsubscribeIdempotent(t *testing.T) {
	r := New()
	r.Subscribe("file:///x", "sess-1")
	r.Subscribe("file:///x", "sess-1")
	assert.Equal(t, []string{"sess-1"}, r.Subscribers("file:///x"))

	r.Unsubscribe("file:///x", "sess-1")
	r.Unsubscribe("file:///x", "sess-1")
	assert.Empty(t, r.Subscribers("file:///x"))
}

func TestRemoveClearsSubscribers(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(protocol.Resource{Name: "x", URI: "file:///x"}, func(ctx context.Context, uri string) (protocol.ReadResourceResult, error) {
		return protocol.ReadResourceResult{}, nil
	}))
	r.Subscribe("file:///x", "sess-1")
	assert.True(t, r.Remove("file:///x"))
	assert.Empty(t, r.Subscribers("file:///x"))
}
