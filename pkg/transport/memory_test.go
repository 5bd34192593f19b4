package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/mcpgo/pkg/protocol"
)

func TestMemoryPairRoundTrip(t *testing.T) {
	server, client := NewMemoryPair()
	client.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = server.Serve(ctx, func(req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
			return protocol.NewResponse(map[string]any{"echo": req.Method}, req.ID)
		})
	}()

	require.NoError(t, client.Send(protocol.NewRequest("ping", nil, int64(1))))

	select {
	case resp := <-client.Inbound():
		assert.Equal(t, int64(1), resp.ID)
		assert.Nil(t, resp.Error)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestMemorySendBlocksWhenQueueFull(t *testing.T) {
	server, client := NewMemoryPair()
	for i := 0; i < memoryQueueDepth; i++ {
		require.NoError(t, client.Send(protocol.NewRequest("ping", nil, int64(i))))
	}

	sent := make(chan error, 1)
	go func() { sent <- client.Send(protocol.NewRequest("ping", nil, int64(memoryQueueDepth))) }()

	select {
	case <-sent:
		t.Fatal("send completed while queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	// draining one slot unblocks the pending send
	<-server.conn.c2s
	select {
	case err := <-sent:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("send stayed blocked after queue drained")
	}
}

func TestMemorySendFailsAfterClose(t *testing.T) {
	_, client := NewMemoryPair()
	require.NoError(t, client.Close())
	assert.Error(t, client.Send(protocol.NewRequest("ping", nil, int64(1))))
}

func TestMemoryPairServerPushNotification(t *testing.T) {
	server, client := NewMemoryPair()
	client.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = server.Serve(ctx, func(req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse { return nil })
	}()

	require.NoError(t, server.Send(protocol.NewNotification("notifications/tools/list_changed", nil)))

	select {
	case note := <-client.Notifications():
		assert.Equal(t, "notifications/tools/list_changed", note.Method)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}
