package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/mcpgo/pkg/client"
	"github.com/cmarsh/mcpgo/pkg/mcpsession"
	"github.com/cmarsh/mcpgo/pkg/protocol"
	"github.com/cmarsh/mcpgo/pkg/server"
	"github.com/cmarsh/mcpgo/pkg/transport"
)

// newConnectedPair assembles a real server (with a test echo tool that
// prefixes "Echo: ") wired to a client over an in-memory transport pair, and blocks until the
// handshake completes - the module's primary end-to-end harness.
func newConnectedPair(t *testing.T) (*server.Server, *client.Client) {
	t.Helper()
	srv := server.New("mcpgo-test", "0.0.0-test", server.WithLogging())
	require.NoError(t, srv.AddTool(protocol.Tool{
		Name:        "echo",
		Description: "Echoes the given message back, prefixed",
		InputSchema: map[string]any{"type": "object"},
	}, func(ctx context.Context, args map[string]any) (protocol.ToolCallResult, error) {
		msg, _ := args["message"].(string)
		return protocol.ToolCallResult{
			Content: []protocol.Content{protocol.TextContent("Echo: " + msg)},
			IsError: false,
		}, nil
	}))

	serverTr, clientTr := transport.NewMemoryPair()
	clientTr.Start()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx, serverTr)

	c := client.NewWithTransport(clientTr, client.Config{
		ClientInfo: protocol.Implementation{Name: "test-client", Version: "0.0.0"},
	})
	require.NoError(t, c.WaitForReady(2*time.Second))
	return srv, c
}

func TestHandshakeReachesReady(t *testing.T) {
	_, c := newConnectedPair(t)
	assert.Equal(t, protocol.LatestVersion, c.Session().ProtocolVersion())
}

func TestCallToolEcho(t *testing.T) {
	_, c := newConnectedPair(t)
	result, err := c.CallTool(context.Background(), "echo", map[string]any{"message": "hi"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "Echo: hi", result.Content[0].Text)
	assert.False(t, result.IsError)
}

func TestCallUnknownToolIsInvalidParams(t *testing.T) {
	_, c := newConnectedPair(t)
	_, err := c.CallTool(context.Background(), "nonexistent", map[string]any{})
	require.Error(t, err)
	rpcErr, ok := err.(*protocol.JsonRpcError)
	require.True(t, ok)
	assert.Equal(t, protocol.ErrInvalidParams, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "nonexistent")
}

func TestLogFilterDeliversOnlyAdmittedLevels(t *testing.T) {
	srv, c := newConnectedPair(t)
	require.NoError(t, c.SetLogLevel(context.Background(), protocol.LevelWarning))

	var received []protocol.LogLevel
	done := make(chan struct{})
	c.SubscribeLogMessages(func(p protocol.LogMessageParams) {
		received = append(received, protocol.LogLevel(p.Level))
		if len(received) == 2 {
			close(done)
		}
	})

	// server-side session is the only one registered; grab it.
	var sess *mcpsession.Session
	srv.EachSession(func(s *mcpsession.Session) { sess = s })
	require.NotNil(t, sess)

	for _, lvl := range []protocol.LogLevel{protocol.LevelDebug, protocol.LevelInfo, protocol.LevelNotice, protocol.LevelWarning, protocol.LevelError} {
		_ = srv.Log(sess, lvl, "message at "+string(lvl), "")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for filtered log messages")
	}
	assert.Equal(t, []protocol.LogLevel{protocol.LevelWarning, protocol.LevelError}, received)
}

func TestResourceSubscriptionLifecycle(t *testing.T) {
	srv, c := newConnectedPair(t)
	require.NoError(t, srv.AddResource(protocol.Resource{
		Name: "x", URI: "file:///x", MimeType: "text/plain",
	}, func(ctx context.Context, uri string) (protocol.ReadResourceResult, error) {
		return protocol.ReadResourceResult{Contents: []protocol.ResourceContents{{URI: uri, Text: "hello"}}}, nil
	}))

	updates := make(chan string, 8)
	c.SubscribeResourceUpdated(func(uri string) { updates <- uri })

	require.NoError(t, c.SubscribeResource(context.Background(), "file:///x"))
	time.Sleep(20 * time.Millisecond) // let the subscribe request land server-side

	for i := 0; i < 3; i++ {
		srv.NotifyResourceUpdated("file:///x")
	}

	for i := 0; i < 3; i++ {
		select {
		case uri := <-updates:
			assert.Equal(t, "file:///x", uri)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for update %d", i)
		}
	}

	require.NoError(t, c.UnsubscribeResource(context.Background(), "file:///x"))
	time.Sleep(20 * time.Millisecond)
	srv.NotifyResourceUpdated("file:///x")

	select {
	case uri := <-updates:
		t.Fatalf("unexpected update after unsubscribe: %s", uri)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRequestAfterCloseFailsWithTransportClosed(t *testing.T) {
	_, c := newConnectedPair(t)
	require.NoError(t, c.Close())
	_, err := c.ListTools(context.Background())
	assert.ErrorIs(t, err, client.ErrTransportClosed)
}
