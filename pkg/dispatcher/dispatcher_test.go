package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/mcpgo/pkg/mcpsession"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

func newSession() *mcpsession.Session {
	return mcpsession.New(func(v any) error { return nil })
}

func TestDispatchMethodNotFound(t *testing.T) {
	d := New(2, time.Second)
	resp := d.Dispatch(context.Background(), newSession(), protocol.NewRequest("nope", nil, float64(1)))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrMethodNotFound, resp.Error.Code)
}

func TestDispatchInvalidEnvelope(t *testing.T) {
	d := New(2, time.Second)
	req := &protocol.JsonRpcRequest{JsonRPC: "1.0", Method: "ping", ID: float64(1)}
	resp := d.Dispatch(context.Background(), newSession(), req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrInvalidRequest, resp.Error.Code)
}

func TestDispatchSuccess(t *testing.T) {
	d := New(2, time.Second)
	d.Handle("ping", func(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
		return map[string]any{}, nil
	})
	resp := d.Dispatch(context.Background(), newSession(), protocol.NewRequest("ping", nil, float64(1)))
	require.Nil(t, resp.Error)
	assert.NotNil(t, resp.Result)
}

func TestDispatchNotificationProducesNoResponse(t *testing.T) {
	d := New(2, time.Second)
	called := false
	d.Handle("notifications/initialized", func(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
		called = true
		return nil, nil
	})
	resp := d.Dispatch(context.Background(), newSession(), protocol.NewNotification("notifications/initialized", nil))
	assert.Nil(t, resp)
	assert.True(t, called)
}

func TestDispatchPanicRecovered(t *testing.T) {
	d := New(2, time.Second)
	d.Handle("boom", func(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
		panic("kaboom")
	})
	resp := d.Dispatch(context.Background(), newSession(), protocol.NewRequest("boom", nil, float64(1)))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrInternal, resp.Error.Code)
	assert.Equal(t, "internal error", resp.Error.Message)
	assert.Contains(t, resp.Error.Data, "kaboom")
}

func TestDispatchHandlerErrorDetailRidesInData(t *testing.T) {
	d := New(2, time.Second)
	d.Handle("fail", func(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
		return nil, context.DeadlineExceeded
	})
	resp := d.Dispatch(context.Background(), newSession(), protocol.NewRequest("fail", nil, float64(1)))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrInternal, resp.Error.Code)
	assert.Equal(t, "internal error", resp.Error.Message)
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Error.Data)
}

func TestDispatchRejectsNonInitializeMethodsMidHandshake(t *testing.T) {
	d := New(2, time.Second)
	served := false
	d.Handle("tools/list", func(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
		served = true
		return map[string]any{}, nil
	})
	d.Handle("ping", func(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
		return map[string]any{}, nil
	})

	sess := newSession()
	require.NoError(t, sess.Transition(mcpsession.Initializing, nil))

	resp := d.Dispatch(context.Background(), sess, protocol.NewRequest("tools/list", nil, float64(1)))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrInvalidRequest, resp.Error.Code)
	assert.False(t, served)

	// ping stays usable mid-handshake
	resp = d.Dispatch(context.Background(), sess, protocol.NewRequest("ping", nil, float64(2)))
	require.Nil(t, resp.Error)

	require.NoError(t, sess.Transition(mcpsession.Ready, nil))
	resp = d.Dispatch(context.Background(), sess, protocol.NewRequest("tools/list", nil, float64(3)))
	require.Nil(t, resp.Error)
	assert.True(t, served)
}

func TestDispatchTimeout(t *testing.T) {
	d := New(2, 20*time.Millisecond)
	d.Handle("slow", func(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
		select {
		case <-time.After(time.Second):
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	resp := d.Dispatch(context.Background(), newSession(), protocol.NewRequest("slow", nil, float64(1)))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrInternal, resp.Error.Code)
}

func TestDispatchOverloaded(t *testing.T) {
	d := New(1, time.Second)
	release := make(chan struct{})
	d.Handle("hold", func(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
		<-release
		return "ok", nil
	})
	d.Handle("other", func(ctx context.Context, sess *mcpsession.Session, params any) (any, error) {
		return "ok", nil
	})

	resultCh := make(chan *protocol.JsonRpcResponse, 1)
	go func() {
		resultCh <- d.Dispatch(context.Background(), newSession(), protocol.NewRequest("hold", nil, float64(1)))
	}()

	// give the first dispatch time to grab the pool's only slot
	time.Sleep(50 * time.Millisecond)

	resp := d.Dispatch(context.Background(), newSession(), protocol.NewRequest("other", nil, float64(2)))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrOverloaded, resp.Error.Code)

	close(release)
	<-resultCh
}
