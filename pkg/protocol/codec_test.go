package protocol

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRequestRoundTrip(t *testing.T) {
	req := NewRequest("tools/call", map[string]any{"name": "echo", "arguments": map[string]any{"message": "hi"}}, float64(7))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, req))
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))

	line, err := ReadLine(bufio.NewReader(&buf))
	require.NoError(t, err)

	got, err := DecodeRequest(line)
	require.NoError(t, err)
	assert.Equal(t, req.Method, got.Method)
	// ids widen through float64(7) -> int64(7) on decode.
	assert.Equal(t, int64(7), got.ID)
}

func TestEncodeDecodeNotificationRoundTrip(t *testing.T) {
	note := NewNotification("notifications/initialized", nil)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, note))

	line, err := ReadLine(bufio.NewReader(&buf))
	require.NoError(t, err)

	got, err := DecodeRequest(line)
	require.NoError(t, err)
	assert.True(t, got.IsNotification())
}

func TestDecodeResponseWidensIntegerID(t *testing.T) {
	resp := NewResponse(map[string]any{"ok": true}, float64(42))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, resp))

	line, err := ReadLine(bufio.NewReader(&buf))
	require.NoError(t, err)

	got, err := DecodeResponse(line)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
}

func TestNormalizeLeavesFractionalFloatsAlone(t *testing.T) {
	resp := NewResponse(map[string]any{"value": 3.5}, float64(1))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, resp))
	line, err := ReadLine(bufio.NewReader(&buf))
	require.NoError(t, err)

	got, err := DecodeResponse(line)
	require.NoError(t, err)
	result := got.Result.(map[string]any)
	assert.Equal(t, 3.5, result["value"])
}

func TestNormalizeMaterializesArrays(t *testing.T) {
	resp := NewResponse(map[string]any{"items": []any{float64(1), float64(2), float64(3)}}, float64(1))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, resp))
	line, err := ReadLine(bufio.NewReader(&buf))
	require.NoError(t, err)

	got, err := DecodeResponse(line)
	require.NoError(t, err)
	result := got.Result.(map[string]any)
	items := result["items"].([]any)
	require.Len(t, items, 3)
	assert.Equal(t, int64(1), items[0])
	assert.Equal(t, int64(2), items[1])
	assert.Equal(t, int64(3), items[2])
}

func TestReadLineStripsCRLF(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("{\"a\":1}\r\n"))
	line, err := ReadLine(r)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(line))
}

func TestValidateEnvelope(t *testing.T) {
	valid := &JsonRpcRequest{JsonRPC: "2.0", Method: "ping"}
	assert.NoError(t, ValidateEnvelope(valid))

	wrongVersion := &JsonRpcRequest{JsonRPC: "1.0", Method: "ping"}
	assert.Error(t, ValidateEnvelope(wrongVersion))

	noMethod := &JsonRpcRequest{JsonRPC: "2.0"}
	assert.Error(t, ValidateEnvelope(noMethod))
}

func TestIsNotification(t *testing.T) {
	assert.True(t, NewNotification("x", nil).IsNotification())
	assert.False(t, NewRequest("x", nil, float64(1)).IsNotification())
}
