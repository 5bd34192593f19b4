package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cmarsh/mcpgo/pkg/protocol"
)

func TestCheckOriginAllowsEmptyAndListed(t *testing.T) {
	tr := NewHTTPServerTransport(":0", func(origin string) bool { return origin == "https://good.example" })

	r := httptest.NewRequest(http.MethodGet, "/sse", nil)
	w := httptest.NewRecorder()
	assert.True(t, tr.checkOrigin(w, r))

	r = httptest.NewRequest(http.MethodGet, "/sse", nil)
	r.Header.Set("Origin", "https://good.example")
	w = httptest.NewRecorder()
	assert.True(t, tr.checkOrigin(w, r))

	r = httptest.NewRequest(http.MethodGet, "/sse", nil)
	r.Header.Set("Origin", "https://bad.example")
	w = httptest.NewRecorder()
	assert.False(t, tr.checkOrigin(w, r))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCheckProtocolVersionBeforeNegotiation(t *testing.T) {
	tr := NewHTTPServerTransport(":0", nil)
	sess := &httpSession{}

	// no header before initialize is fine
	r := httptest.NewRequest(http.MethodPost, "/messages?session_id=x", nil)
	w := httptest.NewRecorder()
	assert.True(t, tr.checkProtocolVersion(w, r, sess))

	// a header naming an unknown version is rejected outright
	r = httptest.NewRequest(http.MethodPost, "/messages?session_id=x", nil)
	r.Header.Set("MCP-Protocol-Version", "1999-01-01")
	w = httptest.NewRecorder()
	assert.False(t, tr.checkProtocolVersion(w, r, sess))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckProtocolVersionRequiredOn20250618(t *testing.T) {
	tr := NewHTTPServerTransport(":0", nil)
	sess := &httpSession{}
	sess.protocolVersion.Store(protocol.Version20250618)

	r := httptest.NewRequest(http.MethodPost, "/messages?session_id=x", nil)
	w := httptest.NewRecorder()
	assert.False(t, tr.checkProtocolVersion(w, r, sess))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/messages?session_id=x", nil)
	r.Header.Set("MCP-Protocol-Version", protocol.Version20250618)
	w = httptest.NewRecorder()
	assert.True(t, tr.checkProtocolVersion(w, r, sess))
}

func TestCheckProtocolVersionOptionalOnOlderVersions(t *testing.T) {
	tr := NewHTTPServerTransport(":0", nil)
	sess := &httpSession{}
	sess.protocolVersion.Store(protocol.Version20241105)

	r := httptest.NewRequest(http.MethodPost, "/messages?session_id=x", nil)
	w := httptest.NewRecorder()
	assert.True(t, tr.checkProtocolVersion(w, r, sess))
}
