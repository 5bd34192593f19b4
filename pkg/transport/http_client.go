package transport

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

var sharedHTTPClient *http.Client
var sharedHTTPClientOnce sync.Once

// getHTTPClient returns a process-wide *http.Client with a sane TLS/proxy
// configuration. This client talks to an MCP server the caller configured
// explicitly, not arbitrary internet hosts behind a corporate proxy
// inspection layer.
func getHTTPClient() *http.Client {
	sharedHTTPClientOnce.Do(func() {
		sharedHTTPClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{},
				Proxy:           http.ProxyFromEnvironment,
			},
			Timeout: 30 * time.Second,
		}
	})
	return sharedHTTPClient
}

// decodeBody selects a decompressing reader for resp.Body based on its
// Content-Encoding header.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		logger.Info("handling gzip compressed content")
		return gzip.NewReader(resp.Body)
	case "deflate":
		logger.Info("handling deflate compressed content")
		return flate.NewReader(resp.Body), nil
	case "br":
		logger.Info("handling brotli compressed content")
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return resp.Body, nil
	}
}

// HTTPClientTransport is the client half of the HTTP/SSE transport: it
// opens `GET /sse` to learn its session id and receive server-push
// notifications/out-of-band responses, and POSTs outbound requests to
// `/messages?session_id=...`.
type HTTPClientTransport struct {
	baseURL   string
	sessionID string

	// protocolVersion is the version this connection requested on
	// initialize, sniffed off the outbound request so every later POST can
	// carry the MCP-Protocol-Version header 2025-06-18 requires.
	protocolVersion atomic.Value

	client *http.Client
	body   io.Closer // the SSE response body; closing it stops readSSE

	writeMu sync.Mutex
	alive   atomic.Bool

	inbound       chan *protocol.JsonRpcResponse
	notifications chan *protocol.JsonRpcRequest
	stop          chan struct{}
}

// NewHTTPClientTransport opens the SSE stream against baseURL (e.g.
// "http://localhost:8080") and blocks until the server's endpoint event
// names this connection's session id.
func NewHTTPClientTransport(baseURL string) (*HTTPClientTransport, error) {
	t := &HTTPClientTransport{
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        getHTTPClient(),
		inbound:       make(chan *protocol.JsonRpcResponse, memoryQueueDepth),
		notifications: make(chan *protocol.JsonRpcRequest, memoryQueueDepth),
		stop:          make(chan struct{}),
	}
	t.alive.Store(true)

	resp, err := t.client.Get(t.baseURL + "/sse")
	if err != nil {
		return nil, fmt.Errorf("http client transport: open sse: %w", err)
	}
	t.body = resp.Body

	reader, err := decodeBody(resp)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("http client transport: decode sse body: %w", err)
	}

	br := bufio.NewReader(reader)
	sessionID, err := readEndpointEvent(br)
	if err != nil {
		reader.Close()
		return nil, err
	}
	t.sessionID = sessionID

	go t.readSSE(br, reader)
	return t, nil
}

// readEndpointEvent blocks until it has consumed the SSE stream's first
// `event: endpoint` frame and extracts the session id from its
// `data: /messages?session_id=<id>` line.
func readEndpointEvent(br *bufio.Reader) (string, error) {
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("http client transport: sse stream closed before endpoint event: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if !strings.HasPrefix(line, "data: /messages?session_id=") {
			continue
		}
		return strings.TrimPrefix(line, "data: /messages?session_id="), nil
	}
}

// readSSE is the transport's single reader goroutine: it drains the SSE
// body, demultiplexing `event: message` frames into responses or
// notifications exactly as the stdio transport does for lines.
func (t *HTTPClientTransport) readSSE(br *bufio.Reader, closer io.Closer) {
	defer closer.Close()
	defer t.alive.Store(false)
	defer close(t.inbound)
	defer close(t.notifications)

	var pendingData string
	for {
		select {
		case <-t.stop:
			return
		default:
		}

		line, err := br.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "data: "):
			pendingData = strings.TrimPrefix(line, "data: ")
		case line == "" && pendingData != "":
			t.dispatchSSEPayload([]byte(pendingData))
			pendingData = ""
		}
	}
}

func (t *HTTPClientTransport) dispatchSSEPayload(payload []byte) {
	if strings.Contains(string(payload), `"method"`) {
		req, err := protocol.DecodeRequest(payload)
		if err != nil {
			logger.Warn("http client transport: dropping unparsable notification", err)
			return
		}
		t.notifications <- req
		return
	}
	resp, err := protocol.DecodeResponse(payload)
	if err != nil {
		logger.Warn("http client transport: dropping unparsable response", err)
		return
	}
	t.inbound <- resp
}

func (t *HTTPClientTransport) Send(req *protocol.JsonRpcRequest) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if req.Method == string(protocol.MethodInitialize) {
		if params, ok := req.Params.(protocol.InitializeParams); ok {
			t.protocolVersion.Store(params.ProtocolVersion)
		}
	}

	var body strings.Builder
	if err := protocol.Encode(&body, req); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/messages?session_id=%s", t.baseURL, t.sessionID)
	httpReq, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body.String()))
	if err != nil {
		return fmt.Errorf("http client transport: build post: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	version, _ := t.protocolVersion.Load().(string)
	if version == "" {
		version = protocol.LatestVersion
	}
	httpReq.Header.Set("MCP-Protocol-Version", version)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http client transport: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("http client transport: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (t *HTTPClientTransport) Inbound() <-chan *protocol.JsonRpcResponse { return t.inbound }

func (t *HTTPClientTransport) Notifications() <-chan *protocol.JsonRpcRequest {
	return t.notifications
}

func (t *HTTPClientTransport) Close() error {
	t.alive.Store(false)
	close(t.stop)
	return t.body.Close()
}

func (t *HTTPClientTransport) Alive() bool { return t.alive.Load() }
