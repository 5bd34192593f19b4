package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/metrics"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

var metricsHandler = promhttp.Handler().ServeHTTP

// sseQueueDepth bounds the per-session outbound SSE event queue.
const sseQueueDepth = 256

// HTTPServerTransport is the HTTP/SSE server transport:
// `POST /messages?session_id=...` carries one JSON-RPC message per
// request body (answered `202`, the actual reply delivered out-of-band
// over SSE); `GET /sse` opens the event stream and immediately emits an
// `endpoint` event naming the session's message URL. One event channel
// per connected client, routed on gorilla/mux.
type HTTPServerTransport struct {
	addr          string
	originAllowed func(origin string) bool
	mu            sync.Mutex
	sessions      map[string]*httpSession
	listener      net.Listener
}

type httpSession struct {
	id      string
	events  chan any
	handle  HandleFunc
	onClose func()
	alive   atomic.Bool

	// protocolVersion holds the session's negotiated version (a string),
	// captured off the initialize request so the transport can enforce the
	// MCP-Protocol-Version header requirement of 2025-06-18.
	protocolVersion atomic.Value
}

// SessionFactory is invoked once per new SSE connection. It returns the
// handler to dispatch decoded POST bodies through, and an optional
// cleanup callback run when the SSE connection ends.
type SessionFactory func(sessionID string, reply func(v any) error) (handle HandleFunc, onClose func())

// NewHTTPServerTransport builds an HTTP/SSE server transport listening on
// addr. originAllowed is consulted for every request's Origin header; a
// nil func allows every origin.
func NewHTTPServerTransport(addr string, originAllowed func(origin string) bool) *HTTPServerTransport {
	if originAllowed == nil {
		originAllowed = func(string) bool { return true }
	}
	return &HTTPServerTransport{
		addr:          addr,
		originAllowed: originAllowed,
		sessions:      make(map[string]*httpSession),
	}
}

// ServeHTTP starts the HTTP listener and blocks until ctx is cancelled. Each
// SSE connection becomes its own session; handle is invoked once per
// decoded POST body. Because one HTTPServerTransport fans out to many
// sessions (unlike stdio/memory, which serve exactly one), session
// plumbing here is necessarily different from the single-session Serve
// contract: pkg/server calls ServeHTTP, not Serve, for this transport.
func (t *HTTPServerTransport) ServeHTTP(ctx context.Context, onSession SessionFactory) error {
	router := mux.NewRouter()

	router.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		if !t.checkOrigin(w, r) {
			return
		}
		t.handleSSE(w, r, onSession)
	}).Methods(http.MethodGet)

	router.HandleFunc("/messages", func(w http.ResponseWriter, r *http.Request) {
		if !t.checkOrigin(w, r) {
			return
		}
		t.handleMessage(w, r)
	}).Methods(http.MethodPost)

	router.HandleFunc("/metrics", metricsHandler).Methods(http.MethodGet)

	srv := &http.Server{Addr: t.addr, Handler: router}

	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("http transport: listen %s: %w", t.addr, err)
	}
	t.listener = ln

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}

// checkOrigin enforces the HTTP origin allowlist before any
// JSON-RPC parsing happens: a disallowed origin never becomes a session,
// it gets a plain 403.
func (t *HTTPServerTransport) checkOrigin(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || t.originAllowed(origin) {
		return true
	}
	http.Error(w, "origin not allowed", http.StatusForbidden)
	return false
}

// checkProtocolVersion enforces the MCP-Protocol-Version header before any
// JSON-RPC parsing happens, in checkOrigin's early-return style. The
// header is required once the session has negotiated 2025-06-18; on older
// negotiated versions (or before the initialize exchange) it's optional,
// but a present header must still name a version this module speaks.
func (t *HTTPServerTransport) checkProtocolVersion(w http.ResponseWriter, r *http.Request, sess *httpSession) bool {
	header := r.Header.Get("MCP-Protocol-Version")
	if header == "" {
		if v, _ := sess.protocolVersion.Load().(string); v == protocol.Version20250618 {
			http.Error(w, "missing MCP-Protocol-Version header", http.StatusBadRequest)
			return false
		}
		return true
	}
	if protocol.NegotiateVersion(header) != header {
		http.Error(w, "unsupported MCP-Protocol-Version", http.StatusBadRequest)
		return false
	}
	return true
}

func (t *HTTPServerTransport) handleSSE(w http.ResponseWriter, r *http.Request, onSession SessionFactory) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := uuid.NewString()
	sess := &httpSession{id: sessionID, events: make(chan any, sseQueueDepth)}
	sess.alive.Store(true)

	t.mu.Lock()
	t.sessions[sessionID] = sess
	t.mu.Unlock()
	metrics.SSEConnectionOpened()
	defer func() {
		sess.alive.Store(false)
		t.mu.Lock()
		delete(t.sessions, sessionID)
		t.mu.Unlock()
		metrics.SSEConnectionClosed()
		if sess.onClose != nil {
			sess.onClose()
		}
	}()

	sess.handle, sess.onClose = onSession(sessionID, func(v any) error {
		select {
		case sess.events <- v:
			return nil
		default:
			return fmt.Errorf("http transport: session %s event queue full", sessionID)
		}
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("MCP-Protocol-Version", protocol.LatestVersion)
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: endpoint\ndata: /messages?session_id=%s\n\n", sessionID)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sess.events:
			if !ok {
				return
			}
			b, err := encodeSSEData(ev)
			if err != nil {
				logger.Error("http transport: encode SSE event", err)
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func (t *HTTPServerTransport) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	t.mu.Lock()
	sess, ok := t.sessions[sessionID]
	t.mu.Unlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	if !t.checkProtocolVersion(w, r, sess) {
		return
	}

	defer r.Body.Close()
	line, err := readBody(r)
	if err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	req, err := protocol.DecodeRequest(line)
	if err != nil {
		http.Error(w, "malformed json-rpc", http.StatusBadRequest)
		return
	}

	// The initialize request names the client's protocol version; record
	// the negotiated outcome so later requests on this session can be held
	// to their version's header rules.
	if req.Method == string(protocol.MethodInitialize) {
		if params, ok := req.Params.(map[string]any); ok {
			if v, ok := params["protocolVersion"].(string); ok {
				sess.protocolVersion.Store(protocol.NegotiateVersion(v))
			}
		}
	}

	if sess.handle != nil {
		if resp := sess.handle(req); resp != nil {
			select {
			case sess.events <- resp:
			default:
				logger.Warn("http transport: dropping response, session event queue full", sessionID)
			}
		}
	}

	if v, _ := sess.protocolVersion.Load().(string); v != "" {
		w.Header().Set("MCP-Protocol-Version", v)
	}
	w.WriteHeader(http.StatusAccepted)
}

func readBody(r *http.Request) ([]byte, error) {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := r.Body.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func encodeSSEData(v any) ([]byte, error) {
	var sb strings.Builder
	if err := protocol.Encode(&sb, v); err != nil {
		return nil, err
	}
	return []byte(strings.TrimSuffix(sb.String(), "\n")), nil
}

// Close stops accepting new connections. Unlike stdio/memory transports,
// HTTPServerTransport serves many sessions at once - it does not
// implement the single-session Transport interface; pkg/server drives it
// through ServeHTTP and the per-session reply closure instead.
func (t *HTTPServerTransport) Close() error {
	if t.listener != nil {
		return t.listener.Close()
	}
	return nil
}

func (t *HTTPServerTransport) Alive() bool { return true }
