package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// StdioServerTransport serves one session by reading line-framed JSON-RPC
// requests from an input stream and writing responses to an output
// stream, one JSON object per line. In the common case
// these are os.Stdin/os.Stdout of the server process itself.
type StdioServerTransport struct {
	in  *bufio.Reader
	out io.Writer

	writeMu sync.Mutex
	alive   atomic.Bool
}

// NewStdioServerTransport wires a transport to the given streams. Pass
// os.Stdin/os.Stdout to serve over the process's own standard streams.
func NewStdioServerTransport(in io.Reader, out io.Writer) *StdioServerTransport {
	t := &StdioServerTransport{in: bufio.NewReader(in), out: out}
	t.alive.Store(true)
	return t
}

// Serve reads one request per line until ctx is cancelled or the input
// stream reaches EOF.
func (t *StdioServerTransport) Serve(ctx context.Context, handle HandleFunc) error {
	defer t.alive.Store(false)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line, err := protocol.ReadLine(t.in)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("stdio transport read: %w", err)
		}
		if len(line) == 0 {
			continue
		}
		req, err := protocol.DecodeRequest(line)
		if err != nil {
			logger.Warn("stdio transport: dropping unparsable line", err)
			continue
		}
		if resp := handle(req); resp != nil {
			if err := t.Send(resp); err != nil {
				return err
			}
		}
	}
}

// Send writes v as one framed line, serialized against concurrent writers
// by a mutex.
func (t *StdioServerTransport) Send(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return protocol.Encode(t.out, v)
}

// Close marks the transport dead. The underlying streams (typically
// os.Stdin/os.Stdout) are owned by the caller, not this transport.
func (t *StdioServerTransport) Close() error {
	t.alive.Store(false)
	return nil
}

func (t *StdioServerTransport) Alive() bool { return t.alive.Load() }

// StdioClientTransport spawns a subprocess and speaks line-framed
// JSON-RPC over its stdin/stdout, inheriting its stderr so the child's
// diagnostics surface to the parent.
type StdioClientTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	writeMu sync.Mutex
	alive   atomic.Bool

	inbound       chan *protocol.JsonRpcResponse
	notifications chan *protocol.JsonRpcRequest
}

// NewStdioClientTransport spawns command with args and wires its pipes.
// Start must be called once to launch the reader goroutine.
func NewStdioClientTransport(command string, args ...string) (*StdioClientTransport, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdio client transport: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdio client transport: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("stdio client transport: start %s: %w", command, err)
	}

	t := &StdioClientTransport{
		cmd:           cmd,
		stdin:         stdin,
		stdout:        bufio.NewReader(stdout),
		inbound:       make(chan *protocol.JsonRpcResponse, memoryQueueDepth),
		notifications: make(chan *protocol.JsonRpcRequest, memoryQueueDepth),
	}
	t.alive.Store(true)
	return t, nil
}

// Start launches the single background reader goroutine that drains the
// child's stdout.
func (t *StdioClientTransport) Start() {
	go func() {
		defer t.alive.Store(false)
		defer close(t.inbound)
		defer close(t.notifications)
		for {
			line, err := protocol.ReadLine(t.stdout)
			if err != nil {
				return
			}
			if len(line) == 0 {
				continue
			}
			if isNotificationLine(line) {
				req, err := protocol.DecodeRequest(line)
				if err != nil {
					logger.Warn("stdio client transport: dropping unparsable notification", err)
					continue
				}
				t.notifications <- req
				continue
			}
			resp, err := protocol.DecodeResponse(line)
			if err != nil {
				logger.Warn("stdio client transport: dropping unparsable response", err)
				continue
			}
			t.inbound <- resp
		}
	}()
}

// isNotificationLine sniffs whether a line carries a "method" key - a
// cheap way to route before committing to one struct shape, since a
// response never legally carries a top-level "method" field while every
// request/notification does.
func isNotificationLine(line []byte) bool {
	return bytes.Contains(line, []byte(`"method"`))
}

func (t *StdioClientTransport) Send(req *protocol.JsonRpcRequest) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return protocol.Encode(t.stdin, req)
}

func (t *StdioClientTransport) Inbound() <-chan *protocol.JsonRpcResponse { return t.inbound }

func (t *StdioClientTransport) Notifications() <-chan *protocol.JsonRpcRequest {
	return t.notifications
}

func (t *StdioClientTransport) Close() error {
	t.alive.Store(false)
	_ = t.stdin.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	return t.cmd.Wait()
}

func (t *StdioClientTransport) Alive() bool { return t.alive.Load() }
