// Package tools implements the tool registry: the
// server-side table of callable tools, list-changed notifications, and
// the bundled demo tools exercised by the module's own tests.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// ErrUnknownTool is returned by Call when no tool of that name is
// registered. pkg/server's tools/call handler maps this to a JSON-RPC
// invalid-params error;
// an unknown tool name is a protocol-level failure, not a tool-level one.
var ErrUnknownTool = errors.New("unknown tool")

// HandlerFunc implements a tool's behavior. A handler may signal its own
// application-level failure either by returning a non-nil error or by
// setting ToolCallResult.IsError directly; pkg/server's tools/call handler
// converts a returned error into {isError:true, content:[...]} rather than
// a JSON-RPC error, since a tool throwing is an application-level failure,
// not a protocol one.
type HandlerFunc func(ctx context.Context, args map[string]any) (protocol.ToolCallResult, error)

type entry struct {
	tool    protocol.Tool
	handler HandlerFunc
}

// Registry is the concurrency-safe table of registered tools. The zero
// value is not usable; construct with New.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]entry
	validate *validator.Validate
	onChange func()
}

// New constructs an empty tool registry.
func New() *Registry {
	return &Registry{
		entries:  make(map[string]entry),
		validate: validator.New(),
	}
}

// OnChange installs the callback invoked after every Add/Remove that
// actually mutates the table. pkg/server wires this to fan out
// notifications/tools/list_changed to every initialized session.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Add registers a tool and its handler, replacing any existing tool of
// the same name. Returns an error if tool fails struct validation (name,
// description and inputSchema are required).
func (r *Registry) Add(tool protocol.Tool, handler HandlerFunc) error {
	if err := r.validate.Struct(tool); err != nil {
		return fmt.Errorf("invalid tool %q: %w", tool.Name, err)
	}
	if handler == nil {
		return fmt.Errorf("tool %q: nil handler", tool.Name)
	}
	r.mu.Lock()
	r.entries[tool.Name] = entry{tool: tool, handler: handler}
	cb := r.onChange
	r.mu.Unlock()
	logger.Info("registered tool", tool.Name)
	if cb != nil {
		cb()
	}
	return nil
}

// Remove deregisters a tool by name. Reports whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	_, ok := r.entries[name]
	delete(r.entries, name)
	cb := r.onChange
	r.mu.Unlock()
	if ok && cb != nil {
		cb()
	}
	return ok
}

// List returns a stable-ordered, version-filtered snapshot of every
// registered tool, safe to hand to a concurrent caller: it's a fresh copy,
// never a reference into the registry's internal map.
func (r *Registry) List(version string) []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.Tool, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, protocol.StripVersionedFields(e.tool, version))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call invokes the named tool's handler. Returns ErrUnknownTool if no such
// tool is registered.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (protocol.ToolCallResult, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return protocol.ToolCallResult{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return e.handler(ctx, args)
}

// Len reports how many tools are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
