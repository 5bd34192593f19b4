// Package resources implements the resource registry:
// list/read plus per-URI subscribe/unsubscribe tracking and the
// notifications/resources/updated fan-out gate.
package resources

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// ReaderFunc implements a resource's read behavior.
type ReaderFunc func(ctx context.Context, uri string) (protocol.ReadResourceResult, error)

type entry struct {
	resource protocol.Resource
	read     ReaderFunc
}

// Registry is the concurrency-safe table of registered resources. It also
// tracks, per URI, the set of session-ids currently subscribed.
type Registry struct {
	mu          sync.RWMutex
	entries     map[string]entry
	subscribers map[string]map[string]bool // uri -> session-id -> true
	validate    *validator.Validate
	onChange    func()
}

// New constructs an empty resource registry.
func New() *Registry {
	return &Registry{
		entries:     make(map[string]entry),
		subscribers: make(map[string]map[string]bool),
		validate:    validator.New(),
	}
}

// OnChange installs the callback invoked after every Add/Remove that
// mutates the table, for notifications/resources/list_changed fan-out.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Add registers a resource, replacing any existing one of the same URI.
func (r *Registry) Add(resource protocol.Resource, reader ReaderFunc) error {
	if err := r.validate.Struct(resource); err != nil {
		return fmt.Errorf("invalid resource %q: %w", resource.URI, err)
	}
	if reader == nil {
		return fmt.Errorf("resource %q: nil reader", resource.URI)
	}
	r.mu.Lock()
	r.entries[resource.URI] = entry{resource: resource, read: reader}
	cb := r.onChange
	r.mu.Unlock()
	logger.Info("registered resource", resource.URI)
	if cb != nil {
		cb()
	}
	return nil
}

// Remove deregisters a resource by URI, along with its subscriber set.
func (r *Registry) Remove(uri string) bool {
	r.mu.Lock()
	_, ok := r.entries[uri]
	delete(r.entries, uri)
	delete(r.subscribers, uri)
	cb := r.onChange
	r.mu.Unlock()
	if ok && cb != nil {
		cb()
	}
	return ok
}

// List returns a stable-ordered, version-filtered snapshot of every
// registered resource.
func (r *Registry) List(version string) []protocol.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.Resource, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, protocol.StripResourceVersionedFields(e.resource, version))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// Read invokes the named resource's reader. An unknown URI yields an
// application-level {isError:true, contents:[]} result, not an error
// return.
func (r *Registry) Read(ctx context.Context, uri string) protocol.ReadResourceResult {
	r.mu.RLock()
	e, ok := r.entries[uri]
	r.mu.RUnlock()
	if !ok {
		return protocol.ReadResourceResult{Contents: []protocol.ResourceContents{}, IsError: true}
	}
	result, err := e.read(ctx, uri)
	if err != nil {
		return protocol.ReadResourceResult{Contents: []protocol.ResourceContents{}, IsError: true}
	}
	return result
}

// Subscribe adds sessionID to uri's subscriber set. Idempotent.
func (r *Registry) Subscribe(uri, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subscribers[uri] == nil {
		r.subscribers[uri] = make(map[string]bool)
	}
	r.subscribers[uri][sessionID] = true
}

// Unsubscribe removes sessionID from uri's subscriber set. Idempotent.
func (r *Registry) Unsubscribe(uri, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers[uri], sessionID)
}

// Subscribers returns a snapshot of the session-ids currently subscribed
// to uri.
func (r *Registry) Subscribers(uri string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.subscribers[uri]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Len reports how many resources are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
