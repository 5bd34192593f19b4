// Package prompts implements the prompt registry: an
// in-memory table of prompt templates, mirroring the tool registry's
// shape but with a template-substitution get path instead of an
// invocation path. The store is a plain in-memory map; prompt state lives
// and dies with the process.
package prompts

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// ErrUnknownPrompt is returned by Get when no prompt of that name is
// registered.
var ErrUnknownPrompt = fmt.Errorf("unknown prompt")

type entry struct {
	prompt   protocol.Prompt
	messages []protocol.PromptMessage
}

// Registry is the concurrency-safe table of registered prompts.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]entry
	validate *validator.Validate
	onChange func()
}

// New constructs a prompt registry seeded with the bundled sample
// prompts.
func New() *Registry {
	r := &Registry{
		entries:  make(map[string]entry),
		validate: validator.New(),
	}
	registerSamplePrompts(r)
	return r
}

// OnChange installs the callback invoked after every Add/Remove that
// mutates the table, for notifications/prompts/list_changed fan-out.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Add registers a prompt template, replacing any existing one of the same
// name.
func (r *Registry) Add(prompt protocol.Prompt, messages []protocol.PromptMessage) error {
	if err := r.validate.Struct(prompt); err != nil {
		return fmt.Errorf("invalid prompt %q: %w", prompt.Name, err)
	}
	r.mu.Lock()
	r.entries[prompt.Name] = entry{prompt: prompt, messages: messages}
	cb := r.onChange
	r.mu.Unlock()
	logger.Info("registered prompt", prompt.Name)
	if cb != nil {
		cb()
	}
	return nil
}

// Remove deregisters a prompt by name. Reports whether it was present.
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
// registered prompt.
func (r *Registry) List(version string) []protocol.Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.Prompt, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, protocol.StripPromptVersionedFields(e.prompt, version))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get renders the named prompt's messages, substituting each `{{var}}`
// placeholder with the corresponding argument. A missing argument leaves
// its placeholder untouched.
func (r *Registry) Get(name string, args map[string]string) (protocol.PromptGetResult, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return protocol.PromptGetResult{}, fmt.Errorf("%w: %q", ErrUnknownPrompt, name)
	}

	rendered := make([]protocol.PromptMessage, len(e.messages))
	for i, m := range e.messages {
		rendered[i] = protocol.PromptMessage{
			Role:    m.Role,
			Content: protocol.Content{Type: m.Content.Type, Text: substitute(m.Content.Text, args)},
		}
	}
	return protocol.PromptGetResult{Description: e.prompt.Description, Messages: rendered}, nil
}

// substitute replaces every `{{key}}` occurrence in text with args[key],
// leaving placeholders for missing keys untouched.
func substitute(text string, args map[string]string) string {
	for k, v := range args {
		text = strings.ReplaceAll(text, "{{"+k+"}}", v)
	}
	return text
}

// Len reports how many prompts are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
