package protocol

// This file holds the MCP payload shapes carried inside JSON-RPC params
// and results, expressed as plain JSON-tagged structs rather than as a
// generic envelope.

// Implementation names one side of an MCP connection (client or server).
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Title   string `json:"title,omitempty"`
}

// ListChangedCapability advertises support for a list_changed notification
// on a given capability.
type ListChangedCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ResourcesCapability additionally advertises per-resource subscribe
// support.
type ResourcesCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
	Subscribe   bool `json:"subscribe,omitempty"`
}

// ClientCapabilities is the client's half of the initialize handshake.
type ClientCapabilities struct {
	Experimental map[string]any         `json:"experimental,omitempty"`
	Roots        *ListChangedCapability `json:"roots,omitempty"`
	Sampling     map[string]any         `json:"sampling,omitempty"`
}

// ServerCapabilities is the server's half of the initialize handshake.
// Inclusion of Logging is opt-in per server configuration.
type ServerCapabilities struct {
	Tools     *ListChangedCapability `json:"tools,omitempty"`
	Prompts   *ListChangedCapability `json:"prompts,omitempty"`
	Resources *ResourcesCapability   `json:"resources,omitempty"`
	Logging   map[string]any         `json:"logging,omitempty"`
}

// InitializeParams is the params object of the initialize request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the result object of the initialize response.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// Tool is the wire shape of a registered tool, stripped of its
// implementation. Title and OutputSchema are version-conditional
// (added 2025-06-18); Annotations is version-conditional (added
// 2025-03-26). The registry decides, per negotiated version, which of
// these to include - this struct always carries all of them and relies on
// `omitempty` plus the registry zeroing out fields the session's version
// doesn't support.
type Tool struct {
	Name         string         `json:"name" validate:"required"`
	Description  string         `json:"description" validate:"required"`
	InputSchema  map[string]any `json:"inputSchema" validate:"required"`
	Title        string         `json:"title,omitempty"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
	Annotations  map[string]any `json:"annotations,omitempty"`
}

// ToolCallParams is the params object of a tools/call request.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Content is a tagged variant of message payload: text and image are always present; audio was added in
// 2025-03-26; resource-link and structured content were added in
// 2025-06-18. One struct carries every variant's fields; only the ones
// relevant to Type are populated.
type Content struct {
	Type              string `json:"type"`
	Text              string `json:"text,omitempty"`
	Data              string `json:"data,omitempty"`
	MimeType          string `json:"mimeType,omitempty"`
	URI               string `json:"uri,omitempty"`
	StructuredContent any    `json:"structuredContent,omitempty"`
}

// TextContent builds a plain text content item.
func TextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

// ToolCallResult is the result object of a successful tools/call. A
// tool that fails at the application level still returns a
// successful JSON-RPC result with IsError set - only a protocol-level
// failure (unknown tool, handler panic) becomes a JSON-RPC error.
type ToolCallResult struct {
	Content           []Content `json:"content"`
	IsError           bool      `json:"isError,omitempty"`
	StructuredContent any       `json:"structuredContent,omitempty"`
}

// PromptArgument describes one named variable a prompt template accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Prompt is the wire shape of a registered prompt template. Title is
// version-conditional (added 2025-06-18).
type Prompt struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
	Title       string           `json:"title,omitempty"`
}

// PromptMessage is one templated message produced by prompts/get.
type PromptMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// PromptGetParams is the params object of a prompts/get request.
type PromptGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptGetResult is the result object of a prompts/get response.
type PromptGetResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// Resource is the wire shape of a registered resource, stripped of its
// read implementation. Annotations is version-conditional (added
// 2025-03-26).
type Resource struct {
	Name        string         `json:"name" validate:"required"`
	URI         string         `json:"uri" validate:"required"`
	MimeType    string         `json:"mimeType,omitempty"`
	Description string         `json:"description,omitempty"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// ResourceContents is one item of a resources/read result: exactly one of
// Text or Blob is populated.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ReadResourceParams is the params object of a resources/read request.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult is the result object of a resources/read response.
// An unknown URI yields IsError true with an empty Contents rather than
// a JSON-RPC error.
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
	IsError  bool               `json:"isError,omitempty"`
}

// SubscribeParams is shared by resources/subscribe and
// resources/unsubscribe.
type SubscribeParams struct {
	URI string `json:"uri"`
}

// ResourceUpdatedParams is the params object of a
// notifications/resources/updated notification.
type ResourceUpdatedParams struct {
	URI string `json:"uri"`
}

// SetLogLevelParams is the params object of a logging/setLevel request.
type SetLogLevelParams struct {
	Level string `json:"level"`
}

// LogMessageParams is the params object of a notifications/message
// notification.
type LogMessageParams struct {
	Level  string `json:"level"`
	Data   any    `json:"data"`
	Logger string `json:"logger,omitempty"`
}
