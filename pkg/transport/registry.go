package transport

import "sync"

// ClientFactory builds a ClientTransport from a config map, e.g.
// {"command": "mcp-server", "args": [...]} for stdio or {"url": "..."}
// for HTTP.
type ClientFactory func(config map[string]any) (ClientTransport, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]ClientFactory)
)

// Register installs (or idempotently replaces) the constructor for a
// transport-type tag. Registration can be replaced at runtime.
func Register(tag string, factory ClientFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[tag] = factory
}

// Build constructs a ClientTransport for the given transport-type tag.
func Build(tag string, config map[string]any) (ClientTransport, error) {
	registryMu.RLock()
	factory, ok := registry[tag]
	registryMu.RUnlock()
	if !ok {
		return nil, unknownTransportError(tag)
	}
	return factory(config)
}

func unknownTransportError(tag string) error {
	return &unknownTransportErr{tag: tag}
}

type unknownTransportErr struct{ tag string }

func (e *unknownTransportErr) Error() string {
	return "transport: no factory registered for type " + e.tag
}

func init() {
	Register("stdio", func(config map[string]any) (ClientTransport, error) {
		command, _ := config["command"].(string)
		var args []string
		if raw, ok := config["args"].([]string); ok {
			args = raw
		}
		t, err := NewStdioClientTransport(command, args...)
		if err != nil {
			return nil, err
		}
		t.Start()
		return t, nil
	})

	Register("http", func(config map[string]any) (ClientTransport, error) {
		url, _ := config["url"].(string)
		return NewHTTPClientTransport(url)
	})

	Register("memory", func(config map[string]any) (ClientTransport, error) {
		_, client := NewMemoryPair()
		client.Start()
		return client, nil
	})
}
