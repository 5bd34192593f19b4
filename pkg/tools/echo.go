package tools

import (
	"context"

	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// echoArgs is reflected into the echo tool's inputSchema.
type echoArgs struct {
	Text string `json:"text" jsonschema:"required,description=Text to echo back"`
}

// EchoTool returns the echo demo tool's registration shape: the simplest
// possible tool, useful for exercising the call path end to end without
// any business logic to get wrong.
func EchoTool() protocol.Tool {
	return protocol.Tool{
		Name:        "echo",
		Description: "Echoes the given text back unchanged",
		InputSchema: reflectSchema(&echoArgs{}),
	}
}

// HandleEchoTool implements the echo tool.
func HandleEchoTool(ctx context.Context, args map[string]any) (protocol.ToolCallResult, error) {
	text, _ := args["text"].(string)
	return protocol.ToolCallResult{
		Content: []protocol.Content{protocol.TextContent(text)},
	}, nil
}

// RegisterDefaults adds the bundled demo tools (echo, calculator,
// current_time) to r.
func RegisterDefaults(r *Registry) error {
	if err := r.Add(EchoTool(), HandleEchoTool); err != nil {
		return err
	}
	if err := r.Add(CalculatorTool(), HandleCalculatorTool); err != nil {
		return err
	}
	if err := r.Add(DateTimeTool(), HandleDateTimeTool); err != nil {
		return err
	}
	return nil
}
