package tools

import (
	"context"
	"time"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// datetimeArgs is reflected into the current_time tool's inputSchema.
type datetimeArgs struct {
	Format string `json:"format,omitempty" jsonschema:"description=A Go reference-time layout such as 2006-01-02T15:04:05Z07:00"`
}

// DateTimeTool returns the current_time demo tool's registration shape.
func DateTimeTool() protocol.Tool {
	return protocol.Tool{
		Name:        "current_time",
		Description: "Returns the current date and time",
		InputSchema: reflectSchema(&datetimeArgs{}),
	}
}

// HandleDateTimeTool implements the current_time tool.
func HandleDateTimeTool(ctx context.Context, args map[string]any) (protocol.ToolCallResult, error) {
	format := time.RFC3339
	if f, ok := args["format"].(string); ok && f != "" {
		format = f
	}

	now := time.Now().Format(format)
	logger.Info("handled current_time tool invocation")
	return protocol.ToolCallResult{
		Content:           []protocol.Content{protocol.TextContent(now)},
		StructuredContent: map[string]any{"datetime": now},
	}, nil
}
