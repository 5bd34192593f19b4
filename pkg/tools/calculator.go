package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/protocol"
)

// calculatorArgs is reflected into the calculator tool's inputSchema via
// invopop/jsonschema (see schema.go) instead of a hand-written
// protocol.InputSchema literal.
type calculatorArgs struct {
	Expression string `json:"expression" jsonschema:"required,description=A two-operand arithmetic expression with spaces around the operator such as 2 + 2 or 4 * 6"`
}

// CalculatorTool returns the calculator demo tool's registration shape.
func CalculatorTool() protocol.Tool {
	return protocol.Tool{
		Name:        "calculator",
		Description: "Evaluates a simple two-operand arithmetic expression",
		InputSchema: reflectSchema(&calculatorArgs{}),
	}
}

// HandleCalculatorTool implements the calculator tool.
func HandleCalculatorTool(ctx context.Context, args map[string]any) (protocol.ToolCallResult, error) {
	expression, _ := args["expression"].(string)
	if expression == "" {
		return errorResult("expression parameter is required and must be a string"), nil
	}

	result, err := calculateResult(expression)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	logger.Info("calculated", expression, "=", result)
	return protocol.ToolCallResult{
		Content: []protocol.Content{protocol.TextContent(fmt.Sprintf("%g", result))},
		StructuredContent: map[string]any{
			"result":     result,
			"expression": expression,
		},
	}, nil
}

// calculateResult performs a simple calculation based on the input
// expression.
func calculateResult(expression string) (float64, error) {
	parts := strings.Fields(strings.TrimSpace(expression))
	if len(parts) != 3 {
		return 0, fmt.Errorf("expression must be in format 'number operator number'")
	}

	num1, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid first number: %v", err)
	}
	operator := parts[1]
	num2, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid second number: %v", err)
	}

	var result float64
	switch operator {
	case "+":
		result = num1 + num2
	case "-":
		result = num1 - num2
	case "*":
		result = num1 * num2
	case "/":
		if num2 == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		result = num1 / num2
	default:
		return 0, fmt.Errorf("unsupported operator: %s", operator)
	}
	return result, nil
}

// errorResult builds an application-level tool failure: a
// successful JSON-RPC result with IsError set, never a JSON-RPC error.
func errorResult(message string) protocol.ToolCallResult {
	return protocol.ToolCallResult{
		Content: []protocol.Content{protocol.TextContent(message)},
		IsError: true,
	}
}
