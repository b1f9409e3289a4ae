package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/arogyajal/pkg/core"
)

// InputParser is a generic function to parse request arguments into a strongly typed struct
func InputParser[T any](req mcp.CallToolRequest) (T, *mcp.CallToolResult, error) {
	var input T

	inputJSON, err := json.Marshal(req.GetArguments())
	if err != nil {
		return input, ErrorResponse(fmt.Sprintf("Invalid input format: %v", err)), err
	}

	if err := json.Unmarshal(inputJSON, &input); err != nil {
		return input, core.NewError(core.ErrInvalidParameter, fmt.Sprintf("Failed to parse input: %v", err)).
			WithGuidance(GuidanceParameterTypes).
			ToMCPResult(), err
	}

	return input, nil, nil
}

// WithParsedInput is a higher-order function that handles request parsing and error handling.
// Handler errors carrying an MCPError are returned with their code intact.
func WithParsedInput[T any](
	handlerName string,
	handler func(ctx context.Context, input T, logger *slog.Logger) (interface{}, error),
) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := slog.Default().With("tool", handlerName)

		input, errResult, err := InputParser[T](req)
		if err != nil {
			logger.Error("failed to parse input", "error", err)
			return errResult, nil
		}

		result, err := handler(ctx, input, logger)
		if err != nil {
			logger.Error("handler error", "error", err)
			if errors.Is(err, context.Canceled) {
				return ErrorResponse("Request cancelled"), nil
			}
			return core.AsMCPError(err).ToMCPResult(), nil
		}

		return JSONResult(result, logger), nil
	}
}

// JSONResult marshals v into a text tool result
func JSONResult(v interface{}, logger *slog.Logger) *mcp.CallToolResult {
	resultBytes, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to marshal result", "error", err)
		return ErrorResponse("Failed to generate result")
	}
	return mcp.NewToolResultText(string(resultBytes))
}
