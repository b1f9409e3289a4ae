package tools

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/arogyajal/pkg/core"
)

// ValidateRequiredArguments checks that every named argument is present.
// Empty values are left to the handler. It returns a detailed error result
// with an example when one is missing, or nil.
func ValidateRequiredArguments(req mcp.CallToolRequest, toolName string, logger *slog.Logger, names ...string) *mcp.CallToolResult {
	args := req.GetArguments()

	var missing []string
	for _, name := range names {
		if args[name] == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	logger.Error("missing required parameters", "missing", strings.Join(missing, ", "))

	return NewDetailedError(
		core.ErrMissingParameter,
		fmt.Sprintf("Missing required parameters: %s", strings.Join(missing, ", ")),
		"",
		fmt.Sprintf("The %s tool requires %s.", toolName, strings.Join(names, " and ")),
		fmt.Sprintf("Example: %s", GetToolUsageExample(toolName)),
	)
}
