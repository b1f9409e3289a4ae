package tools

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/arogyajal/pkg/core"
)

// Common error guidance messages
const (
	GuidanceAdvisorUnavailable = "Set GEMINI_API_KEY on the server to enable the water quality advisor."
	GuidanceParameterTypes     = "Check parameter types: age and weight may be numbers or numeric strings, parameters must be an object."
	GuidanceIntakeForm         = "Provide age (1-120), weight in kg (10-300), an activity level and a climate."
	GuidanceGeneral            = "Please try again later or modify your request parameters."
)

// ErrorResponse returns a plain error tool result.
func ErrorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// NewDetailedError returns a structured error result. Guidance lines are
// joined with spaces.
func NewDetailedError(code core.ErrorCode, message, query string, guidance ...string) *mcp.CallToolResult {
	err := core.NewError(code, message)
	if query != "" {
		err.WithQuery(query)
	}
	if len(guidance) > 0 {
		err.WithGuidance(strings.Join(guidance, " "))
	}
	return err.ToMCPResult()
}

// GetToolUsageExample returns an example JSON snippet for using a specific tool
// This is helpful for providing guidance when parameter validation fails
func GetToolUsageExample(toolName string) string {
	examples := map[string]string{
		ToolCalculateWaterIntake: `{"age": "30", "weight": "70", "activity": "moderate", "climate": "hot"}`,
		ToolValidateIntakeForm:   `{"age": "30", "weight": "70"}`,
		ToolWaterQualityChat:     `{"query": "How long should I boil well water?"}`,
		ToolAnalyzeWaterQuality:  `{"parameters": {"pH": 7.2, "turbidity": "4 NTU"}, "location": "Village well"}`,
	}

	if example, exists := examples[toolName]; exists {
		return example
	}
	return `{}`
}
