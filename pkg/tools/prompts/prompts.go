// Package prompts provides the MCP prompts served alongside the tools.
package prompts

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/arogyajal/pkg/advisor"
)

// WaterQualityPromptName is the name the system prompt is registered under.
const WaterQualityPromptName = "water_quality_system"

// WaterQualitySystemPrompt returns instructions for assistants using the
// hydration and water-quality tools.
func WaterQualitySystemPrompt() string {
	var b strings.Builder
	b.WriteString("You help people stay hydrated and keep their drinking water safe.\n")
	b.WriteString(strings.TrimRight(advisor.WaterQualityContext, "\n"))
	b.WriteString(`

Tool usage:
- Use calculate_water_intake for daily intake. Pass age in years, weight in kilograms, an activity level and a climate. Call list_intake_options if unsure which values are accepted.
- Use validate_intake_form to check partial form input before calculating.
- Use water_quality_chat for general questions and analyze_water_quality when the user has measurements.
- Recommendations are clamped to 1.5-5.0 liters per day. Mention it when the result is clamped.
- Advise seeing a health professional for medical conditions that affect fluid needs.
`)
	return b.String()
}

// RegisterWaterQualityPrompts adds the system prompt to mcpServer.
func RegisterWaterQualityPrompts(mcpServer *server.MCPServer) {
	prompt := mcp.NewPrompt(WaterQualityPromptName,
		mcp.WithPromptDescription("System prompt with hydration and water quality instructions"),
	)

	mcpServer.AddPrompt(prompt, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return mcp.NewGetPromptResult(
			"Water Quality System Instructions",
			[]mcp.PromptMessage{
				mcp.NewPromptMessage(
					mcp.RoleAssistant,
					mcp.NewTextContent(WaterQualitySystemPrompt()),
				),
			},
		), nil
	})
}
