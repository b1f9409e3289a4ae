package tools

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/arogyajal/pkg/advisor"
	"github.com/NERVsystems/arogyajal/pkg/core"
)

// Advisor answers water quality questions. *advisor.Advisor implements it.
type Advisor interface {
	Chat(ctx context.Context, query string) (advisor.ChatResponse, error)
	Analyze(ctx context.Context, req advisor.AnalysisRequest) (advisor.AnalysisResponse, error)
}

// AdvisorTools binds the water-quality tools to an Advisor.
type AdvisorTools struct {
	adv Advisor
}

// NewAdvisorTools creates the water-quality tool handlers. adv may be nil.
func NewAdvisorTools(adv Advisor) *AdvisorTools {
	return &AdvisorTools{adv: adv}
}

var advisorFactory = core.NewToolFactory(nil, nil)

// WaterQualityChatTool returns a tool definition for free-text questions
func WaterQualityChatTool() mcp.Tool {
	return advisorFactory.CreateQueryTool(ToolWaterQualityChat,
		"Ask the water quality advisor about drinking water safety, waterborne disease, treatment and prevention",
		"The question to ask, e.g. \"How long should I boil well water?\"")
}

// AnalyzeWaterQualityTool returns a tool definition for parameter analysis
func AnalyzeWaterQualityTool() mcp.Tool {
	return advisorFactory.CreateAnalysisTool(ToolAnalyzeWaterQuality,
		"Assess measured water quality parameters and get health implications, treatment recommendations and risks")
}

// ChatInput is the argument shape of water_quality_chat.
type ChatInput struct {
	Query string `json:"query"`
}

// HandleChat forwards a question to the advisor
func (t *AdvisorTools) HandleChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := ValidateRequiredArguments(req, ToolWaterQualityChat, slog.Default(), "query"); res != nil {
		return res, nil
	}
	return WithParsedInput(ToolWaterQualityChat, func(ctx context.Context, input ChatInput, logger *slog.Logger) (interface{}, error) {
		if t.adv == nil {
			return nil, errAdvisorUnavailable()
		}
		return t.adv.Chat(ctx, input.Query)
	})(ctx, req)
}

// HandleAnalyze forwards measured parameters to the advisor
func (t *AdvisorTools) HandleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := ValidateRequiredArguments(req, ToolAnalyzeWaterQuality, slog.Default(), "parameters"); res != nil {
		return res, nil
	}
	return WithParsedInput(ToolAnalyzeWaterQuality, func(ctx context.Context, input advisor.AnalysisRequest, logger *slog.Logger) (interface{}, error) {
		if t.adv == nil {
			return nil, errAdvisorUnavailable()
		}
		return t.adv.Analyze(ctx, input)
	})(ctx, req)
}

func errAdvisorUnavailable() *core.MCPError {
	return core.NewError(core.ErrServiceUnavailable, "water quality advisor is not configured").
		WithGuidance(GuidanceAdvisorUnavailable)
}
