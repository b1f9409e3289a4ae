// Package tools provides the hydration and water-quality MCP tool implementations.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/arogyajal/pkg/monitoring"
	"github.com/NERVsystems/arogyajal/pkg/tools/prompts"
	"github.com/NERVsystems/arogyajal/pkg/tracing"
)

// ToolHandler is the signature shared by every tool handler.
type ToolHandler func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Registry contains all tool definitions and handlers
type Registry struct {
	logger  *slog.Logger
	advisor *AdvisorTools
}

// NewRegistry creates a new tool registry. adv may be nil, in which case the
// water-quality tools report the advisor as unavailable.
func NewRegistry(logger *slog.Logger, adv Advisor) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:  logger,
		advisor: NewAdvisorTools(adv),
	}
}

// ToolDefinition represents a hydration MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     ToolHandler
}

// GetToolDefinitions returns the list of all available tools.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ToolGetVersion,
			Description: "Get the version information for this hydration MCP",
			Tool:        GetVersionTool(),
			Handler:     HandleGetVersion,
		},

		// Hydration calculator
		{
			Name:        ToolCalculateWaterIntake,
			Description: "Calculate the recommended daily water intake. Parameters: age (1-120), weight (kg, 10-300), activity (low, moderate, high, very-high), climate (cool, moderate, hot, very-hot)",
			Tool:        CalculateWaterIntakeTool(),
			Handler:     HandleCalculateWaterIntake,
		},
		{
			Name:        ToolValidateIntakeForm,
			Description: "Validate calculator form values and report the state of every field. Parameters: age, weight, activity, climate (all optional strings)",
			Tool:        ValidateIntakeFormTool(),
			Handler:     HandleValidateIntakeForm,
		},
		{
			Name:        ToolListIntakeOptions,
			Description: "List the activity levels, climates and age bands with their multipliers",
			Tool:        ListIntakeOptionsTool(),
			Handler:     HandleListIntakeOptions,
		},

		// Water quality advisor
		{
			Name:        ToolWaterQualityChat,
			Description: "Ask a question about water quality, waterborne disease or treatment. Parameters: query (string)",
			Tool:        WaterQualityChatTool(),
			Handler:     r.advisor.HandleChat,
		},
		{
			Name:        ToolAnalyzeWaterQuality,
			Description: "Assess measured water quality parameters. Parameters: parameters (object), location (string, optional), notes (string, optional)",
			Tool:        AnalyzeWaterQualityTool(),
			Handler:     r.advisor.HandleAnalyze,
		},
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, server.ToolHandlerFunc(r.wrapWithTracing(def.Name, def.Handler)))
	}
}

// wrapWithTracing wraps a tool handler with an OpenTelemetry span and
// request metrics
func (r *Registry) wrapWithTracing(toolName string, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		spanName := fmt.Sprintf("mcp.tool.%s", toolName)
		ctx, span := tracing.StartSpan(ctx, spanName,
			trace.WithAttributes(
				attribute.String(tracing.AttrMCPToolName, toolName),
			),
		)
		defer span.End()

		startTime := time.Now()
		result, err := handler(ctx, req)
		duration := time.Since(startTime)

		status := tracing.StatusSuccess
		switch {
		case err != nil:
			status = tracing.StatusError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case result != nil && result.IsError:
			status = tracing.StatusError
			span.SetStatus(codes.Error, "tool returned error result")
		default:
			span.SetStatus(codes.Ok, "")
		}

		resultSize := 0
		if result != nil && result.Content != nil {
			if data, marshalErr := json.Marshal(result.Content); marshalErr == nil {
				resultSize = len(data)
			}
		}

		span.SetAttributes(tracing.MCPToolAttributes(toolName, status, duration.Milliseconds(), resultSize)...)
		monitoring.RecordMCPRequest(toolName, duration, status == tracing.StatusSuccess)

		r.logger.Debug("tool execution traced",
			"tool", toolName,
			"duration_ms", duration.Milliseconds(),
			"status", status,
			"result_size", resultSize,
		)

		return result, err
	}
}

// RegisterPrompts registers all prompts with the MCP server.
func (r *Registry) RegisterPrompts(mcpServer *server.MCPServer) {
	r.logger.Info("registering water quality prompts")
	prompts.RegisterWaterQualityPrompts(mcpServer)
}

// GetToolNames returns a list of all tool names.
func (r *Registry) GetToolNames() []string {
	defs := r.GetToolDefinitions()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// RegisterAll registers all tools and prompts with the MCP server.
func (r *Registry) RegisterAll(mcpServer *server.MCPServer) {
	r.RegisterTools(mcpServer)
	r.RegisterPrompts(mcpServer)
}
