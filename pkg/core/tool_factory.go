package core

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolFactory builds tool definitions that share parameter shapes
type ToolFactory struct {
	activities []string
	climates   []string
}

// NewToolFactory creates a factory that advertises the given selection
// values in the intake tool descriptions.
func NewToolFactory(activities, climates []string) *ToolFactory {
	return &ToolFactory{activities: activities, climates: climates}
}

// CreateBasicTool creates a new tool with the specified name and description
func (f *ToolFactory) CreateBasicTool(name, description string) mcp.Tool {
	return mcp.NewTool(name, mcp.WithDescription(description))
}

// CreateIntakeTool creates a tool taking the four intake form fields.
// Age and weight are accepted as strings so form input can be passed through
// unchanged and validated server-side.
func (f *ToolFactory) CreateIntakeTool(name, description string, minAge, maxAge int, minWeight, maxWeight float64) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("age",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("Age in whole years (%d-%d)", minAge, maxAge)),
		),
		mcp.WithString("weight",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("Body weight in kilograms (%g-%g)", minWeight, maxWeight)),
		),
		mcp.WithString("activity",
			mcp.Required(),
			mcp.Description("Activity level: "+strings.Join(f.activities, ", ")),
		),
		mcp.WithString("climate",
			mcp.Required(),
			mcp.Description("Climate: "+strings.Join(f.climates, ", ")),
		),
	)
}

// CreateQueryTool creates a tool taking one free-text question
func (f *ToolFactory) CreateQueryTool(name, description, paramDescription string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description(paramDescription),
		),
	)
}

// CreateAnalysisTool creates a tool taking a parameter map with optional
// location and notes
func (f *ToolFactory) CreateAnalysisTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithObject("parameters",
			mcp.Required(),
			mcp.Description("Measured water quality parameters, e.g. {\"pH\": 7.2, \"turbidity\": \"4 NTU\"}"),
		),
		mcp.WithString("location",
			mcp.Description("Where the sample was taken"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form observations about the sample"),
		),
	)
}
