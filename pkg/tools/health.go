package tools

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/arogyajal/pkg/version"
)

// BuildInfo contains additional build information
var BuildInfo *debug.BuildInfo

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		BuildInfo = info
	}
}

// VersionInfo represents version information for the service
type VersionInfo struct {
	Version     string            `json:"version"`
	GoVersion   string            `json:"go_version,omitempty"`
	Commit      string            `json:"commit,omitempty"`
	BuildDate   string            `json:"build_date,omitempty"`
	VCSRevision string            `json:"vcs_revision,omitempty"`
	Settings    map[string]string `json:"settings,omitempty"`
}

// GetVersionTool returns a tool definition for retrieving version information
func GetVersionTool() mcp.Tool {
	return mcp.NewTool(ToolGetVersion,
		mcp.WithDescription("Get the version and build information of the hydration MCP service"),
	)
}

// HandleGetVersion implements version information retrieval
func HandleGetVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.Default().With("tool", "get_version")
	return JSONResult(CurrentVersion(), logger), nil
}

// CurrentVersion merges link-time version data with the embedded build info.
func CurrentVersion() VersionInfo {
	info := version.Info()
	v := VersionInfo{
		Version:   info["version"],
		GoVersion: info["go_version"],
		Commit:    info["commit"],
		BuildDate: info["build_date"],
		Settings:  make(map[string]string),
	}

	if BuildInfo == nil {
		return v
	}
	for _, setting := range BuildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.VCSRevision = setting.Value
		case "vcs.time":
			if v.BuildDate == "unknown" {
				v.BuildDate = setting.Value
			}
		default:
			v.Settings[setting.Key] = setting.Value
		}
	}
	return v
}
