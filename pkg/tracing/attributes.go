package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for MCP operations
const (
	// MCP tool attributes
	AttrMCPToolName     = "mcp.tool.name"
	AttrMCPToolStatus   = "mcp.tool.status"
	AttrMCPToolDuration = "mcp.tool.duration_ms"
	AttrMCPResultSize   = "mcp.tool.result_size"

	// Hydration calculator attributes
	AttrIntakeAgeBand  = "hydration.age_band"
	AttrIntakeActivity = "hydration.activity"
	AttrIntakeClimate  = "hydration.climate"
	AttrIntakeLiters   = "hydration.liters"
	AttrIntakeClamped  = "hydration.clamped"

	// External service attributes
	AttrServiceName      = "arogyajal.service.name"
	AttrServiceOperation = "arogyajal.service.operation"
	AttrServiceURL       = "arogyajal.service.url"
	AttrServiceStatus    = "arogyajal.service.status"
	AttrAdvisorModel     = "arogyajal.advisor.model"

	// Cache attributes
	AttrCacheType = "arogyajal.cache.type"
	AttrCacheHit  = "arogyajal.cache.hit"
	AttrCacheKey  = "arogyajal.cache.key"

	// Rate limiting attributes
	AttrRateLimitService = "arogyajal.ratelimit.service"
	AttrRateLimitWaitMs  = "arogyajal.ratelimit.wait_ms"

	// HTTP transport attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
	AttrHTTPPath       = "http.path"
	AttrHTTPSessionID  = "http.session_id"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusTimeout     = "timeout"
	StatusRateLimited = "rate_limited"
)

// Service names
const (
	ServiceAdvisor = "advisor"
)

// Cache types
const (
	CacheTypeAnalysis = "analysis"
	CacheTypeChat     = "chat"
)

// MCPToolAttributes returns attributes for MCP tool execution
func MCPToolAttributes(toolName string, status string, durationMs int64, resultSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrMCPToolName, toolName),
		attribute.String(AttrMCPToolStatus, status),
		attribute.Int64(AttrMCPToolDuration, durationMs),
		attribute.Int(AttrMCPResultSize, resultSize),
	}
}

// IntakeAttributes returns attributes describing one calculation
func IntakeAttributes(ageBand, activity, climate string, liters float64, clamped bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrIntakeAgeBand, ageBand),
		attribute.String(AttrIntakeActivity, activity),
		attribute.String(AttrIntakeClimate, climate),
		attribute.Float64(AttrIntakeLiters, liters),
		attribute.Bool(AttrIntakeClamped, clamped),
	}
}

// ServiceAttributes returns attributes for external service calls
func ServiceAttributes(service, operation, url string, status int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrServiceName, service),
		attribute.String(AttrServiceOperation, operation),
		attribute.String(AttrServiceURL, url),
		attribute.Int(AttrServiceStatus, status),
	}
}

// CacheAttributes returns attributes for cache operations
func CacheAttributes(cacheType string, hit bool, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCacheType, cacheType),
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheKey, key),
	}
}

// ErrorAttributes returns attributes for errors
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, "error"),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
