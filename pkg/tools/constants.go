package tools

// Tool names
const (
	ToolGetVersion           = "get_version"
	ToolCalculateWaterIntake = "calculate_water_intake"
	ToolValidateIntakeForm   = "validate_intake_form"
	ToolListIntakeOptions    = "list_intake_options"
	ToolWaterQualityChat     = "water_quality_chat"
	ToolAnalyzeWaterQuality  = "analyze_water_quality"
)
