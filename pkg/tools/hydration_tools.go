package tools

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/arogyajal/pkg/core"
	"github.com/NERVsystems/arogyajal/pkg/hydration"
	"github.com/NERVsystems/arogyajal/pkg/monitoring"
	"github.com/NERVsystems/arogyajal/pkg/tracing"
)

// IntakeResult is the calculator answer returned to clients.
type IntakeResult struct {
	hydration.Recommendation
	Message string `json:"message"`
}

// FieldStates maps every form field to its styling state.
type FieldStates map[string]hydration.FieldState

// IntakeValidation reports the state of a partially filled form.
type IntakeValidation struct {
	Valid  bool                   `json:"valid"`
	Errors []hydration.FieldError `json:"errors"`
	Fields FieldStates            `json:"fields"`
}

// IntakeOption describes one selectable value and its multiplier.
type IntakeOption struct {
	Value      string  `json:"value"`
	Multiplier float64 `json:"multiplier"`
}

// IntakeOptions lists the selectable values of the calculator form.
type IntakeOptions struct {
	Activities []IntakeOption `json:"activities"`
	Climates   []IntakeOption `json:"climates"`
	AgeBands   []IntakeOption `json:"age_bands"`
	MinLiters  float64        `json:"min_liters"`
	MaxLiters  float64        `json:"max_liters"`
	MinAge     int            `json:"min_age"`
	MaxAge     int            `json:"max_age"`
	MinWeight  float64        `json:"min_weight_kg"`
	MaxWeight  float64        `json:"max_weight_kg"`
}

var intakeFields = []string{
	hydration.FieldAge,
	hydration.FieldWeight,
	hydration.FieldActivity,
	hydration.FieldClimate,
}

func intakeFactory() *core.ToolFactory {
	activities := make([]string, 0, len(hydration.ActivityLevels()))
	for _, a := range hydration.ActivityLevels() {
		activities = append(activities, string(a))
	}
	climates := make([]string, 0, len(hydration.Climates()))
	for _, c := range hydration.Climates() {
		climates = append(climates, string(c))
	}
	return core.NewToolFactory(activities, climates)
}

// CalculateWaterIntakeTool returns a tool definition for the intake calculator
func CalculateWaterIntakeTool() mcp.Tool {
	return intakeFactory().CreateIntakeTool(ToolCalculateWaterIntake,
		"Calculate the recommended daily water intake in liters from age, weight, activity level and climate",
		hydration.MinAge, hydration.MaxAge, hydration.MinWeightKg, hydration.MaxWeightKg)
}

// HandleCalculateWaterIntake validates the form and returns the recommendation
func HandleCalculateWaterIntake(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.Default().With("tool", "calculate_water_intake")

	values := core.FormValuesFromArgs(req.GetArguments())
	result, err := CalculateIntake(ctx, values, logger)
	if err != nil {
		return core.FormError(err).
			WithGuidance("Example: " + GetToolUsageExample(ToolCalculateWaterIntake)).
			ToMCPResult(), nil
	}
	return JSONResult(result, logger), nil
}

// CalculateIntake validates values, calculates the recommendation and records
// calculator metrics. A non-nil error is always a hydration.FormErrors.
func CalculateIntake(ctx context.Context, values hydration.FormValues, logger *slog.Logger) (IntakeResult, error) {
	in, err := core.ValidateFormWithLog(values, logger)
	if err != nil {
		recordValidationFailures(err)
		tracing.RecordError(ctx, err)
		return IntakeResult{}, err
	}

	rec := hydration.Recommend(in)
	res := rec.Result

	tracing.SetAttributes(ctx, tracing.IntakeAttributes(
		string(res.Breakdown.AgeBand), string(in.Activity), string(in.Climate), res.Liters, res.Clamped)...)
	monitoring.RecordCalculation(string(res.Breakdown.AgeBand),
		optionLabel(in.Activity.Known(), string(in.Activity)),
		optionLabel(in.Climate.Known(), string(in.Climate)),
		res.Liters, clampBound(res))

	logger.Debug("water intake calculated",
		"age_band", res.Breakdown.AgeBand,
		"liters", res.Liters,
		"clamped", res.Clamped,
	)

	return IntakeResult{
		Recommendation: rec,
		Message:        "Recommended Daily Water Intake: " + rec.Display + " liters",
	}, nil
}

// ValidateIntakeFormTool returns a tool definition for form validation
func ValidateIntakeFormTool() mcp.Tool {
	return mcp.NewTool(ToolValidateIntakeForm,
		mcp.WithDescription("Validate calculator form values without calculating"),
		mcp.WithString(hydration.FieldAge, mcp.Description("Age in whole years")),
		mcp.WithString(hydration.FieldWeight, mcp.Description("Body weight in kilograms")),
		mcp.WithString(hydration.FieldActivity, mcp.Description("Selected activity level")),
		mcp.WithString(hydration.FieldClimate, mcp.Description("Selected climate")),
	)
}

// HandleValidateIntakeForm reports every failed field and the state of each control
func HandleValidateIntakeForm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.Default().With("tool", "validate_intake_form")
	return JSONResult(ValidateIntake(core.FormValuesFromArgs(req.GetArguments())), logger), nil
}

// ValidateIntake checks the whole form and each field on its own.
func ValidateIntake(values hydration.FormValues) IntakeValidation {
	raw := map[string]string{
		hydration.FieldAge:      values.Age,
		hydration.FieldWeight:   values.Weight,
		hydration.FieldActivity: values.Activity,
		hydration.FieldClimate:  values.Climate,
	}

	v := IntakeValidation{
		Valid:  true,
		Errors: []hydration.FieldError{},
		Fields: make(FieldStates, len(intakeFields)),
	}
	for _, field := range intakeFields {
		state, _ := hydration.ValidateField(field, raw[field])
		v.Fields[field] = state
	}

	if _, err := hydration.ValidateForm(values); err != nil {
		var formErrs hydration.FormErrors
		if errors.As(err, &formErrs) {
			v.Errors = formErrs
		}
		v.Valid = false
		recordValidationFailures(err)
	}
	return v
}

// ListIntakeOptionsTool returns a tool definition listing form options
func ListIntakeOptionsTool() mcp.Tool {
	return intakeFactory().CreateBasicTool(ToolListIntakeOptions,
		"List accepted activity levels, climates and age bands with their intake multipliers")
}

// HandleListIntakeOptions returns the calculator's selectable values
func HandleListIntakeOptions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.Default().With("tool", "list_intake_options")
	return JSONResult(ListIntakeOptions(), logger), nil
}

// ListIntakeOptions returns the calculator's selectable values.
func ListIntakeOptions() IntakeOptions {
	opts := IntakeOptions{
		MinLiters: hydration.MinLiters,
		MaxLiters: hydration.MaxLiters,
		MinAge:    hydration.MinAge,
		MaxAge:    hydration.MaxAge,
		MinWeight: hydration.MinWeightKg,
		MaxWeight: hydration.MaxWeightKg,
	}
	for _, a := range hydration.ActivityLevels() {
		opts.Activities = append(opts.Activities, IntakeOption{Value: string(a), Multiplier: a.Multiplier()})
	}
	for _, c := range hydration.Climates() {
		opts.Climates = append(opts.Climates, IntakeOption{Value: string(c), Multiplier: c.Multiplier()})
	}
	for _, b := range []hydration.AgeBand{hydration.AgeBandChild, hydration.AgeBandAdult, hydration.AgeBandSenior} {
		opts.AgeBands = append(opts.AgeBands, IntakeOption{Value: string(b), Multiplier: b.Multiplier()})
	}
	return opts
}

func recordValidationFailures(err error) {
	var formErrs hydration.FormErrors
	if !errors.As(err, &formErrs) {
		return
	}
	for _, fe := range formErrs {
		monitoring.RecordValidationFailure(fe.Field)
	}
}

// optionLabel keeps free-form selections out of metric labels.
func optionLabel(known bool, value string) string {
	if known {
		return value
	}
	return "other"
}

func clampBound(res hydration.CalculatorResult) string {
	switch {
	case !res.Clamped:
		return ""
	case res.Breakdown.UnclampedLiters < hydration.MinLiters:
		return "min"
	default:
		return "max"
	}
}
