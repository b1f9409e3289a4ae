// Package hydration implements the daily water intake recommendation and the
// form validation that guards it.
package hydration

// ActivityLevel is the self-reported physical activity of the person.
type ActivityLevel string

// Activity levels accepted by the calculator form.
const (
	ActivityLow      ActivityLevel = "low"
	ActivityModerate ActivityLevel = "moderate"
	ActivityHigh     ActivityLevel = "high"
	ActivityVeryHigh ActivityLevel = "very-high"
)

// Climate is the ambient climate the person lives in. It shares the literal
// "moderate" with ActivityLevel but is a separate enumeration.
type Climate string

// Climates accepted by the calculator form.
const (
	ClimateCool     Climate = "cool"
	ClimateModerate Climate = "moderate"
	ClimateHot      Climate = "hot"
	ClimateVeryHot  Climate = "very-hot"
)

const (
	// LitersPerKg is the weight-proportional baseline (35 mL per kg).
	LitersPerKg = 0.035

	// MinLiters and MaxLiters bound every recommendation.
	MinLiters = 1.5
	MaxLiters = 5.0

	// ChildAgeLimit and SeniorAgeLimit delimit the age bands.
	ChildAgeLimit  = 18
	SeniorAgeLimit = 65

	childMultiplier  = 1.10
	seniorMultiplier = 1.15

	// neutralMultiplier is used for adults and for any unrecognized
	// activity or climate value.
	neutralMultiplier = 1.0
)

var activityMultipliers = map[ActivityLevel]float64{
	ActivityLow:      1.00,
	ActivityModerate: 1.15,
	ActivityHigh:     1.30,
	ActivityVeryHigh: 1.50,
}

var climateMultipliers = map[Climate]float64{
	ClimateCool:     1.00,
	ClimateModerate: 1.10,
	ClimateHot:      1.25,
	ClimateVeryHot:  1.40,
}

// ActivityLevels returns the known activity levels from least to most active.
func ActivityLevels() []ActivityLevel {
	return []ActivityLevel{ActivityLow, ActivityModerate, ActivityHigh, ActivityVeryHigh}
}

// Climates returns the known climates from coolest to hottest.
func Climates() []Climate {
	return []Climate{ClimateCool, ClimateModerate, ClimateHot, ClimateVeryHot}
}

// Known reports whether a is one of the defined activity levels.
func (a ActivityLevel) Known() bool {
	_, ok := activityMultipliers[a]
	return ok
}

// Multiplier returns the intake multiplier for the activity level.
// Unrecognized values map to 1.0.
func (a ActivityLevel) Multiplier() float64 {
	if m, ok := activityMultipliers[a]; ok {
		return m
	}
	return neutralMultiplier
}

// Known reports whether c is one of the defined climates.
func (c Climate) Known() bool {
	_, ok := climateMultipliers[c]
	return ok
}

// Multiplier returns the intake multiplier for the climate.
// Unrecognized values map to 1.0.
func (c Climate) Multiplier() float64 {
	if m, ok := climateMultipliers[c]; ok {
		return m
	}
	return neutralMultiplier
}

// AgeBand names the age adjustment that applies to a person.
type AgeBand string

// Age bands. Exactly one applies to any age.
const (
	AgeBandChild  AgeBand = "child"
	AgeBandAdult  AgeBand = "adult"
	AgeBandSenior AgeBand = "senior"
)

// BandForAge returns the age band for age.
func BandForAge(age int) AgeBand {
	switch {
	case age < ChildAgeLimit:
		return AgeBandChild
	case age > SeniorAgeLimit:
		return AgeBandSenior
	default:
		return AgeBandAdult
	}
}

// Multiplier returns the intake multiplier for the band.
func (b AgeBand) Multiplier() float64 {
	switch b {
	case AgeBandChild:
		return childMultiplier
	case AgeBandSenior:
		return seniorMultiplier
	default:
		return neutralMultiplier
	}
}

// CalculatorInput holds one validated calculation request.
type CalculatorInput struct {
	Age      int           `json:"age"`
	WeightKg float64       `json:"weight"`
	Activity ActivityLevel `json:"activity"`
	Climate  Climate       `json:"climate"`
}

// Breakdown exposes every factor that went into a recommendation.
type Breakdown struct {
	BaselineLiters     float64 `json:"baseline_liters"`
	AgeBand            AgeBand `json:"age_band"`
	AgeMultiplier      float64 `json:"age_multiplier"`
	ActivityMultiplier float64 `json:"activity_multiplier"`
	ClimateMultiplier  float64 `json:"climate_multiplier"`
	UnclampedLiters    float64 `json:"unclamped_liters"`
}

// CalculatorResult is the recommendation for one CalculatorInput.
// Liters is the canonical value; rounding is left to the caller.
type CalculatorResult struct {
	Liters    float64   `json:"liters"`
	Clamped   bool      `json:"clamped"`
	Breakdown Breakdown `json:"breakdown"`
}

// Calculate returns the recommended daily intake for in. It performs no
// validation: in must already have passed ValidateForm.
func Calculate(in CalculatorInput) CalculatorResult {
	band := BandForAge(in.Age)
	b := Breakdown{
		BaselineLiters:     in.WeightKg * LitersPerKg,
		AgeBand:            band,
		AgeMultiplier:      band.Multiplier(),
		ActivityMultiplier: in.Activity.Multiplier(),
		ClimateMultiplier:  in.Climate.Multiplier(),
	}

	// Order matters for float rounding: age, then activity, then climate.
	liters := b.BaselineLiters
	liters *= b.AgeMultiplier
	liters *= b.ActivityMultiplier
	liters *= b.ClimateMultiplier
	b.UnclampedLiters = liters

	clamped := Clamp(liters, MinLiters, MaxLiters)
	return CalculatorResult{
		Liters:    clamped,
		Clamped:   clamped != liters,
		Breakdown: b,
	}
}

// WaterIntake is the four-argument form of Calculate.
func WaterIntake(age int, weightKg float64, activity, climate string) float64 {
	return Calculate(CalculatorInput{
		Age:      age,
		WeightKg: weightKg,
		Activity: ActivityLevel(activity),
		Climate:  Climate(climate),
	}).Liters
}

// Clamp constrains v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
