package hydration

import (
	"fmt"
	"math"
)

// referenceCase pins one input to its expected recommendation.
type referenceCase struct {
	in   CalculatorInput
	want float64
}

var referenceCases = []referenceCase{
	{CalculatorInput{Age: 25, WeightKg: 70, Activity: ActivityModerate, Climate: ClimateHot}, 3.521875},
	{CalculatorInput{Age: 10, WeightKg: 30, Activity: ActivityLow, Climate: ClimateCool}, MinLiters},
	{CalculatorInput{Age: 70, WeightKg: 250, Activity: ActivityVeryHigh, Climate: ClimateVeryHot}, MaxLiters},
	{CalculatorInput{Age: 40, WeightKg: 70, Activity: "unknown", Climate: "unknown"}, 2.45},
}

// SelfCheck recomputes the reference recommendations and reports the first
// one that no longer matches.
func SelfCheck() error {
	for _, rc := range referenceCases {
		got := Calculate(rc.in).Liters
		if math.Abs(got-rc.want) > 1e-9 {
			return fmt.Errorf("intake for %+v is %.6f, want %.6f", rc.in, got, rc.want)
		}
	}
	return nil
}
