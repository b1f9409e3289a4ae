package hydration

import (
	"math"

	"github.com/shopspring/decimal"
)

// GlassMilliliters is the serving size used to express a recommendation in
// glasses.
const GlassMilliliters = 250

// DisplayPlaces is the number of decimal places shown to the user.
const DisplayPlaces = 1

// RoundForDisplay formats liters with one decimal place. Rounding is half
// away from zero on the shortest decimal form of the value, so 3.45 shows as
// 3.5 and 1.65 as 1.7 even though their binary values sit just below the tie.
func RoundForDisplay(liters float64) string {
	return decimal.NewFromFloat(liters).Round(DisplayPlaces).StringFixed(DisplayPlaces)
}

// Rounded returns liters rounded to one decimal place as a number.
func Rounded(liters float64) float64 {
	f, _ := decimal.NewFromFloat(liters).Round(DisplayPlaces).Float64()
	return f
}

// Recommendation is a CalculatorResult prepared for display.
type Recommendation struct {
	Input         CalculatorInput  `json:"input"`
	Result        CalculatorResult `json:"result"`
	Display       string           `json:"display"`
	DisplayLiters float64          `json:"display_liters"`
	Glasses       int              `json:"glasses"`
}

// Recommend calculates and formats the intake for in.
func Recommend(in CalculatorInput) Recommendation {
	res := Calculate(in)
	return Recommendation{
		Input:         in,
		Result:        res,
		Display:       RoundForDisplay(res.Liters),
		DisplayLiters: Rounded(res.Liters),
		Glasses:       Glasses(res.Liters),
	}
}

// Glasses returns how many 250 mL glasses cover liters, rounded up.
func Glasses(liters float64) int {
	ml := decimal.NewFromFloat(liters).Mul(decimal.NewFromInt(1000))
	n := ml.Div(decimal.NewFromInt(GlassMilliliters))
	g, _ := n.Ceil().Float64()
	return int(math.Max(g, 0))
}
