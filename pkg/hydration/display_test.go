package hydration

import "testing"

func TestRoundForDisplay(t *testing.T) {
	tests := map[float64]string{
		1.5:      "1.5",
		5:        "5.0",
		3.521875: "3.5",
		3.45:     "3.5",
		2.449:    "2.4",
		2.45:     "2.5",
	}

	for in, want := range tests {
		if got := RoundForDisplay(in); got != want {
			t.Errorf("RoundForDisplay(%v) = %q, want %q", in, got, want)
		}
	}
}

// Values written with a trailing 5 round up even when the nearest float64 is
// slightly below the tie, which binary toFixed-style rounding would round down.
func TestRoundForDisplay_DecimalTies(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.65, "1.7"},
		{4.35, "4.4"},
		{1.15, "1.2"},
		{2.05, "2.1"},
	}

	for _, tt := range tests {
		if got := RoundForDisplay(tt.in); got != tt.want {
			t.Errorf("RoundForDisplay(%v) = %q, want %q", tt.in, got, tt.want)
		}
		if got := Rounded(tt.in); RoundForDisplay(got) != tt.want {
			t.Errorf("Rounded(%v) = %v, disagrees with display %q", tt.in, got, tt.want)
		}
	}
}

func TestRecommend(t *testing.T) {
	rec := Recommend(CalculatorInput{Age: 25, WeightKg: 70, Activity: ActivityModerate, Climate: ClimateHot})

	if rec.Display != "3.5" {
		t.Errorf("display = %q, want 3.5", rec.Display)
	}
	if rec.DisplayLiters != 3.5 {
		t.Errorf("display liters = %v, want 3.5", rec.DisplayLiters)
	}
	// 3521.875 mL in 250 mL glasses
	if rec.Glasses != 15 {
		t.Errorf("glasses = %d, want 15", rec.Glasses)
	}
}

func TestGlasses(t *testing.T) {
	if got := Glasses(1.5); got != 6 {
		t.Errorf("Glasses(1.5) = %d, want 6", got)
	}
	if got := Glasses(5.0); got != 20 {
		t.Errorf("Glasses(5.0) = %d, want 20", got)
	}
}
