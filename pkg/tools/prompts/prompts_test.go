package prompts

import (
	"strings"
	"testing"
)

func TestWaterQualitySystemPrompt(t *testing.T) {
	p := WaterQualitySystemPrompt()
	for _, want := range []string{
		"Context: Water Quality Analysis System",
		"calculate_water_intake",
		"analyze_water_quality",
		"1.5-5.0 liters",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
