package advisor

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/NERVsystems/arogyajal/pkg/core"
)

// WaterQualityContext frames every question put to the model.
const WaterQualityContext = `
Context: Water Quality Analysis System
Focus Areas:
- Water quality parameters and their significance
- Waterborne diseases and their prevention
- Water treatment methods and recommendations
- Public health implications of water quality
- Safety measures and preventive actions
`

const chatInstruction = "Provide a helpful response focused on water quality and health."

const analysisInstruction = `Analyze these water quality parameters and provide:
1. Overall water quality assessment
2. Health implications
3. Recommendations for treatment or improvement
4. Potential risks if any parameters are concerning`

// ChatPrompt builds the prompt for a free-text question.
func ChatPrompt(query string) string {
	var b strings.Builder
	b.WriteString(WaterQualityContext)
	b.WriteString("\n\nUser Query: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(chatInstruction)
	return b.String()
}

// AnalysisPrompt builds the prompt for a parameter analysis. Parameters are
// listed in key order so equal requests produce equal prompts.
func AnalysisPrompt(req AnalysisRequest) string {
	keys := make([]string, 0, len(req.Parameters))
	for k := range req.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + formatValue(req.Parameters[k])
	}

	var location, notes string
	if req.Location != "" {
		location = "Location: " + req.Location
	}
	if req.Notes != "" {
		notes = "Notes: " + req.Notes
	}

	var b strings.Builder
	b.WriteString(WaterQualityContext)
	b.WriteString("\n\nWater Quality Parameters:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	b.WriteString(location)
	b.WriteString("\n")
	b.WriteString(notes)
	b.WriteString("\n\n")
	b.WriteString(analysisInstruction)
	return b.String()
}

func formatValue(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err == nil {
			return string(data)
		}
	}
	return core.FieldText(v)
}
