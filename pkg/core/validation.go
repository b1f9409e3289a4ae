package core

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/NERVsystems/arogyajal/pkg/hydration"
)

// MaxQueryLength bounds free-text questions sent to the advisor
const MaxQueryLength = 4000

// FieldText renders a JSON argument as the string a form control would hold.
// Numbers arrive as float64 from JSON and are printed without exponent.
func FieldText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// FormValuesFromArgs maps tool or JSON body arguments onto form values
func FormValuesFromArgs(args map[string]any) hydration.FormValues {
	return hydration.FormValues{
		Age:      FieldText(args[hydration.FieldAge]),
		Weight:   FieldText(args[hydration.FieldWeight]),
		Activity: FieldText(args[hydration.FieldActivity]),
		Climate:  FieldText(args[hydration.FieldClimate]),
	}
}

var fieldCodes = map[string]ErrorCode{
	hydration.FieldAge:      ErrInvalidAge,
	hydration.FieldWeight:   ErrInvalidWeight,
	hydration.FieldActivity: ErrMissingSelection,
	hydration.FieldClimate:  ErrMissingSelection,
}

// FormError converts form validation failures into an MCPError. The code
// names the first failed field; every field message is listed as a
// suggestion so nothing is lost.
func FormError(err error) *MCPError {
	var formErrs hydration.FormErrors
	if !errors.As(err, &formErrs) || len(formErrs) == 0 {
		return AsMCPError(err)
	}

	code, ok := fieldCodes[formErrs[0].Field]
	if !ok {
		code = ErrInvalidInput
	}

	mcpErr := NewValidationError(code, formErrs.Error())
	for _, fe := range formErrs {
		mcpErr.WithSuggestions(fe.Message)
	}
	return mcpErr
}

// ValidateQuery checks a free-text advisor question
func ValidateQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", NewValidationError(ErrEmptyParameter, "query must not be empty")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return "", NewValidationError(ErrInvalidParameter,
			fmt.Sprintf("query is longer than %d characters", MaxQueryLength))
	}
	return query, nil
}

// ValidateFormWithLog validates the form and logs which fields failed
func ValidateFormWithLog(v hydration.FormValues, logger *slog.Logger) (hydration.CalculatorInput, error) {
	in, err := hydration.ValidateForm(v)
	if err != nil {
		var formErrs hydration.FormErrors
		if errors.As(err, &formErrs) {
			logger.Info("intake form rejected", "fields", formErrs.Fields())
		}
	}
	return in, err
}
