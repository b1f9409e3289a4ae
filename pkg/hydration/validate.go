package hydration

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Form field names, in the order they appear on the calculator form.
const (
	FieldAge      = "age"
	FieldWeight   = "weight"
	FieldActivity = "activity"
	FieldClimate  = "climate"
)

// Domain bounds for the numeric form fields.
const (
	MinAge      = 1
	MaxAge      = 120
	MinWeightKg = 10.0
	MaxWeightKg = 300.0
)

// User-facing messages for each failed field.
const (
	MsgInvalidAge       = "Please enter a valid age (1-120)."
	MsgInvalidWeight    = "Please enter a valid weight (10-300 kg)."
	MsgMissingActivity  = "Please select an activity level."
	MsgMissingClimate   = "Please select a climate."
	msgRequiredGeneric  = "This field is required."
	msgUnknownFieldName = "unknown form field %q"
)

// FormValues are the raw strings submitted by the calculator form.
type FormValues struct {
	Age      string `json:"age"`
	Weight   string `json:"weight"`
	Activity string `json:"activity"`
	Climate  string `json:"climate"`
}

// FieldError describes one field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FormErrors collects every failed field of a submission.
type FormErrors []FieldError

// Error joins the field messages the way the form reports them to the user.
func (fe FormErrors) Error() string {
	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, " ")
}

// Fields returns the names of the failed fields in form order.
func (fe FormErrors) Fields() []string {
	names := make([]string, len(fe))
	for i, e := range fe {
		names[i] = e.Field
	}
	return names
}

// Has reports whether field failed validation.
func (fe FormErrors) Has(field string) bool {
	for _, e := range fe {
		if e.Field == field {
			return true
		}
	}
	return false
}

// ValidateForm checks all four fields and returns a CalculatorInput ready for
// Calculate. Every failure is reported; validation never stops at the first
// bad field. The returned error, when non-nil, is a FormErrors.
func ValidateForm(v FormValues) (CalculatorInput, error) {
	var errs FormErrors

	age, ok := parseAge(v.Age)
	if !ok {
		errs = append(errs, FieldError{Field: FieldAge, Value: v.Age, Message: MsgInvalidAge})
	}

	weight, ok := parseWeight(v.Weight)
	if !ok {
		errs = append(errs, FieldError{Field: FieldWeight, Value: v.Weight, Message: MsgInvalidWeight})
	}

	activity := strings.TrimSpace(v.Activity)
	if activity == "" {
		errs = append(errs, FieldError{Field: FieldActivity, Message: MsgMissingActivity})
	}

	climate := strings.TrimSpace(v.Climate)
	if climate == "" {
		errs = append(errs, FieldError{Field: FieldClimate, Message: MsgMissingClimate})
	}

	if len(errs) > 0 {
		return CalculatorInput{}, errs
	}

	return CalculatorInput{
		Age:      age,
		WeightKg: weight,
		Activity: ActivityLevel(activity),
		Climate:  Climate(climate),
	}, nil
}

// FieldState is the styling state of a single form control.
type FieldState string

// Field states.
const (
	FieldValid   FieldState = "valid"
	FieldInvalid FieldState = "error"
)

// ValidateField checks one field as the user leaves it. Select fields only
// need a value; numeric fields must also be in range.
func ValidateField(field, value string) (FieldState, error) {
	value = strings.TrimSpace(value)

	switch field {
	case FieldAge:
		if _, ok := parseAge(value); !ok {
			return FieldInvalid, FieldError{Field: field, Value: value, Message: MsgInvalidAge}
		}
	case FieldWeight:
		if _, ok := parseWeight(value); !ok {
			return FieldInvalid, FieldError{Field: field, Value: value, Message: MsgInvalidWeight}
		}
	case FieldActivity, FieldClimate:
		if value == "" {
			return FieldInvalid, FieldError{Field: field, Message: msgRequiredGeneric}
		}
	default:
		return FieldInvalid, fmt.Errorf(msgUnknownFieldName, field)
	}

	return FieldValid, nil
}

// parseAge reads an age the way an integer form field does: the leading
// number is used and any fractional part is dropped.
func parseAge(s string) (int, bool) {
	f, ok := leadingNumber(s, false)
	if !ok {
		return 0, false
	}
	f = math.Trunc(f)
	if f < MinAge || f > MaxAge {
		return 0, false
	}
	return int(f), true
}

// parseWeight reads a weight the way a real-valued field does, so exponent
// notation such as "1e2" is accepted.
func parseWeight(s string) (float64, bool) {
	w, ok := leadingNumber(s, true)
	if !ok || w < MinWeightKg || w > MaxWeightKg {
		return 0, false
	}
	return w, true
}

// leadingNumber parses the longest numeric prefix of s, so "70kg" reads as
// 70. An exponent is only consumed when withExponent is set and at least one
// exponent digit follows, so "1e" reads as 1.
func leadingNumber(s string, withExponent bool) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	seenDigit, seenDot := false, false
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	for ; i < len(s); i++ {
		c := s[i]
		if isDigit(c) {
			seenDigit = true
		} else if c != '.' || seenDot {
			break
		} else {
			seenDot = true
		}
		end = i + 1
	}
	if !seenDigit {
		return 0, false
	}
	if withExponent && i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
