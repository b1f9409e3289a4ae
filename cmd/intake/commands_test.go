package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/NERVsystems/arogyajal/pkg/tools"
)

func TestRun_Calculate(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  []string
	}{
		{
			name:     "adult moderate",
			args:     []string{"calculate", "--age", "30", "--weight", "70", "--activity", "moderate", "--climate", "moderate"},
			wantOut:  []string{"Recommended Daily Water Intake: 3.1 liters", "13 glasses"},
			wantCode: 0,
		},
		{
			name:     "clamped",
			args:     []string{"calculate", "--age", "70", "--weight", "150", "--activity", "very-high", "--climate", "very-hot"},
			wantOut:  []string{"5.0 liters", "Limited to the 1.5-5.0 liter range"},
			wantCode: 0,
		},
		{
			name:     "every error reported",
			args:     []string{"calculate", "--age", "0", "--weight", "5"},
			wantOut:  []string{"age:", "weight:", "activity:", "climate:"},
			wantCode: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr %s)", code, tt.wantCode, stderr.String())
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(stdout.String(), want) {
					t.Errorf("output %q missing %q", stdout.String(), want)
				}
			}
		})
	}
}

func TestRun_CalculateJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"calculate", "--json", "--age", "30", "--weight", "70", "--activity", "low", "--climate", "cool"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, stderr.String())
	}

	var out tools.IntakeResult
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if out.Display != "2.5" {
		t.Errorf("display = %s, want 2.5", out.Display)
	}
}

func TestRun_Validate(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"validate", "--age", "45", "--weight", "60", "--activity", "high", "--climate", "hot"}, &stdout, &stderr)
	if code != 0 || !strings.Contains(stdout.String(), "Form is valid.") {
		t.Errorf("valid form: code %d output %q", code, stdout.String())
	}

	stdout.Reset()
	code = run([]string{"validate", "--json", "--age", "200"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	var v tools.IntakeValidation
	if err := json.Unmarshal(stdout.Bytes(), &v); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if v.Valid || len(v.Errors) != 4 {
		t.Errorf("unexpected validation %+v", v)
	}
}

func TestRun_OptionsAndErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"options"}, &stdout, &stderr); code != 0 {
		t.Fatalf("options exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "very-high") || !strings.Contains(stdout.String(), "very-hot") {
		t.Errorf("options output %q", stdout.String())
	}

	stderr.Reset()
	if code := run([]string{"calculate", "--bogus"}, &stdout, &stderr); code != 1 {
		t.Errorf("unknown flag exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Error:") {
		t.Errorf("expected error on stderr, got %q", stderr.String())
	}
}
