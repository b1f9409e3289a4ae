package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NERVsystems/arogyajal/pkg/advisor"
	"github.com/NERVsystems/arogyajal/pkg/core"
	"github.com/NERVsystems/arogyajal/pkg/tools"
)

type stubAdvisor struct {
	query    string
	analysis advisor.AnalysisRequest
	err      error
}

func (s *stubAdvisor) Chat(ctx context.Context, query string) (advisor.ChatResponse, error) {
	s.query = query
	if s.err != nil {
		return advisor.ChatResponse{}, s.err
	}
	return advisor.ChatResponse{Response: "Boil water for one minute."}, nil
}

func (s *stubAdvisor) Analyze(ctx context.Context, req advisor.AnalysisRequest) (advisor.AnalysisResponse, error) {
	s.analysis = req
	if s.err != nil {
		return advisor.AnalysisResponse{}, s.err
	}
	return advisor.AnalysisResponse{Analysis: "Nitrate is above the limit.", Timestamp: "2024-03-01T09:30:00Z"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
}

func TestHandler_Root(t *testing.T) {
	h := NewHandler(testLogger(), nil)
	rec := serve(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["message"] != RootMessage {
		t.Errorf("message = %q", body["message"])
	}
}

func TestHandler_Calculate(t *testing.T) {
	h := NewHandler(testLogger(), nil)

	rec := serve(t, h, http.MethodPost, RouteCalculate,
		`{"age":"30","weight":"70","activity":"moderate","climate":"moderate"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out tools.IntakeResult
	decodeBody(t, rec, &out)
	if out.Display != "3.1" {
		t.Errorf("display = %s, want 3.1", out.Display)
	}
	if out.Message != "Recommended Daily Water Intake: 3.1 liters" {
		t.Errorf("message = %q", out.Message)
	}
}

func TestHandler_CalculateInvalid(t *testing.T) {
	h := NewHandler(testLogger(), nil)

	rec := serve(t, h, http.MethodPost, RouteCalculate, `{"age":"150","weight":"70"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Code != string(core.ErrInvalidAge) {
		t.Errorf("code = %s, want %s", body.Code, core.ErrInvalidAge)
	}
	if len(body.Errors) != 3 {
		t.Errorf("expected age, activity and climate errors, got %+v", body.Errors)
	}
	if body.Detail == "" {
		t.Error("detail should not be empty")
	}
}

func TestHandler_Validate(t *testing.T) {
	h := NewHandler(testLogger(), nil)

	rec := serve(t, h, http.MethodPost, RouteValidate, `{"age":45,"weight":60,"activity":"high","climate":"hot"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out tools.IntakeValidation
	decodeBody(t, rec, &out)
	if !out.Valid {
		t.Errorf("expected valid form, got %+v", out)
	}
}

func TestHandler_Chat(t *testing.T) {
	stub := &stubAdvisor{}
	h := NewHandler(testLogger(), stub)

	rec := serve(t, h, http.MethodPost, RouteChat, `{"query":"How do I purify well water?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out advisor.ChatResponse
	decodeBody(t, rec, &out)
	if out.Response == "" || stub.query != "How do I purify well water?" {
		t.Errorf("unexpected response %+v for query %q", out, stub.query)
	}
}

func TestHandler_Analyze(t *testing.T) {
	stub := &stubAdvisor{}
	h := NewHandler(testLogger(), stub)

	rec := serve(t, h, http.MethodPost, RouteAnalyze,
		`{"parameters":{"pH":7.2,"nitrate":"60 mg/L"},"location":"Village well"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out advisor.AnalysisResponse
	decodeBody(t, rec, &out)
	if out.Timestamp == "" || out.Analysis == "" {
		t.Errorf("unexpected analysis %+v", out)
	}
	if stub.analysis.Location != "Village well" || stub.analysis.Parameters["pH"] != 7.2 {
		t.Errorf("request not forwarded: %+v", stub.analysis)
	}
}

func TestHandler_AdvisorErrors(t *testing.T) {
	tests := []struct {
		name       string
		adv        tools.Advisor
		path       string
		body       string
		wantStatus int
		wantCode   core.ErrorCode
	}{
		{"not configured", nil, RouteChat, `{"query":"hi"}`, http.StatusServiceUnavailable, core.ErrServiceUnavailable},
		{"rate limited", &stubAdvisor{err: core.NewError(core.ErrRateLimit, "slow down")}, RouteChat, `{"query":"hi"}`, http.StatusTooManyRequests, core.ErrRateLimit},
		{"empty query", &stubAdvisor{err: core.NewError(core.ErrEmptyParameter, "query is empty")}, RouteChat, `{"query":""}`, http.StatusBadRequest, core.ErrEmptyParameter},
		{"upstream failure", &stubAdvisor{err: core.NewError(core.ErrServiceUnavailable, "model unavailable")}, RouteAnalyze, `{"parameters":{"pH":7}}`, http.StatusServiceUnavailable, core.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(testLogger(), tt.adv)
			rec := serve(t, h, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			var body errorBody
			decodeBody(t, rec, &body)
			if body.Code != string(tt.wantCode) {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
			if body.Detail == "" {
				t.Error("detail should not be empty")
			}
		})
	}
}

func TestHandler_UpstreamFaultsAreServerErrors(t *testing.T) {
	tests := []struct {
		name     string
		upstream http.HandlerFunc
	}{
		{"malformed payload", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "not json")
		}},
		{"upstream bad request", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(tt.upstream)
			defer upstream.Close()

			cfg := advisor.DefaultConfig()
			cfg.APIKey = "test-key"
			cfg.BaseURL = upstream.URL
			cfg.Client = upstream.Client()
			cfg.Retry = core.RetryOptions{MaxAttempts: 1}
			adv, err := advisor.New(cfg, testLogger())
			if err != nil {
				t.Fatalf("advisor.New: %v", err)
			}
			defer adv.Close()

			rec := serve(t, NewHandler(testLogger(), adv), http.MethodPost, RouteChat, `{"query":"is my tap water safe?"}`)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
			}
			var body errorBody
			decodeBody(t, rec, &body)
			if body.Code != string(core.ErrUpstreamError) {
				t.Errorf("code = %s, want %s", body.Code, core.ErrUpstreamError)
			}
		})
	}
}

func TestHandler_BadRequests(t *testing.T) {
	h := NewHandler(testLogger(), &stubAdvisor{})

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"malformed json", http.MethodPost, RouteChat, `{"query":`, http.StatusUnprocessableEntity},
		{"wrong field type", http.MethodPost, RouteChat, `{"query":42}`, http.StatusUnprocessableEntity},
		{"empty body", http.MethodPost, RouteCalculate, "", http.StatusUnprocessableEntity},
		{"wrong method", http.MethodGet, RouteCalculate, "", http.StatusMethodNotAllowed},
		{"post to root", http.MethodPost, "/", `{}`, http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/nowhere", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
		})
	}
}
