package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/arogyajal/pkg/tracing"
)

func TestTracingMiddleware(t *testing.T) {
	// No exporter endpoint means a no-op tracer
	os.Unsetenv("OTLP_ENDPOINT")
	ctx := context.Background()
	shutdown, _ := tracing.InitTracing(ctx, "test")
	defer shutdown(ctx)

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if trace.SpanFromContext(r.Context()) == nil {
			t.Error("No span in request context")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response"))
	})
	handler := TracingMiddleware()(testHandler)

	t.Run("Success", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/calculate?sessionId=123", nil)
		req.Header.Set("User-Agent", "test-agent")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
	})

	t.Run("Error", func(t *testing.T) {
		errorHandler := TracingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		rec := httptest.NewRecorder()
		errorHandler.ServeHTTP(rec, httptest.NewRequest("POST", "/chat", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", rec.Code)
		}
	})
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	var seen string
	handler := LoggingMiddleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFrom(r)
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "client-supplied" || rec.Header().Get("X-Request-ID") != "client-supplied" {
		t.Errorf("request id not propagated: handler saw %q, header %q", seen, rec.Header().Get("X-Request-ID"))
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status not preserved: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("X-Request-ID") == "" || seen == "client-supplied" {
		t.Error("expected a generated request id")
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := generateRequestID()
		if seen[id] {
			t.Fatalf("duplicate request id %s", id)
		}
		seen[id] = true
	}
}

func TestResponseWriterInterfaces(t *testing.T) {
	wrapped := newResponseWriter(httptest.NewRecorder())

	var _ http.Flusher = wrapped
	var _ http.Hijacker = wrapped
	var _ http.Pusher = wrapped

	wrapped.Flush()

	if _, _, err := wrapped.Hijack(); err != http.ErrNotSupported {
		t.Errorf("Hijack should return ErrNotSupported, got %v", err)
	}
	if err := wrapped.Push("/test", nil); err != http.ErrNotSupported {
		t.Errorf("Push should return ErrNotSupported, got %v", err)
	}
}

func TestLoggingMiddleware_PreservesFlusher(t *testing.T) {
	var flusherAvailable bool
	handler := LoggingMiddleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flusherAvailable = w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/sse", nil))

	if !flusherAvailable {
		t.Fatal("http.Flusher interface not preserved through middleware")
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		cfg         CORSConfig
		origin      string
		preflight   bool
		wantStatus  int
		wantOrigin  string
		wantCredits bool
	}{
		{"no origin header", CORSConfig{AllowOrigin: "*", AllowCredentials: true}, "", false, http.StatusOK, "", false},
		{"wildcard with credentials echoes", CORSConfig{AllowOrigin: "*", AllowCredentials: true}, "http://app.local", false, http.StatusOK, "http://app.local", true},
		{"wildcard without credentials", CORSConfig{AllowOrigin: "*"}, "http://app.local", false, http.StatusOK, "*", false},
		{"matching origin", CORSConfig{AllowOrigin: "http://app.local"}, "http://app.local", false, http.StatusOK, "http://app.local", false},
		{"foreign origin", CORSConfig{AllowOrigin: "http://app.local"}, "http://evil.local", false, http.StatusOK, "", false},
		{"preflight", CORSConfig{AllowOrigin: "*", AllowCredentials: true}, "http://app.local", true, http.StatusNoContent, "http://app.local", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := http.MethodGet
			if tt.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/chat", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			CORS(tt.cfg)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.wantCredits {
				t.Errorf("credentials = %v, want %v", got, tt.wantCredits)
			}
			if tt.preflight && !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost) {
				t.Error("preflight should allow POST")
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.5"},
		{"bad forwarded falls through", map[string]string{"X-Forwarded-For": "garbage", "X-Real-IP": "198.51.100.7"}, "10.0.0.1:80", "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getIP(req); got != tt.want {
				t.Errorf("getIP = %s, want %s", got, tt.want)
			}
		})
	}
}
