package server

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/NERVsystems/arogyajal/pkg/monitoring"
)

func TestSSEEndpoint_ThroughMiddleware(t *testing.T) {
	s, err := NewServer(testLogger(), nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	transport := NewHTTPTransport(s.GetMCPServer(), DefaultHTTPTransportConfig(), testLogger())
	defer transport.rateLimiter.Stop()

	server := httptest.NewServer(transport.Handler())
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/sse", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept", "text/event-stream")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to connect to SSE endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Expected an event stream, got %s", ct)
	}

	// The first event announces the message endpoint for this session
	reader := bufio.NewReader(resp.Body)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("Error reading SSE stream: %v", err)
		}
		if strings.HasPrefix(line, "data:") {
			if !strings.Contains(line, "/message") || !strings.Contains(line, "sessionId=") {
				t.Errorf("unexpected endpoint event %q", line)
			}
			if got := testutil.ToFloat64(monitoring.ActiveConnections.WithLabelValues("http", "sse")); got < 1 {
				t.Errorf("active sse streams = %v, want at least 1", got)
			}
			return
		}
	}
	t.Fatal("no endpoint event received")
}
