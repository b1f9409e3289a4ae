package server

import (
	"context"
	"testing"
	"time"

	"github.com/NERVsystems/arogyajal/pkg/tools"
)

func TestNewServer(t *testing.T) {
	s, err := NewServer(testLogger(), nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if s.GetMCPServer() == nil {
		t.Fatal("NewServer() returned no MCP server")
	}

	names := s.ToolNames()
	want := map[string]bool{
		tools.ToolCalculateWaterIntake: false,
		tools.ToolWaterQualityChat:     false,
		tools.ToolAnalyzeWaterQuality:  false,
	}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestServer_RunWithContext(t *testing.T) {
	s, err := NewServer(testLogger(), &stubAdvisor{})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunWithContext(ctx) }()

	// Give Run a moment to mark the server running, then cancel
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunWithContext() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
	s.WaitForShutdown()
}

func TestServer_ShutdownBeforeRun(t *testing.T) {
	s, err := NewServer(testLogger(), nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	// Not running yet, so this must not block or panic
	s.Shutdown()
	s.Shutdown()
}
