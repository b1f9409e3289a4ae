package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/NERVsystems/arogyajal/pkg/version"
)

// Overall service statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Component states. A disabled component is one the operator has not
// configured, such as the advisor without an API key.
const (
	StateConnected    = "connected"
	StateDegraded     = "degraded"
	StateDisabled     = "disabled"
	StateError        = "error"
	StateDisconnected = "disconnected"
)

// selfCheckTimeout bounds all self-checks run for one readiness request
const selfCheckTimeout = 2 * time.Second

// SelfCheck verifies an in-process invariant. Self-checks gate readiness.
type SelfCheck func(ctx context.Context) error

// Readiness is the body served by the readiness endpoint.
type Readiness struct {
	Ready  bool              `json:"ready"`
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthChecker aggregates component states and self-checks into the
// health, readiness and liveness answers.
type HealthChecker struct {
	serviceName string
	version     string
	startTime   time.Time
	mu          sync.RWMutex
	connections map[string]*ConnStatus
	checks      map[string]SelfCheck
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewHealthChecker creates a checker and starts the runtime gauge updates.
func NewHealthChecker(serviceName, version string) *HealthChecker {
	ctx, cancel := context.WithCancel(context.Background())

	hc := &HealthChecker{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		connections: make(map[string]*ConnStatus),
		checks:      make(map[string]SelfCheck),
		ctx:         ctx,
		cancel:      cancel,
	}

	hc.updateSystemMetrics()
	go hc.collectSystemMetrics()

	return hc
}

// UpdateConnection records the last observed state of a component.
func (h *HealthChecker) UpdateConnection(name, status string, latencyMs int64, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[name] = &ConnStatus{
		Status:    status,
		Latency:   latencyMs,
		LastError: errStr,
	}
}

// MarkDisabled reports a component that is switched off by configuration.
// The service stays up but reports itself degraded.
func (h *HealthChecker) MarkDisabled(name, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[name] = &ConnStatus{Status: StateDisabled, LastError: reason}
}

// RemoveConnection stops reporting a component.
func (h *HealthChecker) RemoveConnection(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, name)
}

// AddSelfCheck registers a named readiness check, replacing any check with
// the same name.
func (h *HealthChecker) AddSelfCheck(name string, check SelfCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// overallStatus folds component states into one status. More than half of
// the components failing makes the service unhealthy.
func overallStatus(conns map[string]ConnStatus) (status string, failing, degraded int) {
	for _, c := range conns {
		switch c.Status {
		case StateError, StateDisconnected:
			failing++
		case StateDegraded, StateDisabled:
			degraded++
		}
	}

	switch {
	case failing > len(conns)/2:
		return StatusUnhealthy, failing, degraded
	case failing > 0, degraded > 0:
		return StatusDegraded, failing, degraded
	default:
		return StatusHealthy, failing, degraded
	}
}

func (h *HealthChecker) snapshot() map[string]ConnStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make(map[string]ConnStatus, len(h.connections))
	for k, v := range h.connections {
		conns[k] = *v
	}
	return conns
}

// GetHealth returns the current health status
func (h *HealthChecker) GetHealth() ServiceHealth {
	conns := h.snapshot()
	status, failing, degraded := overallStatus(conns)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := time.Since(h.startTime)

	return ServiceHealth{
		Service:       h.serviceName,
		Version:       h.version,
		Status:        status,
		Uptime:        uptime,
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime,
		Connections:   conns,
		Metrics: map[string]interface{}{
			"goroutines":          runtime.NumGoroutine(),
			"memory_alloc_mb":     m.Alloc / 1024 / 1024,
			"version_info":        version.Info(),
			"components":          len(conns),
			"failing_components":  failing,
			"degraded_components": degraded,
		},
	}
}

// Ready runs every self-check and combines them with the component status.
func (h *HealthChecker) Ready(ctx context.Context) Readiness {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]SelfCheck, len(h.checks))
	for name, fn := range h.checks {
		checks[name] = fn
	}
	h.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, selfCheckTimeout)
	defer cancel()

	status, _, _ := overallStatus(h.snapshot())
	r := Readiness{Ready: status != StatusUnhealthy, Status: status}
	if len(names) > 0 {
		r.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			r.Checks[name] = err.Error()
			r.Ready = false
			RecordError("health", "self_check_"+name)
			continue
		}
		r.Checks[name] = "ok"
	}
	if !r.Ready && r.Status == StatusHealthy {
		r.Status = StatusUnhealthy
	}
	return r
}

// HealthHandler serves GetHealth. Degraded still answers 200.
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()
		code := http.StatusOK
		if health.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeHealthJSON(w, code, health)
	}
}

// ReadinessHandler serves Ready; a failed self-check answers 503.
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := h.Ready(r.Context())
		code := http.StatusOK
		if !ready.Ready {
			code = http.StatusServiceUnavailable
		}
		writeHealthJSON(w, code, ready)
	}
}

// LivenessHandler answers as long as the process can serve requests.
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealthJSON(w, http.StatusOK, map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Round(time.Second).String(),
		})
	}
}

func writeHealthJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		RecordError("health", "encode")
	}
}

func (h *HealthChecker) collectSystemMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.updateSystemMetrics()
		}
	}
}

func (h *HealthChecker) updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	GoRoutines.Set(float64(runtime.NumGoroutine()))
	MemoryUsage.Set(float64(m.Alloc))
	GCRuns.Set(float64(m.NumGC))

	info := version.Info()
	SystemInfo.WithLabelValues(info["version"], info["go_version"], info["commit"], info["build_date"]).Set(1)
}

// Shutdown stops the runtime gauge updates.
func (h *HealthChecker) Shutdown() {
	h.cancel()
}

// ConnectionMonitor periodically checks an upstream and records the result
// as a component state.
type ConnectionMonitor struct {
	name          string
	healthChecker *HealthChecker
	check         func(ctx context.Context) error
	interval      time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewConnectionMonitor creates a monitor. Each check gets half the interval
// to complete.
func NewConnectionMonitor(name string, hc *HealthChecker, check func(ctx context.Context) error, interval time.Duration) *ConnectionMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &ConnectionMonitor{
		name:          name,
		healthChecker: hc,
		check:         check,
		interval:      interval,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start begins probing in the background.
func (cm *ConnectionMonitor) Start() {
	go cm.monitor()
}

// Stop stops probing.
func (cm *ConnectionMonitor) Stop() {
	cm.cancel()
}

func (cm *ConnectionMonitor) monitor() {
	cm.performCheck()

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-cm.ctx.Done():
			return
		case <-ticker.C:
			cm.performCheck()
		}
	}
}

func (cm *ConnectionMonitor) performCheck() {
	ctx, cancel := context.WithTimeout(cm.ctx, cm.interval/2)
	defer cancel()

	start := time.Now()
	err := cm.check(ctx)
	latency := time.Since(start).Milliseconds()

	if cm.ctx.Err() != nil {
		return
	}

	status := StateConnected
	if err != nil {
		status = StateError
	}
	cm.healthChecker.UpdateConnection(cm.name, status, latency, err)
}
