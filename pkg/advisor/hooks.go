package advisor

import (
	"sync"
	"time"
)

// MonitoringHooks lets the binary attach metrics to advisor traffic without
// this package importing the metrics registry.
type MonitoringHooks struct {
	// OnRequest is called before the upstream model is contacted
	OnRequest func(service, operation string)

	// OnResponse is called once the upstream call finished
	OnResponse func(service, operation string, duration time.Duration, success bool)

	// OnRateLimit is called when the local limiter delayed a request
	OnRateLimit func(service string, waitTime time.Duration)

	// OnError is called when an upstream call fails
	OnError func(service, errorType string)

	// OnCache is called on every answer cache lookup
	OnCache func(cacheType string, hit bool, size int)
}

var (
	globalHooks *MonitoringHooks
	hooksMutex  sync.RWMutex
)

// SetMonitoringHooks sets global monitoring hooks
func SetMonitoringHooks(hooks *MonitoringHooks) {
	hooksMutex.Lock()
	defer hooksMutex.Unlock()
	globalHooks = hooks
}

func getMonitoringHooks() *MonitoringHooks {
	hooksMutex.RLock()
	defer hooksMutex.RUnlock()
	return globalHooks
}

func hookRequest(service, operation string) {
	if h := getMonitoringHooks(); h != nil && h.OnRequest != nil {
		h.OnRequest(service, operation)
	}
}

func hookResponse(service, operation string, d time.Duration, success bool) {
	if h := getMonitoringHooks(); h != nil && h.OnResponse != nil {
		h.OnResponse(service, operation, d, success)
	}
}

func hookRateLimit(service string, wait time.Duration) {
	if h := getMonitoringHooks(); h != nil && h.OnRateLimit != nil {
		h.OnRateLimit(service, wait)
	}
}

func hookError(service, errorType string) {
	if h := getMonitoringHooks(); h != nil && h.OnError != nil {
		h.OnError(service, errorType)
	}
}

func hookCache(cacheType string, hit bool, size int) {
	if h := getMonitoringHooks(); h != nil && h.OnCache != nil {
		h.OnCache(cacheType, hit, size)
	}
}
