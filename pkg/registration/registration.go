// Package registration announces the service to an external service registry
// with periodic heartbeats. Registration is optional and never blocks the
// server: a missing or failing registry only produces log lines.
package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultHeartbeatInterval is the default interval between heartbeats.
const DefaultHeartbeatInterval = 30 * time.Second

// DefaultTimeout is the default timeout for registry requests.
const DefaultTimeout = 5 * time.Second

// Capabilities advertised by this service
const (
	CapabilityHydration    = "hydration-calculator"
	CapabilityWaterQuality = "water-quality-advisor"
	CapabilityREST         = "rest-api"
)

// Config holds the configuration for service registration.
type Config struct {
	// Enabled controls whether registration is active (default: false)
	Enabled bool

	// RegistryURL is the base URL of the registry, e.g. "http://registry:7083"
	RegistryURL string

	ServiceName string
	ServiceType string // defaults to "mcp"

	// ServiceURL is the external URL where this service is accessible
	ServiceURL string
	HealthURL  string

	// Internal URLs are optional, for container environments
	InternalURL       string
	InternalHealthURL string

	Version      string
	Capabilities []string
	Tools        []string
	Metadata     map[string]interface{}

	HeartbeatInterval time.Duration
	Timeout           time.Duration
}

// RegistrationRequest is the request format for the registry API.
type RegistrationRequest struct {
	Name           string                 `json:"name"`
	Type           string                 `json:"type"`
	URL            string                 `json:"url"`
	HealthURL      string                 `json:"health_url"`
	InternalURL    string                 `json:"internal_url,omitempty"`
	InternalHealth string                 `json:"internal_health_url,omitempty"`
	Version        string                 `json:"version"`
	Capabilities   []string               `json:"capabilities,omitempty"`
	Tools          []string               `json:"tools,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// RegistrationResponse is the response from the registry.
type RegistrationResponse struct {
	Status          string    `json:"status"`
	Name            string    `json:"name"`
	TTLSeconds      int       `json:"ttl_seconds"`
	NextHeartbeatBy time.Time `json:"next_heartbeat_by"`
}

// ServiceCapabilities lists what the service offers given whether the
// advisor has credentials.
func ServiceCapabilities(advisorConfigured bool) []string {
	caps := []string{CapabilityHydration, CapabilityREST}
	if advisorConfigured {
		caps = append(caps, CapabilityWaterQuality)
	}
	return caps
}

// Client handles registration with the registry.
type Client struct {
	cfg        Config
	logger     *slog.Logger
	httpClient *http.Client
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	registered bool
	mu         sync.RWMutex
}

// NewClient creates a new registration client.
// If cfg.Enabled is false, the client is a no-op.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ServiceType == "" {
		cfg.ServiceType = "mcp"
	}
	cfg.RegistryURL = strings.TrimRight(cfg.RegistryURL, "/")

	return &Client{
		cfg:        cfg,
		logger:     logger.With("component", "registration"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Start begins the registration and heartbeat loop. It returns immediately.
func (c *Client) Start(ctx context.Context) {
	if !c.cfg.Enabled {
		c.logger.Info("service registration disabled")
		return
	}

	if c.cfg.RegistryURL == "" {
		c.logger.Warn("service registration enabled but no registry URL configured")
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.heartbeatLoop(ctx)
}

// Stop deregisters and stops the heartbeat loop.
func (c *Client) Stop() {
	if !c.cfg.Enabled || c.cancel == nil {
		return
	}

	c.cancel()
	c.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	c.deregister(ctx)
}

// IsRegistered returns whether the service is currently registered.
func (c *Client) IsRegistered() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registered
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	defer c.wg.Done()

	c.register(ctx)

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.register(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) request() RegistrationRequest {
	return RegistrationRequest{
		Name:           c.cfg.ServiceName,
		Type:           c.cfg.ServiceType,
		URL:            c.cfg.ServiceURL,
		HealthURL:      c.cfg.HealthURL,
		InternalURL:    c.cfg.InternalURL,
		InternalHealth: c.cfg.InternalHealthURL,
		Version:        c.cfg.Version,
		Capabilities:   c.cfg.Capabilities,
		Tools:          c.cfg.Tools,
		Metadata:       c.cfg.Metadata,
	}
}

// register sends a registration or heartbeat request. Failures mark the
// client unregistered and are retried on the next tick.
func (c *Client) register(ctx context.Context) {
	err := c.post(ctx)
	if err == nil || ctx.Err() != nil {
		// a heartbeat cut short by Stop keeps the last known state
		return
	}
	c.logger.Debug("registration failed", "error", err)
	c.setRegistered(false)
}

func (c *Client) post(ctx context.Context) error {
	body, err := json.Marshal(c.request())
	if err != nil {
		return fmt.Errorf("marshal registration: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RegistryURL+"/api/register", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create registration request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("registry unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("registration rejected", "status", resp.StatusCode, "body", string(bodyBytes))
		return fmt.Errorf("registry returned %d", resp.StatusCode)
	}

	var regResp RegistrationResponse
	if err := json.NewDecoder(resp.Body).Decode(&regResp); err != nil {
		return fmt.Errorf("decode registration response: %w", err)
	}

	if !c.IsRegistered() {
		c.logger.Info("registered with service registry",
			"name", c.cfg.ServiceName,
			"capabilities", c.cfg.Capabilities,
			"ttl_seconds", regResp.TTLSeconds)
	}
	c.setRegistered(true)
	return nil
}

func (c *Client) deregister(ctx context.Context) {
	if !c.IsRegistered() {
		return
	}
	defer c.setRegistered(false)

	endpoint := c.cfg.RegistryURL + "/api/register/" + url.PathEscape(c.cfg.ServiceName)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		c.logger.Debug("failed to create deregistration request", "error", err)
		return
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("deregistration failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		c.logger.Info("deregistered from service registry", "name", c.cfg.ServiceName)
	}
}

func (c *Client) setRegistered(registered bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered = registered
}
