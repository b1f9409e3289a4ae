package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NERVsystems/arogyajal/pkg/advisor"
	"github.com/NERVsystems/arogyajal/pkg/hydration"
	"github.com/NERVsystems/arogyajal/pkg/monitoring"
	"github.com/NERVsystems/arogyajal/pkg/registration"
	"github.com/NERVsystems/arogyajal/pkg/server"
	"github.com/NERVsystems/arogyajal/pkg/tracing"
	ver "github.com/NERVsystems/arogyajal/pkg/version"
)

const tracingFlushTimeout = 5 * time.Second

var (
	showVersionFlag bool
	debug           bool
	generateConfig  string
	mergeOnly       bool
	envFile         string

	// HTTP transport flags
	enableHTTP    bool
	httpOnly      bool
	httpAddr      string
	httpBaseURL   string
	httpAuthType  string
	httpAuthToken string
	httpRPS       float64
	httpBurst     int
	corsOrigin    string

	// Monitoring flags
	enableMonitoring bool
	monitoringAddr   string

	// Registration flags
	enableRegistration bool
	registryURL        string
	serviceURL         string
	internalURL        string

	// Advisor flags
	advisorModel   string
	advisorBaseURL string
	advisorRPS     float64
	advisorBurst   int
	advisorTTL     time.Duration
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&generateConfig, "generate-config", "", "Generate an MCP client config file at the specified path")
	flag.BoolVar(&mergeOnly, "merge-only", false, "Only merge new config, don't overwrite existing")
	flag.StringVar(&envFile, "env-file", ".env", "Optional dotenv file with GEMINI_API_KEY and friends")

	// HTTP transport flags
	flag.BoolVar(&enableHTTP, "enable-http", false, "Enable HTTP transport with the REST API and MCP over SSE (in addition to stdio)")
	flag.BoolVar(&httpOnly, "http-only", false, "Run HTTP transport only, skip stdio (requires --enable-http)")
	flag.StringVar(&httpAddr, "http-addr", ":7082", "HTTP server address")
	flag.StringVar(&httpBaseURL, "http-base-url", "", "Base URL for HTTP transport (auto-detected if empty)")
	flag.StringVar(&httpAuthType, "http-auth-type", "none", "MCP endpoint authentication type: none, bearer, basic")
	flag.StringVar(&httpAuthToken, "http-auth-token", "", "MCP endpoint authentication token (user:password for basic)")
	flag.Float64Var(&httpRPS, "http-rps", 10, "Per-client HTTP rate limit in requests per second (0 disables)")
	flag.IntVar(&httpBurst, "http-burst", 20, "Per-client HTTP rate limit burst size")
	flag.StringVar(&corsOrigin, "cors-origin", "*", "Allowed browser origin for the REST API")

	// Monitoring flags
	flag.BoolVar(&enableMonitoring, "enable-monitoring", true, "Enable Prometheus metrics and health endpoints")
	flag.StringVar(&monitoringAddr, "monitoring-addr", ":9090", "Monitoring server address")

	// Registration flags
	flag.BoolVar(&enableRegistration, "enable-registration", false, "Enable service registration with a service registry")
	flag.StringVar(&registryURL, "registry-url", "", "Service registry URL (e.g., http://registry:7083)")
	flag.StringVar(&serviceURL, "service-url", "", "External URL where this service is accessible")
	flag.StringVar(&internalURL, "internal-url", "", "Internal URL for container environments")

	// Advisor flags
	flag.StringVar(&advisorModel, "advisor-model", advisor.DefaultModel, "Generative model used by the water quality advisor")
	flag.StringVar(&advisorBaseURL, "advisor-base-url", advisor.DefaultBaseURL, "Base URL of the generative language API")
	flag.Float64Var(&advisorRPS, "advisor-rps", 2, "Advisor upstream rate limit in requests per second")
	flag.IntVar(&advisorBurst, "advisor-burst", 4, "Advisor upstream rate limit burst size")
	flag.DurationVar(&advisorTTL, "advisor-cache-ttl", 10*time.Minute, "How long chat answers are cached")
}

func main() {
	flag.Parse()

	// Configure logging
	var logLevel slog.Level
	if debug {
		logLevel = slog.LevelDebug
	} else {
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if showVersionFlag {
		showVersion()
		return
	}

	if generateConfig != "" {
		if err := generateClientConfig(generateConfig, mergeOnly); err != nil {
			logger.Error("failed to generate config", "error", err)
			os.Exit(1)
		}
		logger.Info("successfully generated MCP client config", "path", generateConfig)
		return
	}

	// The environment wins over the file
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load env file", "path", envFile, "error", err)
	}

	// Initialize OpenTelemetry tracing
	shutdownTracing, err := tracing.InitTracing(context.Background(), ver.BuildVersion)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
	} else {
		defer flushTracing(shutdownTracing, logger)

		if endpoint := os.Getenv("OTLP_ENDPOINT"); endpoint != "" {
			logger.Info("OpenTelemetry tracing enabled", "endpoint", endpoint)
		}
	}

	advCfg := advisor.DefaultConfig()
	advCfg.APIKey = os.Getenv(advisor.APIKeyEnv)
	advCfg.Model = advisorModel
	advCfg.BaseURL = advisorBaseURL
	advCfg.RPS = advisorRPS
	advCfg.Burst = advisorBurst
	advCfg.ChatTTL = advisorTTL

	adv, err := advisor.New(advCfg, logger)
	if err != nil {
		logger.Error("failed to create water quality advisor", "error", err)
		os.Exit(1)
	}
	defer adv.Close()
	if !adv.Configured() {
		logger.Warn("water quality advisor disabled, set " + advisor.APIKeyEnv + " to enable it")
	}

	logger.Info("starting Arogya Jal hydration server",
		"version", ver.BuildVersion,
		"log_level", logLevel.String(),
		"advisor_model", adv.Model(),
		"advisor_configured", adv.Configured(),
		"advisor_rps", advisorRPS,
		"advisor_burst", advisorBurst,
		"http_enabled", enableHTTP,
		"monitoring_enabled", enableMonitoring,
		"monitoring_addr", monitoringAddr)

	var healthChecker *monitoring.HealthChecker
	if enableMonitoring {
		healthChecker = monitoring.NewHealthChecker(monitoring.ServiceName, ver.BuildVersion)
		defer healthChecker.Shutdown()

		healthChecker.AddSelfCheck("calculator", func(context.Context) error {
			return hydration.SelfCheck()
		})
		if !adv.Configured() {
			healthChecker.MarkDisabled(tracing.ServiceAdvisor, advisor.APIKeyEnv+" not set")
		}

		advisor.SetMonitoringHooks(&advisor.MonitoringHooks{
			OnRequest: func(service, operation string) {
				logger.Debug("advisor request", "service", service, "operation", operation)
			},
			OnResponse: func(service, operation string, duration time.Duration, success bool) {
				monitoring.RecordExternalServiceRequest(service, operation, duration, success)
			},
			OnRateLimit: func(service string, waitTime time.Duration) {
				monitoring.RecordRateLimitWait(service, waitTime)
				monitoring.RecordRateLimitExceeded(service)
			},
			OnError: func(service, errorType string) {
				monitoring.RecordError(service, errorType)
			},
			OnCache: func(cacheType string, hit bool, size int) {
				if hit {
					monitoring.RecordCacheHit(cacheType)
				} else {
					monitoring.RecordCacheMiss(cacheType)
				}
				monitoring.UpdateCacheSize(cacheType, size)
			},
		})
	}

	s, err := server.NewServer(logger, adv)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}
	rest := server.NewHandler(logger, adv)

	if healthChecker != nil && adv.Configured() {
		advisorMonitor := startAdvisorMonitoring(healthChecker, adv, logger)
		defer advisorMonitor.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if enableMonitoring {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		monitoringServer := &http.Server{
			Addr:              monitoringAddr,
			Handler:           mux,
			ReadHeaderTimeout: 30 * time.Second, // Prevent Slowloris attacks
		}

		go func() {
			logger.Info("starting Prometheus metrics server", "addr", monitoringAddr)
			if err := monitoringServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("monitoring server error", "error", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := monitoringServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown monitoring server", "error", err)
			}
		}()
	}

	if enableRegistration {
		svcURL := serviceURL
		healthURL := serviceURL + "/health"
		if serviceURL == "" && enableHTTP {
			svcURL = fmt.Sprintf("http://localhost%s", httpAddr)
			healthURL = fmt.Sprintf("http://localhost%s/health", httpAddr)
		}
		internalHealth := ""
		if internalURL != "" {
			internalHealth = internalURL + "/health"
		}

		regClient := registration.NewClient(registration.Config{
			Enabled:           true,
			RegistryURL:       registryURL,
			ServiceName:       monitoring.ServiceName,
			ServiceType:       "mcp",
			ServiceURL:        svcURL,
			HealthURL:         healthURL,
			InternalURL:       internalURL,
			InternalHealthURL: internalHealth,
			Version:           ver.BuildVersion,
			Capabilities:      registration.ServiceCapabilities(adv.Configured()),
			Tools:             s.ToolNames(),
			Metadata: map[string]interface{}{
				"transport":     map[string]bool{"stdio": !httpOnly, "http": enableHTTP},
				"advisor_model": adv.Model(),
				"rest_routes":   rest.Routes(),
			},
		}, logger)
		regClient.Start(ctx)
		defer regClient.Stop()

		logger.Info("registration client initialized",
			"registry_url", registryURL,
			"service_url", svcURL,
			"tool_count", len(s.ToolNames()))
	}

	if enableHTTP {
		config := server.DefaultHTTPTransportConfig()
		config.Addr = httpAddr
		config.BaseURL = httpBaseURL
		config.AuthType = httpAuthType
		config.AuthToken = httpAuthToken
		config.RateLimit = httpRPS
		config.RateBurst = httpBurst
		config.CORSOrigin = corsOrigin

		httpTransport := server.NewHTTPTransport(s.GetMCPServer(), config, logger)
		httpTransport.MountREST(rest)
		if healthChecker != nil {
			httpTransport.SetHealthChecker(healthChecker)
		}

		go func() {
			logger.Info("starting HTTP transport", "addr", httpAddr, "sse", config.SSEEndpoint, "message", config.MsgEndpoint)
			if err := httpTransport.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP transport error", "error", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := httpTransport.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown HTTP transport", "error", err)
			}
		}()
	}

	// Transport startup:
	// - without HTTP, stdio runs on the main goroutine
	// - with HTTP, stdio runs in the background unless --http-only is set
	switch {
	case !enableHTTP:
		logger.Info("transport_enabled", "type", "stdio", "mode", "blocking")
		if err := s.RunWithContext(ctx); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case httpOnly:
		logger.Info("server_ready", "transports", []string{"http"}, "http_only", true)
		<-ctx.Done()
		logger.Info("shutdown signal received")
	default:
		go func() {
			logger.Info("transport_enabled", "type", "stdio", "mode", "background")
			if err := s.RunWithContext(ctx); err != nil {
				logger.Error("stdio transport error", "error", err)
			}
		}()

		logger.Info("server_ready", "transports", []string{"stdio", "http"})
		<-ctx.Done()
		logger.Info("shutdown signal received")
	}

	logger.Info("server stopped")
}

// generateClientConfig writes an MCP client config entry that launches this
// binary over stdio.
func generateClientConfig(path string, mergeOnly bool) error {
	if path == "" {
		return fmt.Errorf("config path cannot be empty")
	}
	if !strings.HasSuffix(path, ".json") {
		return fmt.Errorf("config file must have .json extension")
	}

	cleanPath := filepath.Clean(path)
	if err := validateSafePath(cleanPath); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	config := map[string]interface{}{}
	if mergeOnly {
		if data, err := os.ReadFile(cleanPath); err == nil {
			if err := json.Unmarshal(data, &config); err != nil {
				return fmt.Errorf("failed to parse existing config: %w", err)
			}
		}
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	servers, _ := config["mcpServers"].(map[string]interface{})
	if servers == nil {
		servers = map[string]interface{}{}
	}
	servers[monitoring.ServiceName] = map[string]interface{}{
		"command": exe,
		"args":    []string{},
		"env": map[string]string{
			advisor.APIKeyEnv: "",
		},
	}
	config["mcpServers"] = servers

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validateSafePath rejects absolute paths and paths that leave the working
// directory
func validateSafePath(path string) error {
	if filepath.IsAbs(path) {
		return fmt.Errorf("absolute paths are not allowed for security reasons")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current working directory: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	relPath, err := filepath.Rel(cwd, absPath)
	if err != nil {
		return fmt.Errorf("failed to determine relative path: %w", err)
	}

	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: %s", relPath)
	}

	return nil
}

func showVersion() {
	fmt.Println(ver.String())
}

// flushTracing exports buffered spans. It runs after the signal context is
// cancelled, so it gets its own deadline.
func flushTracing(shutdown func(context.Context) error, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), tracingFlushTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Error("error shutting down tracing", "error", err)
	}
}

// startAdvisorMonitoring pings the model endpoint so /health reflects
// whether the advisor can answer.
func startAdvisorMonitoring(hc *monitoring.HealthChecker, adv *advisor.Advisor, logger *slog.Logger) *monitoring.ConnectionMonitor {
	m := monitoring.NewConnectionMonitor(
		tracing.ServiceAdvisor,
		hc,
		adv.Ping,
		time.Minute,
	)
	m.Start()

	logger.Info("started advisor monitoring", "model", adv.Model(), "check_interval", "1m")
	return m
}
