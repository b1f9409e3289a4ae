// Package advisor answers water-quality questions and analyses using a
// hosted generative language model.
package advisor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/arogyajal/pkg/cache"
	"github.com/NERVsystems/arogyajal/pkg/core"
	"github.com/NERVsystems/arogyajal/pkg/tracing"
	"github.com/NERVsystems/arogyajal/pkg/version"
)

const (
	// DefaultModel is the model used when none is configured
	DefaultModel = "gemini-2.5-flash"

	// DefaultBaseURL is the generative-language API root
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// APIKeyEnv names the environment variable holding the API key
	APIKeyEnv = "GEMINI_API_KEY"

	maxResponseBytes = 4 << 20
)

// ChatRequest is a free-text question.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the model's answer to a ChatRequest.
type ChatResponse struct {
	Response string `json:"response"`
}

// AnalysisRequest carries measured water quality parameters.
type AnalysisRequest struct {
	Parameters map[string]any `json:"parameters"`
	Location   string         `json:"location,omitempty"`
	Notes      string         `json:"notes,omitempty"`
}

// AnalysisResponse is the model's assessment and when it was produced.
type AnalysisResponse struct {
	Analysis  string `json:"analysis"`
	Timestamp string `json:"timestamp"`
}

// Config configures an Advisor.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	RPS       float64
	Burst     int
	ChatTTL   time.Duration
	CacheSize int
	Retry     core.RetryOptions
	Client    *http.Client

	// CallTimeout bounds one model call shared by collapsed requests
	CallTimeout time.Duration
}

// DefaultConfig returns the defaults with the key taken from the environment
// by the caller.
func DefaultConfig() Config {
	return Config{
		Model:     DefaultModel,
		BaseURL:   DefaultBaseURL,
		RPS:       2,
		Burst:     4,
		ChatTTL:   10 * time.Minute,
		CacheSize: 256,
		Retry:     core.DefaultRetryOptions,

		CallTimeout: 60 * time.Second,
	}
}

// Advisor talks to the model with rate limiting, retries and answer caching.
type Advisor struct {
	cfg      Config
	client   *http.Client
	limiter  *rate.Limiter
	analyses *lru.Cache[string, AnalysisResponse]
	chats    *cache.TTLCache[string]
	group    singleflight.Group
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Advisor. A missing API key is not an error; the advisor
// then reports itself unconfigured and every call fails with
// SERVICE_UNAVAILABLE.
func New(cfg Config, logger *slog.Logger) (*Advisor, error) {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.RPS <= 0 {
		cfg.RPS = def.RPS
	}
	if cfg.Burst < 1 {
		cfg.Burst = def.Burst
	}
	if cfg.ChatTTL <= 0 {
		cfg.ChatTTL = def.ChatTTL
	}
	if cfg.CacheSize < 1 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = def.Retry
	}
	if logger == nil {
		logger = slog.Default()
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid advisor base URL %q", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	analyses, err := lru.New[string, AnalysisResponse](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create analysis cache: %w", err)
	}

	client := cfg.Client
	if client == nil {
		client = core.DefaultClient
	}

	return &Advisor{
		cfg:      cfg,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		analyses: analyses,
		chats:    cache.NewTTLCache[string](cfg.ChatTTL, time.Minute, cfg.CacheSize),
		logger:   logger.With("component", tracing.ServiceAdvisor),
		now:      time.Now,
	}, nil
}

// Configured reports whether an API key is present.
func (a *Advisor) Configured() bool {
	return a.cfg.APIKey != ""
}

// Model returns the configured model name.
func (a *Advisor) Model() string {
	return a.cfg.Model
}

// Close releases the cache cleanup goroutine.
func (a *Advisor) Close() {
	a.chats.Stop()
	a.analyses.Purge()
}

func (a *Advisor) unavailable() *core.MCPError {
	return core.NewError(core.ErrServiceUnavailable, "water quality advisor is not configured").
		WithGuidance("Set " + APIKeyEnv + " and restart the server")
}

// Chat answers a free-text water quality question.
func (a *Advisor) Chat(ctx context.Context, query string) (ChatResponse, error) {
	query, err := core.ValidateQuery(query)
	if err != nil {
		return ChatResponse{}, err
	}
	if !a.Configured() {
		return ChatResponse{}, a.unavailable()
	}

	ctx, span := tracing.StartSpan(ctx, "advisor.chat",
		trace.WithAttributes(attribute.String(tracing.AttrAdvisorModel, a.cfg.Model)))
	defer span.End()

	prompt := ChatPrompt(query)
	key := promptKey(prompt)

	if answer, ok := a.chats.Get(key); ok {
		a.cacheLookup(ctx, tracing.CacheTypeChat, true, key, a.chats.Count())
		return ChatResponse{Response: answer}, nil
	}
	a.cacheLookup(ctx, tracing.CacheTypeChat, false, key, a.chats.Count())

	v, shared, err := a.collapse(ctx, "chat:"+key, func(ctx context.Context) (any, error) {
		answer, err := a.generate(ctx, "chat", prompt)
		if err != nil {
			return "", err
		}
		a.chats.Set(key, answer)
		return answer, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat failed")
		return ChatResponse{}, err
	}
	if shared {
		tracing.AddEvent(ctx, "singleflight_shared")
	}

	span.SetStatus(codes.Ok, "")
	return ChatResponse{Response: v.(string)}, nil
}

// Analyze assesses a set of water quality measurements. Identical requests
// are answered from cache with their original timestamp.
func (a *Advisor) Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResponse, error) {
	if len(req.Parameters) == 0 {
		return AnalysisResponse{}, core.NewValidationError(core.ErrEmptyParameter,
			"parameters must contain at least one measurement")
	}
	req.Location = strings.TrimSpace(req.Location)
	req.Notes = strings.TrimSpace(req.Notes)
	if !a.Configured() {
		return AnalysisResponse{}, a.unavailable()
	}

	ctx, span := tracing.StartSpan(ctx, "advisor.analyze",
		trace.WithAttributes(
			attribute.String(tracing.AttrAdvisorModel, a.cfg.Model),
			attribute.Int("advisor.parameter_count", len(req.Parameters)),
		))
	defer span.End()

	prompt := AnalysisPrompt(req)
	key := promptKey(prompt)

	if resp, ok := a.analyses.Get(key); ok {
		a.cacheLookup(ctx, tracing.CacheTypeAnalysis, true, key, a.analyses.Len())
		return resp, nil
	}
	a.cacheLookup(ctx, tracing.CacheTypeAnalysis, false, key, a.analyses.Len())

	v, shared, err := a.collapse(ctx, "analysis:"+key, func(ctx context.Context) (any, error) {
		text, err := a.generate(ctx, "analyze", prompt)
		if err != nil {
			return AnalysisResponse{}, err
		}
		resp := AnalysisResponse{
			Analysis:  text,
			Timestamp: a.now().UTC().Format(time.RFC3339Nano),
		}
		a.analyses.Add(key, resp)
		return resp, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return AnalysisResponse{}, err
	}
	if shared {
		tracing.AddEvent(ctx, "singleflight_shared")
	}

	span.SetStatus(codes.Ok, "")
	return v.(AnalysisResponse), nil
}

// collapse runs fn once for all concurrent callers of key. The model call
// is detached from the caller that started it so a disconnect only fails
// that caller.
func (a *Advisor) collapse(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error) {
	ch := a.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.CallTimeout)
		defer cancel()
		return fn(callCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, mapContextError(ctx.Err())
	}
}

// Ping checks that the configured model is reachable with the configured key.
func (a *Advisor) Ping(ctx context.Context) error {
	if !a.Configured() {
		return a.unavailable()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.modelURL(""), nil)
	if err != nil {
		return err
	}
	a.setHeaders(req)

	resp, err := core.WithRetry(ctx, req, a.client, core.RetryOptions{MaxAttempts: 1})
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (a *Advisor) cacheLookup(ctx context.Context, cacheType string, hit bool, key string, size int) {
	tracing.SetAttributes(ctx, tracing.CacheAttributes(cacheType, hit, key[:12])...)
	hookCache(cacheType, hit, size)
}

func (a *Advisor) modelURL(method string) string {
	u := a.cfg.BaseURL + "/v1beta/models/" + url.PathEscape(a.cfg.Model)
	if method != "" {
		u += ":" + method
	}
	return u
}

func (a *Advisor) setHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", a.cfg.APIKey)
	req.Header.Set("User-Agent", "arogyajal/"+version.BuildVersion)
}

// generate sends one prompt to the model and returns its text.
func (a *Advisor) generate(ctx context.Context, operation, prompt string) (string, error) {
	service := tracing.ServiceAdvisor
	hookRequest(service, operation)

	if err := a.waitForRateLimit(ctx); err != nil {
		hookError(service, "rate_limit_wait_error")
		return "", err
	}

	body, err := json.Marshal(newGenerateRequest(prompt))
	if err != nil {
		return "", core.NewError(core.ErrInternalError, "failed to encode model request")
	}

	endpoint := a.modelURL("generateContent")
	factory := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		a.setHeaders(req)
		return req, nil
	}

	start := time.Now()
	resp, err := core.WithRetryFactory(ctx, factory, a.client, a.cfg.Retry)
	duration := time.Since(start)
	hookResponse(service, operation, duration, err == nil)
	if err != nil {
		hookError(service, "request_error")
		a.logger.Error("model request failed", "operation", operation, "duration", duration, "error", err)
		return "", mapContextError(err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		hookError(service, "decode_error")
		return "", core.NewError(core.ErrUpstreamError, "failed to decode model response").
			WithGuidance("The model returned an unexpected payload")
	}

	if reason := out.blockReason(); reason != "" {
		return "", core.NewError(core.ErrInvalidInput, "the request was blocked by the model: "+reason).
			WithGuidance("Rephrase the question and try again")
	}

	text := strings.TrimSpace(out.text())
	if text == "" {
		hookError(service, "empty_response")
		return "", core.NewError(core.ErrInternalError, "the model returned an empty response")
	}

	a.logger.Debug("model request complete", "operation", operation, "duration", duration, "chars", len(text))
	return text, nil
}

// waitForRateLimit blocks until the local limiter admits a request.
func (a *Advisor) waitForRateLimit(ctx context.Context) error {
	if a.limiter.Allow() {
		return nil
	}

	startWait := time.Now()
	tracing.AddEvent(ctx, "rate_limit_wait",
		trace.WithAttributes(attribute.String(tracing.AttrRateLimitService, tracing.ServiceAdvisor)))

	err := a.limiter.Wait(ctx)

	wait := time.Since(startWait)
	tracing.SetAttributes(ctx,
		attribute.String(tracing.AttrRateLimitService, tracing.ServiceAdvisor),
		attribute.Int64(tracing.AttrRateLimitWaitMs, wait.Milliseconds()),
	)
	hookRateLimit(tracing.ServiceAdvisor, wait)

	if err != nil {
		if ctx.Err() != nil {
			return mapContextError(ctx.Err())
		}
		return core.NewError(core.ErrRateLimit, "advisor request rate exceeded").
			WithGuidance("Please try again in a few moments")
	}
	return nil
}

func mapContextError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return core.NewError(core.ErrServiceTimeout, "the model did not answer in time").
			WithGuidance("Try a shorter question or fewer parameters")
	case errors.Is(err, context.Canceled):
		return core.NewError(core.ErrServiceUnavailable, "the request was cancelled before the model answered")
	}
	return err
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
