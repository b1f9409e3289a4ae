package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/arogyajal/pkg/tracing"
)

// RetryOptions configures retry behavior for HTTP requests
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions provides sensible defaults for retries
var DefaultRetryOptions = RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2.0,
}

// DefaultClient provides a pre-configured HTTP client with secure defaults.
// Model responses can take a while, hence the generous timeout.
var DefaultClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// secureHeaders adds security headers to the request
func secureHeaders(req *http.Request) {
	req.Header.Set("X-Content-Type-Options", "nosniff")
	req.Header.Set("X-Frame-Options", "DENY")
	req.Header.Set("X-XSS-Protection", "1; mode=block")
	req.Header.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
}

// permanentStatus reports statuses that will not succeed on retry.
func permanentStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// RequestFactory is a function that creates a new HTTP request.
// A fresh request per attempt lets requests with bodies be retried.
type RequestFactory func() (*http.Request, error)

// WithRetry performs a bodiless HTTP request with exponential backoff
func WithRetry(ctx context.Context, req *http.Request, client *http.Client, options RetryOptions) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody {
		return nil, NewError(ErrInternalError, "cannot retry request with non-nil body").
			WithGuidance("Use a request factory function for requests with bodies")
	}

	spanName := fmt.Sprintf("http.request %s %s", req.Method, req.URL.Host)
	return retryLoop(ctx, spanName, func() (*http.Request, error) {
		return req.Clone(ctx), nil
	}, client, options)
}

// WithRetryFactory performs HTTP requests created by a factory with retry logic
func WithRetryFactory(ctx context.Context, factory RequestFactory, client *http.Client, options RetryOptions) (*http.Response, error) {
	return retryLoop(ctx, "http.request_factory", factory, client, options)
}

func retryLoop(ctx context.Context, spanName string, factory RequestFactory, client *http.Client, options RetryOptions) (*http.Response, error) {
	ctx, span := tracing.StartSpan(ctx, spanName,
		trace.WithAttributes(
			attribute.Int("http.retry.max_attempts", options.MaxAttempts),
		),
	)
	defer span.End()

	if client == nil {
		client = DefaultClient
	}
	if options.MaxAttempts < 1 {
		options.MaxAttempts = 1
	}

	logger := slog.Default()
	delay := options.InitialDelay
	var lastErr error

	attempt := 0
	for ; attempt < options.MaxAttempts; attempt++ {
		if attempt > 0 {
			tracing.AddEvent(ctx, "retry_attempt",
				trace.WithAttributes(
					attribute.Int("attempt", attempt+1),
					attribute.Int64("delay_ms", delay.Milliseconds()),
					attribute.String("error", fmt.Sprintf("%v", lastErr)),
				),
			)

			logger.Info("retrying request",
				"attempt", attempt+1,
				"max_attempts", options.MaxAttempts,
				"delay", delay,
				"last_error", lastErr,
			)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				span.SetStatus(codes.Error, "request cancelled")
				return nil, ctx.Err()
			}

			delay = time.Duration(float64(delay) * options.Multiplier)
			if delay > options.MaxDelay {
				delay = options.MaxDelay
			}
		}

		req, err := factory()
		if err != nil {
			lastErr = NewError(ErrInternalError, "failed to create request").
				WithGuidance("Unable to create HTTP request. Check the request parameters")
			logger.Error("request creation failed", "error", err, "attempt", attempt+1)
			continue
		}

		req = req.WithContext(ctx)
		secureHeaders(req)

		resp, err := client.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			span.SetAttributes(
				attribute.String(tracing.AttrHTTPMethod, req.Method),
				attribute.String("http.host", req.URL.Host),
				attribute.Int(tracing.AttrHTTPStatusCode, resp.StatusCode),
				attribute.Int("http.response.content_length", int(resp.ContentLength)),
				attribute.Int("http.retry.attempts", attempt+1),
			)
			span.SetStatus(codes.Ok, "")

			logger.Debug("request successful",
				"status", resp.StatusCode,
				"content_length", resp.ContentLength,
				"content_type", resp.Header.Get("Content-Type"),
				"host", req.URL.Host,
			)
			return resp, nil
		}

		if err != nil {
			if ctx.Err() != nil {
				span.SetStatus(codes.Error, "request cancelled")
				return nil, ctx.Err()
			}
			lastErr = err
			// URLs may carry credentials in the query, so only the host is logged
			logger.Error("request failed", "error", err, "attempt", attempt+1, "host", req.URL.Host)
			continue
		}

		lastErr = ServiceError("HTTP", resp.StatusCode, fmt.Sprintf("HTTP status %d", resp.StatusCode))
		logger.Error("request returned error status",
			"status", resp.StatusCode,
			"attempt", attempt+1,
			"host", req.URL.Host,
		)
		if err := resp.Body.Close(); err != nil {
			logger.Warn("failed to close response body", "error", err)
		}
		if permanentStatus(resp.StatusCode) {
			attempt++
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "request failed")
	span.SetAttributes(
		attribute.Int("http.retry.attempts", attempt),
		attribute.String("http.retry.final_error", fmt.Sprintf("%v", lastErr)),
	)

	if mcpErr, ok := lastErr.(*MCPError); ok {
		if attempt >= options.MaxAttempts && options.MaxAttempts > 1 {
			return nil, mcpErr.WithGuidance("Maximum retry attempts reached. " + mcpErr.Guidance)
		}
		return nil, mcpErr
	}
	return nil, NewError(ErrNetworkError, "max retries reached").
		WithGuidance("The request failed after multiple attempts. Please try again later")
}
