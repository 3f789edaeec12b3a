package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a whole request including retries.
const DefaultTimeout = 30 * time.Second

// Options configures New.
type Options struct {
	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
	// Timeout is the http.Client timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Retry is the transient-failure policy.
	Retry RetryPolicy
	// Tokens supplies the bearer token; nil disables authentication.
	Tokens TokenSource
	// Unauthorized is notified about 401 responses; nil disables it.
	Unauthorized UnauthorizedHandler

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// New builds an *http.Client with the full outbound chain:
//
//	Instrument -> RequestID -> LogRequests -> Unauthorized -> Retry -> BearerAuth -> Base
//
// BearerAuth sits inside Retry so each attempt reads the current token.
func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: Wrap(opts.Base,
			Instrument(opts.TracerProvider, opts.MeterProvider),
			RequestID(),
			LogRequests(),
			Unauthorized(opts.Unauthorized),
			Retry(opts.Retry),
			BearerAuth(opts.Tokens),
		),
	}
}
