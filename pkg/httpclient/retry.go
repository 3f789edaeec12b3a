package httpclient

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// RetryPolicy controls which responses are retried and how long to wait
// between attempts.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Zero disables retries.
	MaxRetries int
	// BaseDelay is the wait before the first retry. Retry n (0-based) waits
	// BaseDelay * 2^n.
	BaseDelay time.Duration
	// Statuses lists the response codes considered transient.
	Statuses []int
}

// DefaultRetryPolicy retries 408, 429 and 5xx gateway errors three times,
// waiting 1s, 2s and 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Statuses: []int{
			http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// Retryable reports whether code is in the policy's transient set.
func (p RetryPolicy) Retryable(code int) bool {
	for _, s := range p.Statuses {
		if s == code {
			return true
		}
	}
	return false
}

// Delay returns the wait before retry n (0-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	return p.BaseDelay << n
}

// BackOff returns a fresh deterministic exponential backoff for one request.
func (p RetryPolicy) BackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.Delay(max(p.MaxRetries, 1))
	b.Reset()
	return b
}

// StatusError is returned internally between attempts for transient statuses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "transient status " + strconv.Itoa(e.Code)
}

// Retry returns a middleware that retries transient responses according to
// p. The attempt counter lives in the closure of a single RoundTrip call, so
// concurrent requests never share retry state.
//
// Once retries are exhausted the final response is returned as-is. Transport
// errors are not retried. Requests whose body cannot be replayed (no
// GetBody) are sent once.
func Retry(p RetryPolicy) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if p.MaxRetries <= 0 || !replayable(req) {
				return next.RoundTrip(req)
			}
			ctx := req.Context()
			lg := zctx.From(ctx)

			attempt := 0
			op := func() (*http.Response, error) {
				r, err := rewind(req, attempt)
				if err != nil {
					return nil, backoff.Permanent(errors.Wrap(err, "rewind body"))
				}
				attempt++

				resp, err := next.RoundTrip(r)
				if err != nil {
					return nil, backoff.Permanent(err)
				}
				if attempt > p.MaxRetries || !p.Retryable(resp.StatusCode) {
					return resp, nil
				}

				wait, hasWait := retryAfter(resp)
				drain(resp)
				lg.Warn("Retrying request",
					zap.String("method", req.Method),
					zap.String("path", req.URL.Path),
					zap.Int("status", resp.StatusCode),
					zap.Int("attempt", attempt),
					zap.Int("max_retries", p.MaxRetries),
				)
				if hasWait {
					return nil, backoff.RetryAfter(int(wait / time.Second))
				}
				return nil, &StatusError{Code: resp.StatusCode}
			}

			return backoff.Retry(ctx, op,
				backoff.WithBackOff(p.BackOff()),
				backoff.WithMaxTries(uint(p.MaxRetries)+1),
			)
		})
	}
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// rewind returns the request to send for the given attempt. The first
// attempt reuses req; later attempts get a clone with a fresh body.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}

// retryAfter parses a delay-seconds Retry-After header on 429 responses.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}
