package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fastPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.BaseDelay = time.Millisecond
	return p
}

// sequenceServer replies with the given status codes in order, repeating the
// last one once the list is exhausted.
func sequenceServer(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(hits.Add(1)) - 1
		if n >= len(codes) {
			n = len(codes) - 1
		}
		w.WriteHeader(codes[n])
		_, _ = io.WriteString(w, http.StatusText(codes[n]))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	srv, hits := sequenceServer(t, http.StatusInternalServerError, http.StatusOK)
	client := &http.Client{Transport: Wrap(nil, Retry(fastPolicy()))}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRetry_ExhaustsAndReturnsFinalResponse(t *testing.T) {
	srv, hits := sequenceServer(t, http.StatusInternalServerError)
	client := &http.Client{Transport: Wrap(nil, Retry(fastPolicy()))}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(4), hits.Load(), "initial attempt plus three retries")
}

func TestRetry_NonTransientNotRetried(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv, hits := sequenceServer(t, code)
			client := &http.Client{Transport: Wrap(nil, Retry(fastPolicy()))}

			resp, err := client.Get(srv.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, code, resp.StatusCode)
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestRetry_AllTransientStatuses(t *testing.T) {
	for _, code := range DefaultRetryPolicy().Statuses {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv, hits := sequenceServer(t, code, http.StatusOK)
			client := &http.Client{Transport: Wrap(nil, Retry(fastPolicy()))}

			resp, err := client.Get(srv.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, int32(2), hits.Load())
		})
	}
}

func TestRetry_ReplaysBody(t *testing.T) {
	var bodies []string
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := &http.Client{Transport: Wrap(nil, Retry(fastPolicy()))}
	resp, err := client.Post(srv.URL, "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{`{"a":1}`, `{"a":1}`}, bodies)
}

func TestRetry_TransportErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	failing := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, io.ErrUnexpectedEOF
	})
	rt := Wrap(failing, Retry(fastPolicy()))

	req := httptest.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	_, err := rt.RoundTrip(req)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_ContextCancelStopsBackoff(t *testing.T) {
	srv, hits := sequenceServer(t, http.StatusServiceUnavailable)
	p := DefaultRetryPolicy()
	p.BaseDelay = time.Hour
	client := &http.Client{Transport: Wrap(nil, Retry(p))}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Do(req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))

	b := p.BackOff()
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 4*time.Second, b.NextBackOff())
}

func TestBearerAuth(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	token := ""
	client := &http.Client{Transport: Wrap(nil, BearerAuth(TokenFunc(func() string { return token })))}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "", got.Load())

	token = "abc"
	resp, err = client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer abc", got.Load())
}

func TestBearerAuth_KeepsExplicitHeader(t *testing.T) {
	var got string
	rt := Wrap(RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header.Get("Authorization")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	}), BearerAuth(TokenFunc(func() string { return "session" })))

	req := httptest.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	req.Header.Set("Authorization", "Basic xyz")
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "Basic xyz", got)
}

func TestUnauthorized_NotifiesHandler(t *testing.T) {
	srv, _ := sequenceServer(t, http.StatusUnauthorized)
	var notified atomic.Int32
	client := &http.Client{Transport: Wrap(nil, Unauthorized(UnauthorizedFunc(func(context.Context, *http.Request) {
		notified.Add(1)
	})))}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), notified.Load())
}

func TestUnauthorized_IgnoresOtherStatuses(t *testing.T) {
	srv, _ := sequenceServer(t, http.StatusForbidden)
	var notified atomic.Int32
	client := &http.Client{Transport: Wrap(nil, Unauthorized(UnauthorizedFunc(func(context.Context, *http.Request) {
		notified.Add(1)
	})))}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Zero(t, notified.Load())
}

func TestRequestID(t *testing.T) {
	var got string
	next := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header.Get(RequestIDHeader)
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})
	rt := Wrap(next, RequestID())

	req := httptest.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Len(t, got, 36)
	assert.Empty(t, req.Header.Get(RequestIDHeader), "original request must not be mutated")

	req.Header.Set(RequestIDHeader, "trace-123")
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "trace-123", got)

	req.Header.Set(RequestIDHeader, strings.Repeat("x", 129))
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Len(t, got, 36)
}

func TestNew_FullChain(t *testing.T) {
	var hits atomic.Int32
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(Options{
		Retry:  fastPolicy(),
		Tokens: TokenFunc(func() string { return "t0k" }),
	})
	assert.Equal(t, DefaultTimeout, client.Timeout)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "Bearer t0k", auth.Load())
}

func TestRetry_RetryAfterOverridesBackoff(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// The computed delay is 1ms; the header asks for a full second.
	client := &http.Client{Transport: Wrap(nil, Retry(fastPolicy()))}

	start := time.Now()
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestRetry_TooManyRequestsWithoutHeaderUsesBackoff(t *testing.T) {
	srv, hits := sequenceServer(t, http.StatusTooManyRequests, http.StatusOK)
	client := &http.Client{Transport: Wrap(nil, Retry(fastPolicy()))}

	start := time.Now()
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRetryAfter(t *testing.T) {
	for _, tt := range []struct {
		name   string
		status int
		header string
		want   time.Duration
		ok     bool
	}{
		{name: "seconds", status: http.StatusTooManyRequests, header: "3", want: 3 * time.Second, ok: true},
		{name: "missing", status: http.StatusTooManyRequests},
		{name: "http date", status: http.StatusTooManyRequests, header: "Wed, 21 Oct 2015 07:28:00 GMT"},
		{name: "zero", status: http.StatusTooManyRequests, header: "0"},
		{name: "not 429", status: http.StatusServiceUnavailable, header: "3"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			got, ok := retryAfter(resp)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogRequests(t *testing.T) {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer live.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	for _, tt := range []struct {
		name    string
		ctx     context.Context
		url     string
		wantMsg string
		level   zapcore.Level
		wantErr bool
	}{
		{name: "completed", ctx: context.Background(), url: live.URL + "/ok", wantMsg: "Request completed", level: zapcore.DebugLevel},
		{name: "server error", ctx: context.Background(), url: live.URL + "/fail", wantMsg: "Request failed", level: zapcore.WarnLevel},
		{name: "aborted", ctx: canceled, url: live.URL + "/ok", wantMsg: "Request aborted", level: zapcore.WarnLevel, wantErr: true},
		{name: "connection refused", ctx: context.Background(), url: deadURL + "/ok", wantMsg: "Network error", level: zapcore.WarnLevel, wantErr: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			ctx := zctx.Base(tt.ctx, zap.New(core))

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, tt.url, nil)
			require.NoError(t, err)
			resp, err := Wrap(nil, LogRequests()).RoundTrip(req)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				resp.Body.Close()
			}

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantMsg, entries[0].Message)
			assert.Equal(t, tt.level, entries[0].Level)
			assert.Equal(t, http.MethodGet, entries[0].ContextMap()["method"])
		})
	}
}
