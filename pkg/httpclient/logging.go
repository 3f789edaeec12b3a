package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// LogRequests returns a middleware that logs every round trip through the
// context logger. Transport failures are logged at warn level and returned
// unchanged; aborted requests are reported separately from network errors.
func LogRequests() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			lg := zctx.From(req.Context()).With(
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("request_id", req.Header.Get(RequestIDHeader)),
				zap.Duration("duration", time.Since(start)),
			)
			switch {
			case errors.Is(err, context.Canceled):
				lg.Warn("Request aborted", zap.Error(err))
			case err != nil:
				lg.Warn("Network error", zap.Error(err))
			case resp.StatusCode >= http.StatusInternalServerError:
				lg.Warn("Request failed", zap.Int("status", resp.StatusCode))
			default:
				lg.Debug("Request completed", zap.Int("status", resp.StatusCode))
			}
			return resp, err
		})
	}
}
