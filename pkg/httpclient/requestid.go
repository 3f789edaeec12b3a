package httpclient

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header correlating client and server logs.
const RequestIDHeader = "X-Request-ID"

// RequestID returns a middleware that ensures every outbound request carries
// an identifier. A valid X-Request-ID already on the request is kept;
// otherwise a new UUID v4 is generated. Retries of the same request share
// the identifier because RequestID sits outside Retry in the default chain.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if isValidRequestID(req.Header.Get(RequestIDHeader)) {
				return next.RoundTrip(req)
			}
			r := req.Clone(req.Context())
			r.Header.Set(RequestIDHeader, uuid.New().String())
			return next.RoundTrip(r)
		})
	}
}

// isValidRequestID checks that id is non-empty, at most 128 bytes, and
// contains only printable ASCII (0x20-0x7E).
func isValidRequestID(id string) bool {
	if len(id) == 0 || len(id) > 128 {
		return false
	}
	for i := range len(id) {
		if id[i] < 0x20 || id[i] > 0x7E {
			return false
		}
	}
	return true
}
