// Package httpclient provides composable http.RoundTripper middleware for
// outbound API traffic: bearer authentication, retries with exponential
// backoff, centralized 401 handling, request IDs, request logging and
// OpenTelemetry instrumentation.
//
// The chain is built with Wrap, mirroring server-side middleware stacks: the
// first middleware passed is the outermost and sees the request first.
package httpclient

import "net/http"

// Middleware decorates an http.RoundTripper.
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts an ordinary function to http.RoundTripper.
type RoundTripperFunc func(req *http.Request) (*http.Response, error)

// RoundTrip calls f(req).
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Wrap applies mws to rt so that mws[0] is the outermost layer.
func Wrap(rt http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}
