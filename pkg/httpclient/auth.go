package httpclient

import (
	"context"
	"net/http"
)

// TokenSource yields the bearer token to attach to outbound requests.
// An empty string means no session exists and no header is added.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token calls f().
func (f TokenFunc) Token() string { return f() }

// BearerAuth returns a middleware that sets "Authorization: Bearer <token>"
// on every request for which src currently has a token. The token is read at
// request time, so a login or logout between two requests is picked up
// without rebuilding the client. Requests that already carry an
// Authorization header are passed through untouched.
func BearerAuth(src TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if src == nil || req.Header.Get("Authorization") != "" {
				return next.RoundTrip(req)
			}
			token := src.Token()
			if token == "" {
				return next.RoundTrip(req)
			}
			r := req.Clone(req.Context())
			r.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(r)
		})
	}
}

// UnauthorizedHandler reacts to 401 responses. Implementations decide
// whether the session must be dropped based on where the user currently is.
type UnauthorizedHandler interface {
	HandleUnauthorized(ctx context.Context, req *http.Request)
}

// UnauthorizedFunc adapts a function to UnauthorizedHandler.
type UnauthorizedFunc func(ctx context.Context, req *http.Request)

// HandleUnauthorized calls f(ctx, req).
func (f UnauthorizedFunc) HandleUnauthorized(ctx context.Context, req *http.Request) {
	f(ctx, req)
}

// Unauthorized returns a middleware that notifies h about every 401
// response. The response itself is returned to the caller unchanged.
func Unauthorized(h UnauthorizedHandler) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || h == nil {
				return resp, err
			}
			if resp.StatusCode == http.StatusUnauthorized {
				h.HandleUnauthorized(req.Context(), req)
			}
			return resp, nil
		})
	}
}
