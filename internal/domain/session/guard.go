package session

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/studioform/storefront/internal/domain/route"
	"github.com/studioform/storefront/pkg/httpclient"
)

var _ httpclient.UnauthorizedHandler = (*Guard)(nil)

// Guard reacts to 401 responses. On a public route the session is kept,
// since the failing call was incidental to what the user is viewing.
// Anywhere else the user is logged out and sent to the login page.
type Guard struct {
	store *Store
	nav   *route.Navigator
}

// NewGuard returns a Guard for store that consults nav.
func NewGuard(store *Store, nav *route.Navigator) *Guard {
	return &Guard{store: store, nav: nav}
}

// HandleUnauthorized implements httpclient.UnauthorizedHandler.
func (g *Guard) HandleUnauthorized(ctx context.Context, req *http.Request) {
	lg := zctx.From(ctx)
	path, access := g.nav.Current()
	if access == route.Public {
		lg.Info("Unauthorized on public route, keeping session",
			zap.String("route", path),
			zap.String("request", req.URL.Path),
		)
		return
	}

	lg.Warn("Unauthorized, logging out",
		zap.String("route", path),
		zap.String("request", req.URL.Path),
	)
	g.store.Logout()
	g.nav.Navigate(route.Login)
}
