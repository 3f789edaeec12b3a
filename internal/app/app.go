// Package app wires the storefront client together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/studioform/storefront/internal/api"
	"github.com/studioform/storefront/internal/domain/cart"
	"github.com/studioform/storefront/internal/domain/route"
	"github.com/studioform/storefront/internal/domain/session"
	"github.com/studioform/storefront/internal/domain/wishlist"
	"github.com/studioform/storefront/internal/notice"
	"github.com/studioform/storefront/internal/payment"
	"github.com/studioform/storefront/internal/storage"
	"github.com/studioform/storefront/pkg/health"
	"github.com/studioform/storefront/pkg/httpclient"
)

// Options supplies optional dependencies to New.
type Options struct {
	// Storage overrides the file storage under Config.StateDir.
	Storage storage.Storage
	// Transport is the base HTTP transport. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// Notifier receives user-facing notices. Defaults to logging them.
	Notifier notice.Notifier

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// App is the application state shared by every command.
type App struct {
	cfg  *Config
	lg   *zap.Logger
	opts Options

	API       *api.Client
	Session   *session.Store
	Cart      *cart.Store
	Wishlist  *wishlist.Store
	Navigator *route.Navigator
	Notifier  notice.Notifier

	// verifyAPI has the long payment timeout and no generic retries.
	verifyAPI *api.Client
	guard     *session.Guard
}

// New creates all dependencies. It is the single wiring point for the client.
func New(lg *zap.Logger, cfg *Config, opts Options) (*App, error) {
	store := opts.Storage
	if store == nil {
		fs, err := storage.NewFileStorage(cfg.StateDir)
		if err != nil {
			return nil, errors.Wrap(err, "open state dir")
		}
		store = fs
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notice.NewLogNotifier(lg)
	}

	a := &App{
		cfg:       cfg,
		lg:        lg,
		opts:      opts,
		Navigator: route.NewNavigator(),
		Notifier:  notifier,
	}

	// The session store needs the API client for login, while the client
	// needs the session for tokens and 401 handling. Both closures read
	// fields that are set before any request is made.
	tokens := httpclient.TokenFunc(func() string { return a.Session.Token() })
	unauthorized := httpclient.UnauthorizedFunc(func(ctx context.Context, req *http.Request) {
		a.guard.HandleUnauthorized(ctx, req)
	})

	a.API = api.New(cfg.APIURL, httpclient.New(httpclient.Options{
		Base:    opts.Transport,
		Timeout: cfg.HTTP.Timeout,
		Retry: httpclient.RetryPolicy{
			MaxRetries: cfg.HTTP.MaxRetries,
			BaseDelay:  cfg.HTTP.RetryBaseDelay,
			Statuses:   httpclient.DefaultRetryPolicy().Statuses,
		},
		Tokens:         tokens,
		Unauthorized:   unauthorized,
		TracerProvider: opts.TracerProvider,
		MeterProvider:  opts.MeterProvider,
	}))
	a.verifyAPI = api.New(cfg.APIURL, httpclient.New(httpclient.Options{
		Base:           opts.Transport,
		Timeout:        cfg.Payment.VerifyTimeout,
		Tokens:         tokens,
		Unauthorized:   unauthorized,
		TracerProvider: opts.TracerProvider,
		MeterProvider:  opts.MeterProvider,
	}))

	a.Session = session.NewStore(lg.Named("session"), store, a.API)
	a.guard = session.NewGuard(a.Session, a.Navigator)
	a.Cart = cart.NewStore(lg.Named("cart"), store, a.API, a.Session)
	a.Wishlist = wishlist.NewStore(lg.Named("wishlist"), store, a.API, a.Session)

	// Logout must not leak the cart or wishlist into the next session.
	a.Session.OnLogout(a.Cart.ResetLocal, a.Wishlist.Reset)

	return a, nil
}

// Config returns the configuration the App was built with.
func (a *App) Config() *Config { return a.cfg }

// Navigate moves the navigator to path.
func (a *App) Navigate(path string) {
	a.Navigator.Navigate(path)
	a.lg.Debug("Navigated", zap.String("path", path))
}

// Login authenticates and reconciles local state with the account.
func (a *App) Login(ctx context.Context, email, password string) (*api.User, error) {
	u, err := a.Session.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	a.AfterLogin(ctx)
	return u, nil
}

// Register creates an account, logs in and reconciles local state.
func (a *App) Register(ctx context.Context, req api.RegisterRequest) (*api.User, error) {
	u, err := a.Session.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	a.AfterLogin(ctx)
	return u, nil
}

// AfterLogin pushes the anonymous cart to the account and pulls the account
// wishlist, concurrently. Failures are reported but never undo the login.
func (a *App) AfterLogin(ctx context.Context) {
	lg := zctx.From(ctx)
	var g errgroup.Group
	g.Go(func() error {
		if a.Cart.Snapshot().IsEmpty() {
			if _, err := a.Cart.FetchFromBackend(ctx); err != nil {
				lg.Warn("Failed to load account cart", zap.Error(err))
			}
			return nil
		}
		if err := a.Cart.SyncToBackend(ctx); err != nil {
			lg.Warn("Cart sync failed", zap.Error(err))
			a.Notifier.Notify(notice.Notice{
				Kind:        notice.Warning,
				Title:       "Cart not synced",
				Description: "Your cart is saved on this device. Run cart sync to try again.",
			})
		}
		return nil
	})
	g.Go(func() error {
		a.Wishlist.Fetch(ctx)
		return nil
	})
	_ = g.Wait()
}

// Logout clears the session together with the local cart and wishlist.
func (a *App) Logout() {
	a.Session.Logout()
}

// CheckoutRequest is the input of Checkout.
type CheckoutRequest struct {
	Address       api.ShippingAddress
	CouponCode    string
	PaymentMethod string
}

// PaymentMethodOnline is paid through the gateway.
const PaymentMethodOnline = "razorpay"

// ErrEmptyCart is returned by Checkout when there is nothing to order.
var ErrEmptyCart = errors.New("cart is empty")

// CheckoutResult is the outcome of Checkout.
type CheckoutResult struct {
	Order   *api.Order
	Payment *payment.Result
}

// Checkout places an order for the cart and pays for it through gateway.
// The cart is cleared once the payment is confirmed.
func (a *App) Checkout(ctx context.Context, req CheckoutRequest, gateway payment.Gateway) (*CheckoutResult, error) {
	if !a.Session.IsAuthenticated() {
		return nil, session.ErrNotAuthenticated
	}
	c := a.Cart.Snapshot()
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	method := req.PaymentMethod
	if method == "" {
		method = PaymentMethodOnline
	}

	order, err := a.API.CreateOrder(ctx, api.CreateOrderRequest{
		Items:           c.OrderItems(),
		ShippingAddress: req.Address,
		CouponCode:      req.CouponCode,
		PaymentMethod:   method,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	res := &CheckoutResult{Order: order}
	if method != PaymentMethodOnline {
		a.Cart.ClearCart(ctx)
		return res, nil
	}

	flow, err := a.PaymentFlow(gateway)
	if err != nil {
		return nil, err
	}
	cur, _ := a.Session.Current()
	customer := payment.Customer{}
	if cur.User != nil {
		customer = payment.Customer{Name: cur.User.FullName, Email: cur.User.Email, Phone: cur.User.Phone}
	}
	amount := order.Total
	if amount.IsZero() {
		amount = c.TotalPrice
	}

	pr := flow.Run(ctx, payment.Checkout{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: a.cfg.Payment.Currency,
		Customer: customer,
	})
	res.Payment = &pr
	a.Notifier.Notify(pr.Notice)
	if pr.OK() {
		a.Cart.ClearCart(ctx)
	}
	return res, nil
}

// PaymentFlow builds a payment flow that uses gateway.
func (a *App) PaymentFlow(gateway payment.Gateway) (*payment.Flow, error) {
	var opts []payment.Option
	if a.opts.TracerProvider != nil {
		opts = append(opts, payment.WithTracerProvider(a.opts.TracerProvider))
	}
	if a.opts.MeterProvider != nil {
		opts = append(opts, payment.WithMeterProvider(a.opts.MeterProvider))
	}
	p := a.cfg.Payment
	return payment.NewFlow(a.lg.Named("payment"), a.API, a.verifyAPI, gateway, payment.Config{
		KeyID:             a.cfg.PaymentKey,
		Currency:          p.Currency,
		VerifyTimeout:     p.VerifyTimeout,
		VerifyAttempts:    p.VerifyAttempts,
		VerifyBaseDelay:   p.VerifyBaseDelay,
		WakeAttempts:      p.WakeAttempts,
		WakeDelay:         p.WakeDelay,
		KeepAliveInterval: p.KeepAliveInterval,
		ProbeTimeout:      a.cfg.HTTP.Timeout,
	}, opts...)
}

// Status probes the backend and the payment gateway once.
func (a *App) Status(ctx context.Context) health.Status {
	p := health.New()
	timeout := 10 * time.Second
	p.Add("api", timeout, a.API.Health)
	if u := a.cfg.Payment.ScriptURL; u != "" {
		p.Add("gateway", timeout, health.HTTPCheck(&http.Client{Transport: a.opts.Transport}, u))
	}
	return p.CheckNow(ctx)
}

// WakeBackend waits for a sleeping backend to answer its health check.
func (a *App) WakeBackend(ctx context.Context) error {
	p := a.cfg.Payment
	return health.WaitUntil(ctx, p.WakeAttempts, p.WakeDelay, a.API.Health)
}
