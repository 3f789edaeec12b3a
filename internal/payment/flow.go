package payment

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/studioform/storefront/internal/api"
	"github.com/studioform/storefront/internal/notice"
	"github.com/studioform/storefront/pkg/health"
)

const instrumentationName = "github.com/studioform/storefront/internal/payment"

// Config tunes a Flow.
type Config struct {
	// KeyID is the gateway public key, used when the backend does not send one.
	KeyID    string
	Currency string

	// VerifyTimeout bounds the whole verification step including retries.
	VerifyTimeout   time.Duration
	VerifyAttempts  int
	VerifyBaseDelay time.Duration

	// WakeAttempts and WakeDelay bound the wake-up loop run when the backend
	// does not answer its health check.
	WakeAttempts int
	WakeDelay    time.Duration

	KeepAliveInterval time.Duration
	ProbeTimeout      time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Currency:          "INR",
		VerifyTimeout:     90 * time.Second,
		VerifyAttempts:    4,
		VerifyBaseDelay:   3 * time.Second,
		WakeAttempts:      8,
		WakeDelay:         5 * time.Second,
		KeepAliveInterval: 30 * time.Second,
		ProbeTimeout:      10 * time.Second,
	}
}

// Result is the outcome of a flow.
type Result struct {
	State     State
	Reason    Reason
	OrderID   string
	PaymentID string
	Notice    notice.Notice
	// Err is the underlying error of a failure.
	Err error
}

// OK reports whether the payment was confirmed.
func (r Result) OK() bool { return r.State == StateSuccess }

// Option configures a Flow.
type Option func(*Flow)

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Flow) { f.tp = tp }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(f *Flow) { f.mp = mp }
}

// Flow runs payment confirmation. A Flow may be reused, but runs must not
// overlap.
type Flow struct {
	lg       *zap.Logger
	backend  Backend
	verifier Verifier
	gateway  Gateway
	cfg      Config

	tp       trace.TracerProvider
	mp       metric.MeterProvider
	tracer   trace.Tracer
	outcomes metric.Int64Counter

	state atomic.Int32
}

// NewFlow creates a Flow.
func NewFlow(lg *zap.Logger, b Backend, v Verifier, g Gateway, cfg Config, opts ...Option) (*Flow, error) {
	f := &Flow{
		lg:       lg,
		backend:  b,
		verifier: v,
		gateway:  g,
		cfg:      cfg,
		tp:       otel.GetTracerProvider(),
		mp:       otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(f)
	}
	f.tracer = f.tp.Tracer(instrumentationName)

	outcomes, err := f.mp.Meter(instrumentationName).Int64Counter("storefront.payment.outcomes",
		metric.WithDescription("Terminal outcomes of the payment flow"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create outcomes counter")
	}
	f.outcomes = outcomes
	return f, nil
}

// State returns the current step. It is safe to call while Run is active.
func (f *Flow) State() State { return State(f.state.Load()) }

func (f *Flow) setState(lg *zap.Logger, s State) {
	prev := State(f.state.Swap(int32(s)))
	if prev != s {
		lg.Info("Payment state changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", s),
		)
	}
}

// Run takes a payment for co and confirms it with the backend. The keep-alive
// cycle and the loaded widget are released on every path.
func (f *Flow) Run(ctx context.Context, co Checkout) (res Result) {
	ctx, span := f.tracer.Start(ctx, "payment.Run", trace.WithAttributes(
		attribute.String("order.id", co.OrderID),
		attribute.String("payment.amount", co.Amount.String()),
	))
	lg := f.lg.With(zap.String("order_id", co.OrderID))
	res.OrderID = co.OrderID
	f.setState(lg, StateIdle)

	keepAlive := health.KeepAlive(ctx, f.cfg.KeepAliveInterval, f.cfg.ProbeTimeout, f.backend.Health)
	var widget Widget
	defer func() {
		keepAlive.Stop()
		lg.Debug("Keep-alive stopped", zap.Int64("pings", keepAlive.Runs()))
		if widget != nil {
			if err := widget.Close(); err != nil {
				lg.Warn("Failed to close payment widget", zap.Error(err))
			}
		}
		res.Notice = noticeFor(res)
		f.finish(ctx, span, lg, res)
	}()

	fail := func(reason Reason, err error) Result {
		res.State = StateFailure
		res.Reason = reason
		res.Err = err
		f.setState(lg, StateFailure)
		return res
	}

	f.setState(lg, StateScriptLoading)
	w, err := f.prepare(ctx, lg)
	if err != nil {
		return fail(ReasonScriptLoad, err)
	}
	widget = w

	po, err := f.backend.CreatePaymentOrder(ctx, api.CreatePaymentRequest{
		OrderID:  co.OrderID,
		Amount:   co.Amount.InexactFloat64(),
		Currency: f.currency(co),
		Receipt:  uuid.NewString(),
	})
	if err != nil {
		return fail(ReasonOrderCreate, errors.Wrap(err, "create payment order"))
	}

	f.setState(lg, StateWidgetOpen)
	conf, err := widget.Open(ctx, OpenRequest{
		KeyID:          f.keyID(po),
		GatewayOrderID: po.GatewayOrderID,
		OrderID:        co.OrderID,
		Amount:         co.Amount,
		Currency:       f.currency(co),
		Customer:       co.Customer,
	})
	switch {
	case errors.Is(err, ErrDismissed):
		return fail(ReasonCancelled, err)
	case err != nil:
		return fail(ReasonGatewayFailed, errors.Wrap(err, "gateway payment"))
	case conf == nil:
		return fail(ReasonGatewayFailed, errors.New("gateway returned no confirmation"))
	}
	res.PaymentID = conf.PaymentID
	if conf.GatewayOrderID == "" {
		conf.GatewayOrderID = po.GatewayOrderID
	}

	f.setState(lg, StateVerifying)
	f.wake(ctx, lg)
	if err := f.verify(ctx, lg, api.VerifyPaymentRequest{
		GatewayOrderID:   conf.GatewayOrderID,
		GatewayPaymentID: conf.PaymentID,
		Signature:        conf.Signature,
		OrderID:          co.OrderID,
	}); err != nil {
		return fail(Classify(err), err)
	}

	res.State = StateSuccess
	f.setState(lg, StateSuccess)
	return res
}

// prepare loads the gateway while warming the backend up. Only a gateway
// failure is fatal; a backend that stays asleep surfaces at order creation.
func (f *Flow) prepare(ctx context.Context, lg *zap.Logger) (Widget, error) {
	var widget Widget
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := f.gateway.Load(gctx)
		if err != nil {
			return errors.Wrap(err, "load gateway")
		}
		widget = w
		return nil
	})
	g.Go(func() error {
		if err := f.backend.Health(gctx); err != nil {
			lg.Info("Backend not ready yet", zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if widget != nil {
			_ = widget.Close()
		}
		return nil, err
	}
	return widget, nil
}

// wake makes sure the backend answers before verification. A backend that
// never wakes up is logged and verification is attempted anyway.
func (f *Flow) wake(ctx context.Context, lg *zap.Logger) {
	if err := f.backend.Health(ctx); err == nil {
		return
	}
	lg.Warn("Backend not responding, waking it up", zap.Int("attempts", f.cfg.WakeAttempts))
	if err := health.WaitUntil(ctx, f.cfg.WakeAttempts, f.cfg.WakeDelay, f.backend.Health); err != nil {
		lg.Warn("Backend still unavailable, verifying anyway", zap.Error(err))
	}
}

// verify confirms the payment, retrying everything except explicit
// rejections. It has its own deadline and attempt budget.
func (f *Flow) verify(ctx context.Context, lg *zap.Logger, req api.VerifyPaymentRequest) error {
	if f.cfg.VerifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.VerifyTimeout)
		defer cancel()
	}

	attempt := 0
	op := func() (*api.VerifyPaymentResponse, error) {
		attempt++
		resp, err := f.verifier.VerifyPayment(ctx, req)
		if err != nil {
			if Classify(err) == ReasonVerificationFailed {
				return nil, backoff.Permanent(err)
			}
			lg.Warn("Payment verification attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return nil, err
		}
		if !resp.Success {
			return nil, backoff.Permanent(&VerificationError{Message: resp.Message})
		}
		return resp, nil
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(f.verifyBackOff()),
		backoff.WithMaxTries(uint(max(f.cfg.VerifyAttempts, 1))),
	)
	if err != nil {
		return errors.Wrap(err, "verify payment")
	}
	return nil
}

func (f *Flow) verifyBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.cfg.VerifyBaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = f.cfg.VerifyBaseDelay << max(f.cfg.VerifyAttempts, 1)
	b.Reset()
	return b
}

func (f *Flow) finish(ctx context.Context, span trace.Span, lg *zap.Logger, res Result) {
	outcome := string(res.Reason)
	if res.OK() {
		outcome = "success"
	}
	f.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	span.SetAttributes(attribute.String("payment.outcome", outcome))

	if res.OK() {
		span.SetStatus(codes.Ok, "")
		lg.Info("Payment confirmed", zap.String("payment_id", res.PaymentID))
	} else {
		if res.Err != nil {
			span.RecordError(res.Err)
		}
		span.SetStatus(codes.Error, outcome)
		lg.Warn("Payment flow failed",
			zap.String("reason", outcome),
			zap.String("payment_id", res.PaymentID),
			zap.Error(res.Err),
		)
	}
	span.End()
}

func (f *Flow) currency(co Checkout) string {
	if co.Currency != "" {
		return co.Currency
	}
	return f.cfg.Currency
}

func (f *Flow) keyID(po *api.PaymentOrder) string {
	if po.KeyID != "" {
		return po.KeyID
	}
	return f.cfg.KeyID
}
