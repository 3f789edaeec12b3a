// Package payment drives checkout payment confirmation.
//
// A Flow moves through
//
//	idle -> script-loading -> widget-open -> verifying -> success | failure
//
// While it runs, the backend is kept awake with periodic health pings so a
// cold-started backend does not time out the verification call. Failures are
// classified into Reasons; network trouble during verification is reported
// as a delayed confirmation rather than a failed payment, because the charge
// has most likely been captured by the gateway already.
package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/studioform/storefront/internal/api"
)

// State is a step of the payment flow.
type State int32

const (
	StateIdle State = iota
	StateScriptLoading
	StateWidgetOpen
	StateVerifying
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScriptLoading:
		return "script-loading"
	case StateWidgetOpen:
		return "widget-open"
	case StateVerifying:
		return "verifying"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Reason explains a terminal failure.
type Reason string

const (
	ReasonNone Reason = ""
	// ReasonScriptLoad means the gateway checkout could not be loaded.
	ReasonScriptLoad Reason = "script_load"
	// ReasonOrderCreate means the backend refused to create the gateway order.
	ReasonOrderCreate Reason = "order_create"
	// ReasonCancelled means the shopper dismissed the payment widget.
	ReasonCancelled Reason = "cancelled"
	// ReasonGatewayFailed means the gateway reported the payment as failed.
	ReasonGatewayFailed Reason = "gateway_failed"
	// ReasonConfirmationDelayed means the payment went through at the
	// gateway but the backend could not be reached to confirm it.
	ReasonConfirmationDelayed Reason = "confirmation_delayed"
	// ReasonVerificationFailed means the backend rejected the payment.
	ReasonVerificationFailed Reason = "verification_failed"
)

// ErrDismissed is returned by Widget.Open when the shopper closes the widget.
var ErrDismissed = errors.New("payment widget dismissed")

// Customer prefills the payment widget.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Checkout is the input of a payment flow.
type Checkout struct {
	// OrderID is the backend order being paid for.
	OrderID  string
	Amount   decimal.Decimal
	Currency string
	Customer Customer
}

// OpenRequest is what the widget needs to take a payment.
type OpenRequest struct {
	KeyID          string
	GatewayOrderID string
	OrderID        string
	Amount         decimal.Decimal
	Currency       string
	Customer       Customer
}

// Confirmation is the gateway's success callback payload.
type Confirmation struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// Gateway loads the third-party checkout.
type Gateway interface {
	Load(ctx context.Context) (Widget, error)
}

// Widget is a loaded checkout. Close releases it and is always called once
// the flow ends.
type Widget interface {
	Open(ctx context.Context, req OpenRequest) (*Confirmation, error)
	Close() error
}

// Backend is the payment part of the REST API.
type Backend interface {
	CreatePaymentOrder(ctx context.Context, req api.CreatePaymentRequest) (*api.PaymentOrder, error)
	Health(ctx context.Context) error
}

// Verifier confirms a payment with the backend.
type Verifier interface {
	VerifyPayment(ctx context.Context, req api.VerifyPaymentRequest) (*api.VerifyPaymentResponse, error)
}

var (
	_ Backend  = (*api.Client)(nil)
	_ Verifier = (*api.Client)(nil)
)

// VerificationError is a payment the backend explicitly rejected.
type VerificationError struct {
	Message string
}

func (e *VerificationError) Error() string {
	if e.Message == "" {
		return "payment verification failed"
	}
	return "payment verification failed: " + e.Message
}

// Classify maps a verification error to a Reason. Anything that suggests the
// backend never gave a definitive answer (network errors, timeouts, 408, 429
// and 5xx) is a delayed confirmation. Explicit rejections are failures.
func Classify(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	var verr *VerificationError
	if errors.As(err, &verr) {
		return ReasonVerificationFailed
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status >= http.StatusInternalServerError,
			apiErr.Status == http.StatusRequestTimeout,
			apiErr.Status == http.StatusTooManyRequests:
			return ReasonConfirmationDelayed
		default:
			return ReasonVerificationFailed
		}
	}
	return ReasonConfirmationDelayed
}
