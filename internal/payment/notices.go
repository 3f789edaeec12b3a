package payment

import (
	"fmt"

	"github.com/studioform/storefront/internal/notice"
)

// noticeFor builds the message shown at the end of a flow.
func noticeFor(res Result) notice.Notice {
	switch res.Reason {
	case ReasonNone:
		return notice.Notice{
			Kind:        notice.Success,
			Title:       "Payment successful",
			Description: fmt.Sprintf("Order %s is confirmed. A receipt is on its way to your email.", res.OrderID),
		}
	case ReasonScriptLoad:
		return notice.Notice{
			Kind:        notice.Error,
			Title:       "Payment gateway unavailable",
			Description: "We could not load the payment gateway. Check your connection and try again. You have not been charged.",
			Blocking:    true,
		}
	case ReasonOrderCreate:
		n := notice.FromError("Could not start payment", res.Err)
		n.Blocking = true
		return n
	case ReasonCancelled:
		return notice.Notice{
			Kind:        notice.Warning,
			Title:       "Payment cancelled",
			Description: "You closed the payment window. Your order is saved and you can pay for it from your orders page.",
		}
	case ReasonGatewayFailed:
		return notice.Notice{
			Kind:        notice.Error,
			Title:       "Payment failed",
			Description: "The payment did not go through. Try again or use a different payment method.",
			Blocking:    true,
		}
	case ReasonConfirmationDelayed:
		return notice.Notice{
			Kind:  notice.Warning,
			Title: "Payment received, confirmation delayed",
			Description: fmt.Sprintf("Your payment %s was most likely successful, but we could not confirm it yet. "+
				"Please do not pay again. Check your email or your orders page in a few minutes.", res.PaymentID),
			Blocking: true,
		}
	default:
		return notice.Notice{
			Kind:  notice.Error,
			Title: "Payment verification failed",
			Description: fmt.Sprintf("We could not verify your payment. If money was deducted, contact support "+
				"with order %s and payment %s.", res.OrderID, res.PaymentID),
			Blocking: true,
		}
	}
}
