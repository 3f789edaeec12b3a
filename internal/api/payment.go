package api

import "context"

// CreatePaymentOrder creates a gateway order for an existing order.
func (c *Client) CreatePaymentOrder(ctx context.Context, req CreatePaymentRequest) (*PaymentOrder, error) {
	var po PaymentOrder
	if err := c.post(ctx, "/payment/create-order", req, &po); err != nil {
		return nil, err
	}
	return &po, nil
}

// VerifyPayment asks the backend to verify a completed gateway payment.
// A decoded response with Success false is not an error.
func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*VerifyPaymentResponse, error) {
	var resp VerifyPaymentResponse
	if err := c.post(ctx, "/payment/verify-payment", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
