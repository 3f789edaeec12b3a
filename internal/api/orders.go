package api

import "context"

type orderStatusRequest struct {
	Status string `json:"status"`
}

// CreateOrder places an order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var o Order
	if err := c.post(ctx, "/orders/", req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders returns the orders of the current user.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.get(ctx, "/orders/", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder returns a single order.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := c.get(ctx, "/orders/"+seg(id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CancelOrder cancels a pending order.
func (c *Client) CancelOrder(ctx context.Context, id string) error {
	return c.put(ctx, "/orders/"+seg(id)+"/cancel", nil, nil)
}

// ValidateCoupon checks a coupon code against an order subtotal.
func (c *Client) ValidateCoupon(ctx context.Context, code string, subtotal float64) (*CouponValidation, error) {
	body := struct {
		Code     string  `json:"code"`
		Subtotal float64 `json:"subtotal"`
	}{Code: code, Subtotal: subtotal}

	var v CouponValidation
	if err := c.post(ctx, "/coupons/validate", body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
