package api

import "context"

type cartAddRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartUpdateRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the server-side cart of the current user.
func (c *Client) GetCart(ctx context.Context) (*ServerCart, error) {
	var cart ServerCart
	if err := c.get(ctx, "/cart/", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart adds quantity units of a product to the server-side cart.
func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) error {
	return c.post(ctx, "/cart/add", cartAddRequest{ProductID: productID, Quantity: quantity}, nil)
}

// UpdateCartItem sets the quantity of a server-side cart line.
func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	return c.put(ctx, "/cart/update/"+seg(productID), cartUpdateRequest{Quantity: quantity}, nil)
}

// RemoveFromCart deletes a server-side cart line.
func (c *Client) RemoveFromCart(ctx context.Context, productID string) error {
	return c.delete(ctx, "/cart/remove/"+seg(productID), nil)
}

// ClearCart empties the server-side cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.delete(ctx, "/cart/clear", nil)
}
