package api

import (
	"context"
	"net/url"
	"strconv"
)

// ListProducts returns catalog products matching f.
func (c *Client) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Skip > 0 {
		q.Set("skip", strconv.Itoa(f.Skip))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var products []Product
	if err := c.get(ctx, "/products/", q, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns a single product.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := c.get(ctx, "/products/"+seg(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RecordView increments the view counter of a product.
func (c *Client) RecordView(ctx context.Context, id string) error {
	return c.post(ctx, "/products/"+seg(id)+"/view", nil, nil)
}
