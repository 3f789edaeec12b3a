package api

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

type wishlistResponse struct {
	Items []WishlistEntry `json:"items"`
}

// GetWishlist returns the server-side wishlist. Both a bare array and an
// {"items": [...]} envelope are accepted.
func (c *Client) GetWishlist(ctx context.Context) ([]WishlistEntry, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/wishlist/", nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	if jx.DecodeBytes(raw).Next() == jx.Array {
		var items []WishlistEntry
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, errors.Wrap(err, "decode wishlist")
		}
		return items, nil
	}
	var resp wishlistResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "decode wishlist")
	}
	return resp.Items, nil
}

// AddToWishlist adds a product to the server-side wishlist.
func (c *Client) AddToWishlist(ctx context.Context, productID string) error {
	return c.post(ctx, "/wishlist/add/"+seg(productID), nil, nil)
}

// RemoveFromWishlist removes a product from the server-side wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) error {
	return c.delete(ctx, "/wishlist/remove/"+seg(productID), nil)
}
