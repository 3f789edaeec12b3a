package api

import "context"

// CreateReturn files a return or exchange request.
func (c *Client) CreateReturn(ctx context.Context, req CreateReturnRequest) (*Return, error) {
	var r Return
	if err := c.post(ctx, "/returns/", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReturns returns the current user's return requests.
func (c *Client) ListReturns(ctx context.Context) ([]Return, error) {
	var rs []Return
	if err := c.get(ctx, "/returns/", nil, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}
