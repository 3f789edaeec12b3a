package api

import "context"

// ProductReviews returns the reviews of a product.
func (c *Client) ProductReviews(ctx context.Context, productID string) ([]Review, error) {
	var reviews []Review
	if err := c.get(ctx, "/reviews/product/"+seg(productID), nil, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// CreateReview posts a review.
func (c *Client) CreateReview(ctx context.Context, req CreateReviewRequest) (*Review, error) {
	var r Review
	if err := c.post(ctx, "/reviews/", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// MarkReviewHelpful upvotes a review.
func (c *Client) MarkReviewHelpful(ctx context.Context, id string) error {
	return c.post(ctx, "/reviews/"+seg(id)+"/helpful", nil, nil)
}
