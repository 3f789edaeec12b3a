package api

import (
	"context"
)

// HealthPath is the backend liveness endpoint.
const HealthPath = "/health"

// Health pings the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, HealthPath, nil, nil)
}

// Subscribe adds an email to the newsletter.
func (c *Client) Subscribe(ctx context.Context, email string) (*Ack, error) {
	body := struct {
		Email string `json:"email"`
	}{Email: email}

	var ack Ack
	if err := c.post(ctx, "/newsletter/subscribe", body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Contact submits the contact form.
func (c *Client) Contact(ctx context.Context, req ContactRequest) (*Ack, error) {
	var ack Ack
	if err := c.post(ctx, "/contact/submit", req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}
