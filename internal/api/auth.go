package api

import (
	"context"
	"net/url"

	"github.com/go-faster/errors"
)

// Login exchanges credentials for an access token. The backend expects an
// OAuth2 password form, so the email is sent as username.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	form := url.Values{
		"username": {email},
		"password": {password},
	}
	var resp LoginResponse
	if err := c.post(ctx, "/auth/login", form, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, errors.New("login response without access token")
	}
	return &resp, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var u User
	if err := c.post(ctx, "/auth/register", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
