package api

import "context"

// AdminListUsers returns all accounts.
func (c *Client) AdminListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.get(ctx, "/admin/users/", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AdminUpdateUser changes the flags of an account.
func (c *Client) AdminUpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	var u User
	if err := c.put(ctx, "/admin/users/"+seg(id), upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// AdminListOrders returns every order in the store.
func (c *Client) AdminListOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.get(ctx, "/orders/admin/all", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// AdminSetOrderStatus moves an order to a new status.
func (c *Client) AdminSetOrderStatus(ctx context.Context, id, status string) error {
	return c.put(ctx, "/orders/admin/"+seg(id)+"/status", orderStatusRequest{Status: status}, nil)
}

// AdminListReturns returns every return request.
func (c *Client) AdminListReturns(ctx context.Context) ([]Return, error) {
	var rs []Return
	if err := c.get(ctx, "/returns/admin/all", nil, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// AdminUpdateReturn sets the status and notes of a return request.
func (c *Client) AdminUpdateReturn(ctx context.Context, id, status, notes string) error {
	body := struct {
		Status     string `json:"status"`
		AdminNotes string `json:"admin_notes,omitempty"`
	}{Status: status, AdminNotes: notes}
	return c.put(ctx, "/returns/admin/"+seg(id), body, nil)
}

// AdminSendNewsletter mails a newsletter to all subscribers.
func (c *Client) AdminSendNewsletter(ctx context.Context, msg NewsletterMessage) (*Ack, error) {
	var ack Ack
	if err := c.post(ctx, "/admin/newsletter/send", msg, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}
