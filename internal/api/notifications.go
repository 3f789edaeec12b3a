package api

import "context"

// ListNotifications returns the current user's notifications.
func (c *Client) ListNotifications(ctx context.Context) ([]Notification, error) {
	var ns []Notification
	if err := c.get(ctx, "/notifications/", nil, &ns); err != nil {
		return nil, err
	}
	return ns, nil
}

// MarkNotificationRead marks a notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.put(ctx, "/notifications/"+seg(id)+"/read", nil, nil)
}
