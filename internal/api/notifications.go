package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nhle/campushub/internal/model"
)

// ListNotifications fetches every notification of the caller, newest first.
func (c *Client) ListNotifications(
	ctx context.Context,
	token string,
) ([]model.Notification, error) {
	var resp notificationsResponse
	if err := c.do(ctx, http.MethodGet, c.notifPath, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	notifications := make([]model.Notification, 0, len(resp.Notifications))
	for _, r := range resp.Notifications {
		notifications = append(notifications, r.toModel())
	}
	return notifications, nil
}

// MarkAllNotificationsRead marks every notification of the caller read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context, token string) error {
	path := c.notifPath + "/read"
	if err := c.do(ctx, http.MethodPut, path, token, struct{}{}, nil); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// MarkNotificationRead marks a single notification read.
func (c *Client) MarkNotificationRead(ctx context.Context, token string, id string) error {
	path := c.notifPath + "/" + url.PathEscape(id) + "/read"
	if err := c.do(ctx, http.MethodPut, path, token, struct{}{}, nil); err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return nil
}

// ClearNotifications deletes every notification of the caller.
func (c *Client) ClearNotifications(ctx context.Context, token string) error {
	path := c.notifPath + "/clear"
	if err := c.do(ctx, http.MethodDelete, path, token, nil, nil); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}
	return nil
}
