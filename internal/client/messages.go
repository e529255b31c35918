package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/DanixMP/Azmooneh/internal/model"
)

// ListMessages returns the caller's messages.
func (c *Client) ListMessages(ctx context.Context) ([]model.Message, error) {
	var out []model.Message
	if err := c.do(ctx, call{method: http.MethodGet, path: "/messages/", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts a message from a student.
func (c *Client) SendMessage(ctx context.Context, req model.SendMessageRequest) (*model.Message, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	var out model.Message
	if err := c.do(ctx, call{method: http.MethodPost, path: "/messages/", body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkMessageRead flags a message as read. Professors only.
func (c *Client) MarkMessageRead(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodPost, path: fmt.Sprintf("/messages/%d/mark_read/", id), out: &model.StatusMessage{}})
}

// UnreadCount returns how many messages the professor has not read.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out model.UnreadCount
	if err := c.do(ctx, call{method: http.MethodGet, path: "/messages/unread_count/", out: &out}); err != nil {
		return 0, err
	}
	return out.Count, nil
}
