package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

type subscribeRequest struct {
	Query string `json:"query"`
	URL   string `json:"url,omitempty"`
}

// Subscribe subscribes userID to query. created is false when the user
// already followed the query.
func (c *Client) Subscribe(
	ctx context.Context,
	userID int64,
	query string,
	link string,
) (*domain.Subscription, bool, error) {
	var sub domain.Subscription
	status, err := c.do(ctx, http.MethodPost, subscriptionsPath(userID), subscribeRequest{Query: query, URL: link}, &sub)
	if err != nil {
		return nil, false, err
	}
	return &sub, status == http.StatusCreated, nil
}

// ListSubscriptions returns the user's subscriptions in creation order.
func (c *Client) ListSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	if err := c.get(ctx, subscriptionsPath(userID), &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Unsubscribe removes a subscription and reports whether it existed.
func (c *Client) Unsubscribe(ctx context.Context, userID int64, id string) (bool, error) {
	var out struct {
		Removed bool `json:"removed"`
	}
	if err := c.del(ctx, subscriptionsPath(userID)+"/"+url.PathEscape(id), &out); err != nil {
		return false, err
	}
	return out.Removed, nil
}

func subscriptionsPath(userID int64) string {
	return fmt.Sprintf("/api/v1/users/%d/subscriptions", userID)
}
