package client

import (
	"context"
	"net/http"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResult is the current market for a query.
type SearchResult struct {
	Query    string           `json:"query"`
	Total    int              `json:"total"`
	Listings []domain.Listing `json:"listings"`
	Best     *domain.Listing  `json:"best,omitempty"`
}

// Search returns up to limit current listings for query. A zero limit uses
// the server default.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	var res SearchResult
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/search", searchRequest{Query: query, Limit: limit}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
