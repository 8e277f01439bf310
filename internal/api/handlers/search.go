package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/price-drop-tracker/internal/engine"
	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

const defaultSearchLimit = 10

// Searcher looks up current listings for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (*engine.SearchResult, error)
}

// SearchHandler serves on-demand price lookups.
type SearchHandler struct {
	searcher Searcher
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(s Searcher) *SearchHandler {
	return &SearchHandler{searcher: s}
}

// SearchInput is the request body for the search endpoint.
type SearchInput struct {
	Body struct {
		Query string `json:"query"           doc:"Free-text product query"                           example:"LG OLED 55"`
		Limit int    `json:"limit,omitempty" doc:"Maximum listings to return (default 10)" minimum:"1" maximum:"100" example:"10"`
	}
}

// SearchResponse is the current market for a query.
type SearchResponse struct {
	Query    string           `json:"query"          doc:"Normalized query sent to the price oracle"`
	Total    int              `json:"total"          doc:"Listings the oracle returned before the limit was applied"`
	Listings []domain.Listing `json:"listings"       doc:"Listings in oracle order"`
	Best     *domain.Listing  `json:"best,omitempty" doc:"Cheapest listing; a subscription would start from its price"`
}

// SearchOutput wraps SearchResponse.
type SearchOutput struct {
	Body SearchResponse
}

// Search returns current listings for a query. The best listing is chosen
// from every result, not just the returned page.
func (h *SearchHandler) Search(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	res, err := h.searcher.Search(ctx, input.Body.Query)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return nil, huma.Error502BadGateway("price oracle error: " + err.Error())
	}

	limit := input.Body.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	listings := res.Listings
	if len(listings) > limit {
		listings = listings[:limit]
	}

	return &SearchOutput{Body: SearchResponse{
		Query:    res.Query,
		Total:    len(res.Listings),
		Listings: listings,
		Best:     res.Best,
	}}, nil
}

// RegisterSearchRoutes registers the search endpoint with the Huma API.
func RegisterSearchRoutes(api huma.API, h *SearchHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "search-listings",
		Method:      http.MethodPost,
		Path:        "/api/v1/search",
		Summary:     "Search current listings",
		Description: "Asks the price oracle for a query's current listings and highlights the cheapest, " +
			"without creating a subscription.",
		Tags:   []string{"search"},
		Errors: []int{http.StatusBadRequest, http.StatusBadGateway},
	}, h.Search)
}
