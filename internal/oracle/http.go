package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/donaldgifford/price-drop-tracker/internal/metrics"
	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

const maxErrorBody = 512

var tracer = otel.Tracer("github.com/donaldgifford/price-drop-tracker/internal/oracle")

// HTTPOracle queries a price search service over HTTP:
// GET {endpoint}?q=<query> returning {"listings": [{"title","price","url"}]}.
type HTTPOracle struct {
	endpoint    string
	client      *http.Client
	rateLimiter *RateLimiter
}

// HTTPOption configures the HTTPOracle.
type HTTPOption func(*HTTPOracle)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(o *HTTPOracle) {
		o.client = hc
	}
}

// WithRateLimiter makes every Search wait on r first.
func WithRateLimiter(r *RateLimiter) HTTPOption {
	return func(o *HTTPOracle) {
		o.rateLimiter = r
	}
}

// NewHTTPOracle creates an oracle backed by the search service at endpoint.
func NewHTTPOracle(endpoint string, opts ...HTTPOption) *HTTPOracle {
	o := &HTTPOracle{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type searchResponse struct {
	Listings []domain.Listing `json:"listings"`
}

// Search implements PriceOracle. Failures are always *Error.
func (o *HTTPOracle) Search(ctx context.Context, query string) ([]domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "oracle.search")
	defer span.End()
	span.SetAttributes(attribute.String("oracle.query", query))

	start := time.Now()
	listings, err := o.search(ctx, query)
	metrics.OracleDuration.Observe(time.Since(start).Seconds())
	metrics.OracleCallsTotal.Inc()

	if err != nil {
		kind := KindOf(err)
		metrics.OracleErrorsTotal.WithLabelValues(kind.String()).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
		return nil, err
	}

	span.SetAttributes(attribute.Int("oracle.listings", len(listings)))
	return listings, nil
}

func (o *HTTPOracle) search(ctx context.Context, query string) ([]domain.Listing, error) {
	if o.rateLimiter != nil {
		if err := o.rateLimiter.Wait(ctx); err != nil {
			return nil, transient(query, fmt.Errorf("rate limit: %w", err))
		}
	}

	u, err := url.Parse(o.endpoint)
	if err != nil {
		return nil, permanent(query, fmt.Errorf("parsing endpoint: %w", err))
	}
	params := u.Query()
	params.Set("q", query)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, permanent(query, fmt.Errorf("creating HTTP request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, transient(query, fmt.Errorf("executing search request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Query: query,
			Kind:  classifyStatus(resp.StatusCode),
			Err:   fmt.Errorf("search service error (status %d): %s", resp.StatusCode, string(body)),
		}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, transient(query, err)
		}
		return nil, permanent(query, fmt.Errorf("decoding search response: %w", err))
	}

	if sr.Listings == nil {
		return []domain.Listing{}, nil
	}
	return sr.Listings, nil
}
