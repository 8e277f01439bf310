package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/donaldgifford/price-drop-tracker/internal/metrics"
	"github.com/donaldgifford/price-drop-tracker/internal/oracle"
	"github.com/donaldgifford/price-drop-tracker/internal/store"
	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// SubscriptionService is the command surface used by the chat layer and the
// HTTP API.
type SubscriptionService struct {
	store         store.Store
	oracle        oracle.PriceOracle
	oracleTimeout time.Duration
	log           *slog.Logger
}

// NewSubscriptionService creates a SubscriptionService. oracleTimeout bounds
// the best-effort price lookup made when a subscription is created.
func NewSubscriptionService(
	s store.Store,
	o oracle.PriceOracle,
	oracleTimeout time.Duration,
	log *slog.Logger,
) *SubscriptionService {
	if oracleTimeout <= 0 {
		oracleTimeout = defaultOracleTimeout
	}
	return &SubscriptionService{store: s, oracle: o, oracleTimeout: oracleTimeout, log: log}
}

// Subscribe adds a subscription or, when the user already follows the
// query, updates its URL. A new subscription's reference price is the
// cheapest current listing; if the oracle is unreachable it stays unknown
// and the next scan fills it in. created reports whether a new subscription
// was made.
func (svc *SubscriptionService) Subscribe(
	ctx context.Context,
	userID int64,
	query string,
	url string,
) (*domain.Subscription, bool, error) {
	normalized, err := domain.NormalizeQuery(query)
	if err != nil {
		return nil, false, err
	}

	sub := &domain.Subscription{UserID: userID, Query: normalized, URL: url}

	exists, err := svc.hasQuery(ctx, userID, normalized)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		svc.seedFromOracle(ctx, sub)
	}

	out, created, err := svc.store.AddSubscription(ctx, sub)
	if err != nil {
		return nil, false, fmt.Errorf("adding subscription: %w", err)
	}

	if created {
		metrics.SubscriptionsCreatedTotal.Inc()
		svc.log.Info("subscription created",
			"user_id", userID,
			"subscription_id", out.ID,
			"query", out.Query,
			"reference_known", out.HasReference(),
		)
	}
	return out, created, nil
}

// List returns the user's subscriptions in creation order.
func (svc *SubscriptionService) List(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	subs, err := svc.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	return subs, nil
}

// Unsubscribe removes a subscription. It reports false for unknown ids.
func (svc *SubscriptionService) Unsubscribe(ctx context.Context, userID int64, id string) (bool, error) {
	removed, err := svc.store.RemoveSubscription(ctx, userID, id)
	if err != nil {
		return false, fmt.Errorf("removing subscription: %w", err)
	}
	if removed {
		metrics.SubscriptionsRemovedTotal.Inc()
		svc.log.Info("subscription removed", "user_id", userID, "subscription_id", id)
	}
	return removed, nil
}

// SearchResult is the current market for a query. Best is the cheapest
// usable listing, the one a new subscription would take as its reference.
type SearchResult struct {
	Query    string           `json:"query"`
	Listings []domain.Listing `json:"listings"`
	Best     *domain.Listing  `json:"best,omitempty"`
}

// Search shows current listings for a query without subscribing to it.
func (svc *SubscriptionService) Search(ctx context.Context, query string) (*SearchResult, error) {
	normalized, err := domain.NormalizeQuery(query)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, svc.oracleTimeout)
	defer cancel()

	listings, err := svc.oracle.Search(searchCtx, normalized)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", normalized, err)
	}

	res := &SearchResult{Query: normalized, Listings: listings}
	if res.Listings == nil {
		res.Listings = []domain.Listing{}
	}
	if best, ok := BestListing(listings); ok {
		res.Best = &best
	}
	return res, nil
}

func (svc *SubscriptionService) hasQuery(ctx context.Context, userID int64, query string) (bool, error) {
	subs, err := svc.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("listing subscriptions: %w", err)
	}
	key := domain.QueryKey(query)
	for i := range subs {
		if subs[i].Key() == key {
			return true, nil
		}
	}
	return false, nil
}

func (svc *SubscriptionService) seedFromOracle(ctx context.Context, sub *domain.Subscription) {
	searchCtx, cancel := context.WithTimeout(ctx, svc.oracleTimeout)
	defer cancel()

	listings, err := svc.oracle.Search(searchCtx, sub.Query)
	if err != nil {
		svc.log.Warn("initial price lookup failed, reference left unknown",
			"query", sub.Query,
			"kind", oracle.KindOf(err).String(),
			"error", err,
		)
		return
	}

	best, ok := BestListing(listings)
	if !ok {
		return
	}
	sub.ReferencePrice = domain.Ptr(best.Price)
	if sub.URL == "" {
		sub.URL = best.URL
	}
}
