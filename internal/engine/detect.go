package engine

import (
	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// DefaultDropThreshold is the fractional drop below the reference price that
// triggers a notification.
var DefaultDropThreshold = decimal.NewFromFloat(0.10)

// BestListing returns the cheapest listing with a positive price. Ties go to
// the listing that appears first.
func BestListing(listings []domain.Listing) (domain.Listing, bool) {
	var (
		best  domain.Listing
		found bool
	)
	for _, l := range listings {
		if l.Price <= 0 {
			continue
		}
		if !found || l.Price < best.Price {
			best = l
			found = true
		}
	}
	return best, found
}

// Evaluate decides whether listings show a drop of at least threshold below
// the subscription's reference price. It returns nil when the reference is
// unknown, when there is no usable listing, or when the drop is too small.
// DetectedAt is left for the caller to set.
func Evaluate(sub domain.Subscription, listings []domain.Listing, threshold decimal.Decimal) *domain.DropEvent {
	if sub.ReferencePrice == nil {
		return nil
	}

	best, ok := BestListing(listings)
	if !ok {
		return nil
	}

	ref := *sub.ReferencePrice
	limit := decimal.NewFromInt(ref).Mul(decimal.NewFromInt(1).Sub(threshold))
	if decimal.NewFromInt(best.Price).GreaterThan(limit) {
		return nil
	}

	return &domain.DropEvent{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Query:          sub.Query,
		OldPrice:       ref,
		NewPrice:       best.Price,
		Listing:        best,
	}
}
