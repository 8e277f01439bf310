package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

func subWithReference(ref *int64) domain.Subscription {
	return domain.Subscription{
		ID:             "sub-1",
		UserID:         42,
		Query:          "LG OLED 55",
		ReferencePrice: ref,
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ref       *int64
		listings  []domain.Listing
		wantDrop  bool
		wantNew   int64
		wantTitle string
	}{
		{
			name:      "11.4% drop triggers",
			ref:       domain.Ptr[int64](70000),
			listings:  []domain.Listing{{Title: "a", Price: 75000}, {Title: "b", Price: 62000}},
			wantDrop:  true,
			wantNew:   62000,
			wantTitle: "b",
		},
		{
			name:     "8.6% drop does not trigger",
			ref:      domain.Ptr[int64](70000),
			listings: []domain.Listing{{Title: "a", Price: 64000}},
		},
		{
			name:      "exactly 10% triggers",
			ref:       domain.Ptr[int64](70000),
			listings:  []domain.Listing{{Title: "a", Price: 63000}},
			wantDrop:  true,
			wantNew:   63000,
			wantTitle: "a",
		},
		{
			name:     "one minor unit short of 10% does not trigger",
			ref:      domain.Ptr[int64](70000),
			listings: []domain.Listing{{Title: "a", Price: 63001}},
		},
		{
			name:     "empty listings",
			ref:      domain.Ptr[int64](70000),
			listings: nil,
		},
		{
			name:     "unknown reference",
			ref:      nil,
			listings: []domain.Listing{{Title: "a", Price: 1}},
		},
		{
			name:      "non-positive prices are ignored",
			ref:       domain.Ptr[int64](70000),
			listings:  []domain.Listing{{Title: "free", Price: 0}, {Title: "bad", Price: -5}, {Title: "ok", Price: 60000}},
			wantDrop:  true,
			wantNew:   60000,
			wantTitle: "ok",
		},
		{
			name:      "tie goes to first listing",
			ref:       domain.Ptr[int64](70000),
			listings:  []domain.Listing{{Title: "first", Price: 50000}, {Title: "second", Price: 50000}},
			wantDrop:  true,
			wantNew:   50000,
			wantTitle: "first",
		},
		{
			name:     "price increase",
			ref:      domain.Ptr[int64](70000),
			listings: []domain.Listing{{Title: "a", Price: 90000}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ev := Evaluate(subWithReference(tt.ref), tt.listings, DefaultDropThreshold)
			if !tt.wantDrop {
				assert.Nil(t, ev)
				return
			}

			require.NotNil(t, ev)
			assert.Equal(t, *tt.ref, ev.OldPrice)
			assert.Equal(t, tt.wantNew, ev.NewPrice)
			assert.Equal(t, tt.wantTitle, ev.Listing.Title)
			assert.Equal(t, "sub-1", ev.SubscriptionID)
			assert.Equal(t, int64(42), ev.UserID)
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	t.Parallel()

	sub := subWithReference(domain.Ptr[int64](70000))
	listings := []domain.Listing{{Title: "a", Price: 62000, URL: "https://a"}, {Title: "b", Price: 62000}}

	first := Evaluate(sub, listings, DefaultDropThreshold)
	second := Evaluate(sub, listings, DefaultDropThreshold)
	assert.Equal(t, first, second)
}

func TestEvaluate_CustomThreshold(t *testing.T) {
	t.Parallel()

	sub := subWithReference(domain.Ptr[int64](10000))
	listings := []domain.Listing{{Price: 9500}}

	assert.Nil(t, Evaluate(sub, listings, DefaultDropThreshold))
	assert.NotNil(t, Evaluate(sub, listings, decimal.RequireFromString("0.05")))
}

func TestBestListing(t *testing.T) {
	t.Parallel()

	_, ok := BestListing(nil)
	assert.False(t, ok)

	_, ok = BestListing([]domain.Listing{{Price: 0}})
	assert.False(t, ok)

	best, ok := BestListing([]domain.Listing{{Title: "a", Price: 300}, {Title: "b", Price: 100}, {Title: "c", Price: 100}})
	require.True(t, ok)
	assert.Equal(t, "b", best.Title)
}
