package oracle

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// StaticOracle serves listings from a fixed table keyed by query key. It is
// the development backend and lets prices be edited between scans with Set.
type StaticOracle struct {
	mu       sync.RWMutex
	listings map[string][]domain.Listing
}

type staticFixture struct {
	Queries map[string][]domain.Listing `yaml:"queries"`
}

// NewStaticOracle creates an oracle serving the given listings. Map keys are
// raw queries; they are normalized the same way subscriptions are.
func NewStaticOracle(listings map[string][]domain.Listing) *StaticOracle {
	o := &StaticOracle{listings: make(map[string][]domain.Listing, len(listings))}
	for q, ls := range listings {
		o.Set(q, ls)
	}
	return o
}

// LoadStaticOracle reads a YAML fixture of the form:
//
//	queries:
//	  "lg oled 55":
//	    - title: LG OLED55C3
//	      price: 6300000
//	      url: https://shop.example/lg
func LoadStaticOracle(path string) (*StaticOracle, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading oracle fixture: %w", err)
	}

	var f staticFixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing oracle fixture: %w", err)
	}
	return NewStaticOracle(f.Queries), nil
}

// Set replaces the listings returned for query.
func (o *StaticOracle) Set(query string, listings []domain.Listing) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listings[domain.QueryKey(query)] = append([]domain.Listing(nil), listings...)
}

// Search implements PriceOracle. Unknown queries return no listings.
func (o *StaticOracle) Search(ctx context.Context, query string) ([]domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, transient(query, err)
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	ls := o.listings[domain.QueryKey(query)]
	out := make([]domain.Listing, len(ls))
	copy(out, ls)
	return out, nil
}
