// Package main implements a mock price oracle for local development. It serves
// listings from a JSON fixture in the format the HTTP oracle expects and can
// lower prices over time so drop notifications can be exercised end to end.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/donaldgifford/price-drop-tracker/pkg/logger"
	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

type searchResponse struct {
	Listings []domain.Listing `json:"listings"`
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/listings.json", "path to listings fixture")
	dropEvery := flag.Int("drop-every", 0, "lower a query's prices after this many searches (0 disables)")
	dropPercent := flag.Int("drop-percent", 15, "percent taken off prices at each drop step")
	flag.Parse()

	log := logger.New("debug", "text")

	fixture, err := loadFixture(*fixtureFile)
	if err != nil {
		log.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	log.Info("loaded fixture", "listings", len(fixture.Listings))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", searchHandler(log, fixture, newDropper(*dropEvery, *dropPercent)))

	addr := fmt.Sprintf(":%d", *port)
	log.Info("starting mock price oracle", "addr", addr, "drop_every", *dropEvery, "drop_percent", *dropPercent)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(log, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadFixture(path string) (*searchResponse, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &resp, nil
}

func requestLogger(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

// dropper counts searches per query and derives a price multiplier from
// them. Each query drops independently.
type dropper struct {
	every   int
	percent int

	mu    sync.Mutex
	calls map[string]int
}

func newDropper(every, percent int) *dropper {
	return &dropper{every: every, percent: percent, calls: make(map[string]int)}
}

// next records a search for query and returns the price multiplier in
// percent to apply to its results.
func (d *dropper) next(query string) int {
	if d.every <= 0 || d.percent <= 0 {
		return 100
	}

	d.mu.Lock()
	n := d.calls[query]
	d.calls[query] = n + 1
	d.mu.Unlock()

	mult := 100
	for range n / d.every {
		mult = mult * (100 - d.percent) / 100
	}
	return max(mult, 1)
}

// matches reports whether every word of query appears in title.
func matches(title, query string) bool {
	title = strings.ToLower(title)
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(title, w) {
			return false
		}
	}
	return true
}

func searchHandler(log *slog.Logger, fixture *searchResponse, d *dropper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.Join(strings.Fields(r.URL.Query().Get("q")), " ")
		if q == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
			json.NewEncoder(w).Encode(map[string]string{"error": "missing q parameter"})
			return
		}

		mult := d.next(strings.ToLower(q))

		// Return an empty array instead of null when nothing matches.
		resp := searchResponse{Listings: []domain.Listing{}}
		for _, l := range fixture.Listings {
			if !matches(l.Title, q) {
				continue
			}
			l.Price = max(l.Price*int64(mult)/100, 1)
			resp.Listings = append(resp.Listings, l)
		}

		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
		json.NewEncoder(w).Encode(resp)
		log.Info("search", "query", q, "matched", len(resp.Listings), "price_percent", mult)
	}
}
