package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// These tests share viper's global state and must not run in parallel.

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/users/42/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
			URL   string `json:"url"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Query == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"invalid query: must not be empty"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Subscription{
			ID: "s1", UserID: 42, Query: req.Query, URL: req.URL,
			ReferencePrice: domain.Ptr[int64](7000000), CreatedAt: created,
		})
	})
	mux.HandleFunc("GET /api/v1/users/42/subscriptions", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.Subscription{
			{ID: "s1", UserID: 42, Query: "lg oled 55", ReferencePrice: domain.Ptr[int64](7000000), CreatedAt: created},
			{ID: "s2", UserID: 42, Query: "iphone 15", CreatedAt: created},
		})
	})
	mux.HandleFunc("GET /api/v1/users/7/subscriptions", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("DELETE /api/v1/users/42/subscriptions/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"removed":` + boolString(r.PathValue("id") == "s1") + `}`))
	})
	mux.HandleFunc("POST /api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Query == "nokia" {
			_, _ = w.Write([]byte(`{"query":"nokia","total":0,"listings":[]}`))
			return
		}
		assert.Equal(t, 2, req.Limit)
		best := domain.Listing{Title: "LG OLED55B3", Price: 7699900, URL: "https://shop.example/b3"}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"query": req.Query,
			"total": 3,
			"listings": []domain.Listing{
				{Title: "LG OLED55C3", Price: 7899900, URL: "https://shop.example/c3"},
				best,
			},
			"best": best,
		})
	})
	mux.HandleFunc("POST /api/v1/scan", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"subscriptions":2,"queries":2,"drops":1,"notified":1}`))
	})
	mux.HandleFunc("GET /api/v1/jobs", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"scanning": true,
			"jobs": []domain.JobRun{
				{JobName: "price_scan", Status: domain.JobStatusSucceeded, StartedAt: created, RowsAffected: 1},
			},
		})
	})
	mux.HandleFunc("GET /api/v1/jobs/{name}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]domain.JobRun{
			{JobName: r.PathValue("name"), Status: domain.JobStatusFailed, StartedAt: created, ErrorText: "scan interrupted"},
		})
	})
	mux.HandleFunc("GET /api/v1/oracle/quota", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"daily_limit":100,"daily_used":4,"remaining":96,"reset_at":"2026-03-02T12:00:00Z"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func run(t *testing.T, srv *httptest.Server, output string, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	viper.Set("server", srv.URL)
	viper.Set("output", output)
	viper.Set("user", 0)
	t.Cleanup(func() {
		viper.Set("server", "http://localhost:8080")
		viper.Set("output", "table")
	})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchCmd(t *testing.T) {
	srv := newFakeServer(t)

	out, err := run(t, srv, "table", searchCmd(), "LG", "OLED", "55", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "LG OLED55C3")
	assert.Contains(t, out, "78999.00 RUB")
	assert.Contains(t, out, "2 of 3")
	assert.Contains(t, out, "Best:")
	assert.Contains(t, out, "76999.00 RUB")
	assert.Contains(t, out, "pdt subscribe --user <id> LG OLED 55")
}

func TestSearchCmd_NoListings(t *testing.T) {
	srv := newFakeServer(t)

	out, err := run(t, srv, "table", searchCmd(), "nokia")
	require.NoError(t, err)
	assert.Contains(t, out, `No listings found for "nokia".`)
}

func TestSearchCmd_JSON(t *testing.T) {
	srv := newFakeServer(t)

	out, err := run(t, srv, "json", searchCmd(), "LG OLED 55", "--limit", "2")
	require.NoError(t, err)

	var got struct {
		Total int            `json:"total"`
		Best  domain.Listing `json:"best"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, "https://shop.example/b3", got.Best.URL)
}

func TestSubscribeCmd(t *testing.T) {
	srv := newFakeServer(t)

	out, err := run(t, srv, "table", subscribeCmd(), "--user", "42", "LG", "OLED", "55", "--url", "https://shop.example/lg")
	require.NoError(t, err)
	assert.Contains(t, out, "Subscription created.")
	assert.Contains(t, out, "LG OLED 55")
	assert.Contains(t, out, "70000.00 RUB")
	assert.Contains(t, out, "https://shop.example/lg")
}

func TestSubscribeCmd_InvalidQuery(t *testing.T) {
	srv := newFakeServer(t)

	_, err := run(t, srv, "table", subscribeCmd(), "--user", "42", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query")
}

func TestSubscribeCmd_RequiresUser(t *testing.T) {
	srv := newFakeServer(t)

	_, err := run(t, srv, "table", subscribeCmd(), "LG")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PDT_USER")
}

func TestSubscriptionsCmd(t *testing.T) {
	srv := newFakeServer(t)

	out, err := run(t, srv, "table", subscriptionsCmd(), "--user", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "QUERY")
	assert.Contains(t, out, "lg oled 55")
	assert.Contains(t, out, "iphone 15")
	assert.Contains(t, out, "70000.00 RUB")

	out, err = run(t, srv, "json", subscriptionsCmd(), "--user", "42")
	require.NoError(t, err)
	var subs []domain.Subscription
	require.NoError(t, json.Unmarshal([]byte(out), &subs))
	assert.Len(t, subs, 2)
}

func TestSubscriptionsCmd_UserFromViper(t *testing.T) {
	srv := newFakeServer(t)

	viper.Set("server", srv.URL)
	viper.Set("output", "table")
	viper.Set("user", 7)
	t.Cleanup(func() { viper.Set("user", 0) })

	var out bytes.Buffer
	cmd := subscriptionsCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "No subscriptions found.")
}

func TestUnsubscribeCmd(t *testing.T) {
	srv := newFakeServer(t)

	out, err := run(t, srv, "table", unsubscribeCmd(), "--user", "42", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Subscription s1 removed.")

	_, err = run(t, srv, "table", unsubscribeCmd(), "--user", "42", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestScanCmd(t *testing.T) {
	srv := newFakeServer(t)

	out, err := run(t, srv, "table", scanCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "Drops:")
	assert.Contains(t, out, "Notified:")
}

func TestScanCmd_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	_, err := run(t, srv, "table", scanCmd())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestJobsCmd(t *testing.T) {
	srv := newFakeServer(t)

	out, err := run(t, srv, "table", jobsCmd(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Scanning:")
	assert.Contains(t, out, "true")
	assert.Contains(t, out, "price_scan")
	assert.Contains(t, out, "succeeded")

	out, err = run(t, srv, "table", jobsCmd(), "history", "--limit", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "scan interrupted")
}

func TestQuotaCmd(t *testing.T) {
	srv := newFakeServer(t)

	out, err := run(t, srv, "table", quotaCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "Remaining:")
	assert.Contains(t, out, "96")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "телев...", truncate("телевизор lg", 8))
}
