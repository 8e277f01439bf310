package oracle_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/price-drop-tracker/internal/oracle"
)

func TestHTTPOracle_Search(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantErr   bool
		wantKind  oracle.Kind
		wantCount int
	}{
		{
			name: "successful search",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "lg oled 55", r.URL.Query().Get("q"))
				assert.Equal(t, "json", r.URL.Query().Get("format"), "endpoint query params are kept")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"listings": [
					{"title": "LG OLED55C3", "price": 6300000, "url": "https://shop.example/1"},
					{"title": "LG OLED55B3", "price": 6900000, "url": "https://shop.example/2"}
				]}`))
			},
			wantCount: 2,
		},
		{
			name: "no listings",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			wantCount: 0,
		},
		{
			name: "server error is transient",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr:  true,
			wantKind: oracle.Transient,
		},
		{
			name: "rate limited is transient",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantErr:  true,
			wantKind: oracle.Transient,
		},
		{
			name: "bad request is permanent",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error": "bad query"}`))
			},
			wantErr:  true,
			wantKind: oracle.Permanent,
		},
		{
			name: "malformed body is permanent",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
			wantErr:  true,
			wantKind: oracle.Permanent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			o := oracle.NewHTTPOracle(srv.URL + "/search?format=json")
			listings, err := o.Search(context.Background(), "lg oled 55")

			if tt.wantErr {
				require.Error(t, err)
				var oe *oracle.Error
				require.ErrorAs(t, err, &oe)
				assert.Equal(t, tt.wantKind, oe.Kind)
				assert.Equal(t, "lg oled 55", oe.Query)
				assert.Equal(t, tt.wantKind == oracle.Transient, oracle.IsTransient(err))
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, listings)
			assert.Len(t, listings, tt.wantCount)
		})
	}
}

func TestHTTPOracle_Search_Decodes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"listings": [{"title": "iPhone 15", "price": 7999000, "url": "https://shop.example/i"}]}`))
	}))
	defer srv.Close()

	listings, err := oracle.NewHTTPOracle(srv.URL).Search(context.Background(), "iphone 15")
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "iPhone 15", listings[0].Title)
	assert.Equal(t, int64(7999000), listings[0].Price)
	assert.Equal(t, "https://shop.example/i", listings[0].URL)
}

func TestHTTPOracle_Search_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := oracle.NewHTTPOracle(srv.URL).Search(ctx, "slow")
	require.Error(t, err)
	assert.True(t, oracle.IsTransient(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestHTTPOracle_Search_DailyLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"listings": []}`))
	}))
	defer srv.Close()

	o := oracle.NewHTTPOracle(srv.URL, oracle.WithRateLimiter(oracle.NewRateLimiter(100, 10, 1)))

	_, err := o.Search(context.Background(), "q")
	require.NoError(t, err)

	_, err = o.Search(context.Background(), "q")
	require.ErrorIs(t, err, oracle.ErrDailyLimitReached)
	assert.True(t, oracle.IsTransient(err))
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.False(t, oracle.IsTransient(nil))
	assert.True(t, oracle.IsTransient(errors.New("plain")))
	assert.False(t, oracle.IsTransient(&oracle.Error{Kind: oracle.Permanent, Err: errors.New("x")}))
	assert.Equal(t, "permanent", oracle.Permanent.String())
	assert.Equal(t, "transient", oracle.Transient.String())
}
