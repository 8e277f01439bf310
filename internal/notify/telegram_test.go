package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

func TestTelegramNotifier_SendDrop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    bool
		errMsg     string
	}{
		{
			name:       "message accepted",
			statusCode: http.StatusOK,
			body:       `{"ok": true, "result": {"message_id": 1}}`,
		},
		{
			name:       "bot api rejects message",
			statusCode: http.StatusOK,
			body:       `{"ok": false, "description": "chat not found"}`,
			wantErr:    true,
			errMsg:     "chat not found",
		},
		{
			name:       "forbidden",
			statusCode: http.StatusForbidden,
			body:       `{"ok": false, "description": "bot was blocked by the user"}`,
			wantErr:    true,
			errMsg:     "telegram returned 403",
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			body:       `{"ok": false}`,
			wantErr:    true,
			errMsg:     "rate limited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got telegramSendMessage
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/botsecret-token/sendMessage", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			n := NewTelegramNotifier("secret-token",
				WithTelegramAPIURL(srv.URL+"/"),
				WithTelegramCurrency("RUB"),
			)
			err := n.SendDrop(context.Background(), 42, testDrop(), domain.Subscription{})

			assert.Equal(t, int64(42), got.ChatID)
			assert.Contains(t, got.Text, "63000.00 RUB")

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTelegramNotifier_RedactsToken(t *testing.T) {
	t.Parallel()

	n := NewTelegramNotifier("secret-token", WithTelegramAPIURL("http://127.0.0.1:1"))
	err := n.SendDrop(context.Background(), 42, testDrop(), domain.Subscription{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestWithTelegramHTTPClient(t *testing.T) {
	t.Parallel()

	custom := &http.Client{}
	n := NewTelegramNotifier("t", WithTelegramHTTPClient(custom))
	assert.Same(t, custom, n.client)
	assert.Equal(t, defaultTelegramAPIURL, n.apiURL)
}
