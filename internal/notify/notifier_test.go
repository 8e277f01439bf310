package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

func testDrop() domain.DropEvent {
	return domain.DropEvent{
		SubscriptionID: "sub-1",
		UserID:         42,
		Query:          "LG OLED 55",
		OldPrice:       7000000,
		NewPrice:       6300000,
		Listing: domain.Listing{
			Title: "LG OLED55C3",
			Price: 6300000,
			URL:   "https://shop.example/lg",
		},
		DetectedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		minor    int64
		currency string
		want     string
	}{
		{name: "whole amount", minor: 7000000, currency: "RUB", want: "70000.00 RUB"},
		{name: "fractional", minor: 12345, currency: "USD", want: "123.45 USD"},
		{name: "sub-unit", minor: 5, currency: "", want: "0.05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatPrice(tt.minor, tt.currency))
		})
	}
}

func TestRenderDropMessage(t *testing.T) {
	t.Parallel()

	got := RenderDropMessage(testDrop(), "RUB")
	assert.Equal(t,
		"Price drop: LG OLED 55\n"+
			"Was 70000.00 RUB, now 63000.00 RUB (-10.0%)\n"+
			"LG OLED55C3\n"+
			"https://shop.example/lg",
		got,
	)
}

func TestRenderDropMessage_NoListingDetails(t *testing.T) {
	t.Parallel()

	ev := testDrop()
	ev.Listing = domain.Listing{}
	got := RenderDropMessage(ev, "")
	assert.Equal(t, "Price drop: LG OLED 55\nWas 70000.00, now 63000.00 (-10.0%)", got)
}

type recordingNotifier struct {
	calls int
	err   error
}

func (r *recordingNotifier) SendDrop(context.Context, int64, domain.DropEvent, domain.Subscription) error {
	r.calls++
	return r.err
}

func TestMulti_SendDrop(t *testing.T) {
	t.Parallel()

	ok := &recordingNotifier{}
	failing := &recordingNotifier{err: errors.New("webhook down")}

	err := Multi{failing, ok}.SendDrop(context.Background(), 42, testDrop(), domain.Subscription{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook down")
	assert.Equal(t, 1, ok.calls, "a failing notifier does not stop the others")
	assert.Equal(t, 1, failing.calls)

	require.NoError(t, Multi{ok}.SendDrop(context.Background(), 42, testDrop(), domain.Subscription{}))
}

func TestNoOpNotifier_SendDrop(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := n.SendDrop(context.Background(), 42, testDrop(), domain.Subscription{})
	require.NoError(t, err)
}

// compile-time interface checks.
var (
	_ Notifier = (*NoOpNotifier)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*DiscordNotifier)(nil)
	_ Notifier = Multi(nil)
)
