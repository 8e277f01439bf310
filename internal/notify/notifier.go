// Package notify defines the notification interface and implementations
// for price drop delivery.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donaldgifford/price-drop-tracker/internal/metrics"
	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// Notifier delivers a detected price drop to the subscription's owner.
// Implementations make at most one delivery attempt per call.
type Notifier interface {
	SendDrop(ctx context.Context, userID int64, event domain.DropEvent, sub domain.Subscription) error
}

// FormatPrice renders a minor-unit price in major units with two decimals.
func FormatPrice(minor int64, currency string) string {
	s := decimal.New(minor, -2).StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// RenderDropMessage builds the plain-text body of a drop notification.
func RenderDropMessage(event domain.DropEvent, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Price drop: %s\n", event.Query)
	fmt.Fprintf(&b, "Was %s, now %s (-%s%%)",
		FormatPrice(event.OldPrice, currency),
		FormatPrice(event.NewPrice, currency),
		event.DropFraction().Mul(decimal.NewFromInt(100)).StringFixed(1),
	)
	if event.Listing.Title != "" {
		fmt.Fprintf(&b, "\n%s", event.Listing.Title)
	}
	if event.Listing.URL != "" {
		fmt.Fprintf(&b, "\n%s", event.Listing.URL)
	}
	return b.String()
}

// Multi sends every drop to each notifier in turn and joins their errors.
type Multi []Notifier

// SendDrop implements Notifier.
func (m Multi) SendDrop(ctx context.Context, userID int64, event domain.DropEvent, sub domain.Subscription) error {
	var errs []error
	for _, n := range m {
		if err := n.SendDrop(ctx, userID, event, sub); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// postJSON posts payload to url and returns the response body of a 2xx reply.
func postJSON(ctx context.Context, client *http.Client, service, url string, payload any) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending %s request: %w", service, err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s rate limited (429)", service)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if readErr != nil {
			return nil, fmt.Errorf("%s returned %d (body unreadable)", service, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s returned %d: %s", service, resp.StatusCode, respBody)
	}
	if readErr != nil {
		return nil, fmt.Errorf("reading %s response: %w", service, readErr)
	}
	return respBody, nil
}
