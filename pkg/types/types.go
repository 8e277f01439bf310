// Package domain defines the core business types for the price drop tracker.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidQuery is returned when a subscription query is empty or whitespace.
var ErrInvalidQuery = errors.New("invalid query: must not be empty")

// Listing is one offer observed for a query by the price oracle.
// Price is in currency minor units.
type Listing struct {
	Title string `json:"title" yaml:"title"`
	Price int64  `json:"price" yaml:"price"`
	URL   string `json:"url"   yaml:"url"`
}

// Subscription is a user's interest in the best price for a search query.
type Subscription struct {
	ID     string `json:"id"      db:"id"`
	UserID int64  `json:"user_id" db:"user_id"`
	Query  string `json:"query"   db:"query"`

	// ReferencePrice is nil until a price has been observed for the query.
	ReferencePrice    *int64 `json:"reference_price,omitempty"     db:"reference_price"`
	LastNotifiedPrice *int64 `json:"last_notified_price,omitempty" db:"last_notified_price"`
	URL               string `json:"url,omitempty"                 db:"url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasReference reports whether a reference price has been recorded.
func (s *Subscription) HasReference() bool {
	return s.ReferencePrice != nil
}

// Key returns the normalized query used for uniqueness and scan grouping.
func (s *Subscription) Key() string {
	return QueryKey(s.Query)
}

// Clone returns a deep copy so callers never share price pointers.
func (s *Subscription) Clone() Subscription {
	c := *s
	if s.ReferencePrice != nil {
		v := *s.ReferencePrice
		c.ReferencePrice = &v
	}
	if s.LastNotifiedPrice != nil {
		v := *s.LastNotifiedPrice
		c.LastNotifiedPrice = &v
	}
	return c
}

// DropEvent describes a detected price drop for one subscription.
type DropEvent struct {
	SubscriptionID string    `json:"subscription_id"`
	UserID         int64     `json:"user_id"`
	Query          string    `json:"query"`
	OldPrice       int64     `json:"old_price"`
	NewPrice       int64     `json:"new_price"`
	Listing        Listing   `json:"listing"`
	DetectedAt     time.Time `json:"detected_at"`
}

// DropFraction returns (old-new)/old, or zero when old is not positive.
func (e *DropEvent) DropFraction() decimal.Decimal {
	if e.OldPrice <= 0 {
		return decimal.Zero
	}
	old := decimal.NewFromInt(e.OldPrice)
	return old.Sub(decimal.NewFromInt(e.NewPrice)).Div(old)
}

// JobRun status constants.
const (
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusSkipped   = "skipped"
)

// JobRun records a single execution of a scheduled job.
type JobRun struct {
	ID           string     `json:"id"                     db:"id"`
	JobName      string     `json:"job_name"               db:"job_name"`
	StartedAt    time.Time  `json:"started_at"             db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Status       string     `json:"status"                 db:"status"`
	ErrorText    string     `json:"error_text,omitempty"   db:"error_text"`
	RowsAffected int        `json:"rows_affected"          db:"rows_affected"`
}

// NormalizeQuery trims the query and collapses internal whitespace.
// It returns ErrInvalidQuery when nothing is left.
func NormalizeQuery(q string) (string, error) {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return "", ErrInvalidQuery
	}
	return strings.Join(fields, " "), nil
}

// QueryKey returns the case-insensitive identity of a query.
// "LG  OLED 55" and "lg oled 55" share a key.
func QueryKey(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
