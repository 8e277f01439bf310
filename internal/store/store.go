// Package store defines the subscription registry abstraction for
// price-drop-tracker. The engine, the command surface and the API depend on
// the Store interface only, so the in-memory and PostgreSQL backends are
// interchangeable and business logic can be tested against mocks.
//
// Every implementation must be safe for concurrent use without external
// locking: the scan scheduler and any number of command handlers share one
// Store.
package store

import (
	"context"
	"time"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// Store defines all data access operations for price-drop-tracker.
type Store interface {
	// Subscriptions

	// AddSubscription creates a subscription, or, when the user already
	// has one for the same query key, updates its URL and returns it with
	// its reference price untouched. created reports which happened.
	AddSubscription(ctx context.Context, s *domain.Subscription) (sub *domain.Subscription, created bool, err error)
	// ListSubscriptions returns the user's subscriptions in creation order.
	// A user without subscriptions gets an empty slice.
	ListSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error)
	// RemoveSubscription deletes a subscription owned by userID. Missing ids
	// return false, never an error.
	RemoveSubscription(ctx context.Context, userID int64, id string) (bool, error)
	// SnapshotSubscriptions returns a point-in-time copy of every
	// subscription. Each entry is read atomically.
	SnapshotSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	// ApplyPriceDrop sets reference and last-notified price to newReference
	// if the subscription still exists and its reference still equals
	// expectedReference. It returns false when either condition fails.
	ApplyPriceDrop(ctx context.Context, id string, expectedReference, newReference int64) (bool, error)
	// SeedReferencePrice records the first observed price of a subscription
	// whose reference is still unknown.
	SeedReferencePrice(ctx context.Context, id string, price int64) (bool, error)

	// Scheduler
	InsertJobRun(ctx context.Context, jobName string) (id string, err error)
	CompleteJobRun(ctx context.Context, id string, status string, errText string, rowsAffected int) error
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
	ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error)
	RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error)
	AcquireSchedulerLock(ctx context.Context, jobName string, holder string, ttl time.Duration) (bool, error)
	ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
