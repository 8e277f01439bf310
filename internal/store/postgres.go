package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
// Atomicity of the compare-and-set operations comes from single-statement
// conditional UPDATEs.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling. A
// pool_max_conns parameter in connString overrides the default pool size.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	if cfg.MaxConns <= 0 {
		cfg.MaxConns = defaultPoolSize
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// AddSubscription upserts on (user_id, query_key). xmax is zero only for a
// freshly inserted row, which tells the caller whether it was created.
func (s *PostgresStore) AddSubscription(
	ctx context.Context,
	sub *domain.Subscription,
) (*domain.Subscription, bool, error) {
	query, err := domain.NormalizeQuery(sub.Query)
	if err != nil {
		return nil, false, err
	}

	args := pgx.NamedArgs{
		"user_id":         sub.UserID,
		"query":           query,
		"query_key":       domain.QueryKey(query),
		"reference_price": sub.ReferencePrice,
		"url":             sub.URL,
	}

	out := &domain.Subscription{}
	var created bool
	err = s.pool.QueryRow(ctx, queryUpsertSubscription, args).Scan(
		&out.ID, &out.UserID, &out.Query, &out.ReferencePrice, &out.LastNotifiedPrice,
		&out.URL, &out.CreatedAt, &out.UpdatedAt, &created,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upserting subscription: %w", err)
	}
	return out, created, nil
}

// ListSubscriptions returns the user's subscriptions in creation order.
func (s *PostgresStore) ListSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	return s.querySubscriptions(ctx, queryListSubscriptionsByUser, userID)
}

// RemoveSubscription deletes a subscription owned by userID. An id that is
// not a UUID cannot exist and reports false.
func (s *PostgresStore) RemoveSubscription(ctx context.Context, userID int64, id string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	tag, err := s.pool.Exec(ctx, queryDeleteSubscription, userID, id)
	if err != nil {
		return false, fmt.Errorf("deleting subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SnapshotSubscriptions returns every subscription, ordered by user.
func (s *PostgresStore) SnapshotSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return s.querySubscriptions(ctx, querySnapshotSubscriptions)
}

// ApplyPriceDrop is a compare-and-set on reference_price.
func (s *PostgresStore) ApplyPriceDrop(
	ctx context.Context,
	id string,
	expectedReference, newReference int64,
) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	tag, err := s.pool.Exec(ctx, queryApplyPriceDrop, id, expectedReference, newReference)
	if err != nil {
		return false, fmt.Errorf("applying price drop: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SeedReferencePrice sets reference_price only while it is still NULL.
func (s *PostgresStore) SeedReferencePrice(ctx context.Context, id string, price int64) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	tag, err := s.pool.Exec(ctx, querySeedReferencePrice, id, price)
	if err != nil {
		return false, fmt.Errorf("seeding reference price: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// InsertJobRun records the start of a scheduled job and returns its UUID.
func (s *PostgresStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, queryInsertJobRun, jobName).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting job run: %w", err)
	}
	return id, nil
}

// CompleteJobRun marks a job run as finished with the given status and metadata.
func (s *PostgresStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	_, err := s.pool.Exec(ctx, queryCompleteJobRun, id, status, errText, rowsAffected)
	if err != nil {
		return fmt.Errorf("completing job run: %w", err)
	}
	return nil
}

// ListJobRuns returns the most recent runs for a specific job, newest first.
func (s *PostgresStore) ListJobRuns(
	ctx context.Context,
	jobName string,
	limit int,
) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListJobRuns, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// ListLatestJobRuns returns the single most recent run for each distinct job name.
func (s *PostgresStore) ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListLatestJobRuns)
	if err != nil {
		return nil, fmt.Errorf("querying latest job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// RecoverStaleJobRuns marks 'running' rows older than olderThan as failed,
// then deletes rows older than 30 days. Returns the number of rows recovered.
func (s *PostgresStore) RecoverStaleJobRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	tag, err := s.pool.Exec(ctx, queryMarkStaleJobRunsFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("marking stale job runs failed: %w", err)
	}
	affected := int(tag.RowsAffected())

	if _, err := s.pool.Exec(ctx, queryDeleteOldJobRuns); err != nil {
		return affected, fmt.Errorf("deleting old job runs: %w", err)
	}

	return affected, nil
}

// AcquireSchedulerLock attempts to acquire a distributed lock for the given job.
// Returns true if the lock was acquired, false if another holder already owns it.
func (s *PostgresStore) AcquireSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	expiresAt := time.Now().Add(ttl)

	var gotName string
	err := s.pool.QueryRow(ctx, queryAcquireSchedulerLock, jobName, holder, expiresAt).Scan(&gotName)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquiring scheduler lock: %w", err)
	}

	return true, nil
}

// ReleaseSchedulerLock deletes the lock row for the given job and holder.
func (s *PostgresStore) ReleaseSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
) error {
	_, err := s.pool.Exec(ctx, queryReleaseSchedulerLock, jobName, holder)
	if err != nil {
		return fmt.Errorf("releasing scheduler lock: %w", err)
	}
	return nil
}

func (s *PostgresStore) querySubscriptions(
	ctx context.Context,
	query string,
	args ...any,
) ([]domain.Subscription, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []domain.Subscription{}
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.Query, &sub.ReferencePrice, &sub.LastNotifiedPrice,
			&sub.URL, &sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// scanJobRuns scans rows from a job_runs query into a slice.
func scanJobRuns(rows pgx.Rows) ([]domain.JobRun, error) {
	var runs []domain.JobRun
	for rows.Next() {
		var r domain.JobRun
		if err := rows.Scan(
			&r.ID, &r.JobName, &r.StartedAt, &r.CompletedAt,
			&r.Status, &r.ErrorText, &r.RowsAffected,
		); err != nil {
			return nil, fmt.Errorf("scanning job run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// isUUID reports whether id can name a row in a UUID-keyed table.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
