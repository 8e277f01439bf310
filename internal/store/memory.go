package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// MemoryStore implements Store in process memory. Subscriptions are sharded
// per user so commands for different users never contend on the same lock.
//
// Lock order: a shard lock may be held while taking mu, never the reverse.
type MemoryStore struct {
	mu     sync.RWMutex
	shards map[int64]*userShard
	index  map[string]int64 // subscription id -> owning user

	jobsMu sync.Mutex
	jobs   []domain.JobRun
	locks  map[string]schedulerLock

	nowFunc func() time.Time
	idFunc  func() string
}

type userShard struct {
	mu   sync.Mutex
	subs []*domain.Subscription // creation order
}

type schedulerLock struct {
	holder    string
	expiresAt time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(f func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.nowFunc = f
	}
}

// WithIDFunc overrides subscription and job run id generation, for tests.
func WithIDFunc(f func() string) MemoryOption {
	return func(m *MemoryStore) {
		m.idFunc = f
	}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		shards:  make(map[int64]*userShard),
		index:   make(map[string]int64),
		locks:   make(map[string]schedulerLock),
		nowFunc: time.Now,
		idFunc:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) shard(userID int64) *userShard {
	m.mu.RLock()
	sh := m.shards[userID]
	m.mu.RUnlock()
	return sh
}

func (m *MemoryStore) shardOrCreate(userID int64) *userShard {
	if sh := m.shard(userID); sh != nil {
		return sh
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sh, ok := m.shards[userID]
	if !ok {
		sh = &userShard{}
		m.shards[userID] = sh
	}
	return sh
}

func (m *MemoryStore) shardFor(id string) *userShard {
	m.mu.RLock()
	defer m.mu.RUnlock()
	userID, ok := m.index[id]
	if !ok {
		return nil
	}
	return m.shards[userID]
}

func (sh *userShard) find(id string) *domain.Subscription {
	for _, s := range sh.subs {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// AddSubscription implements Store.
func (m *MemoryStore) AddSubscription(
	ctx context.Context,
	s *domain.Subscription,
) (*domain.Subscription, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	query, err := domain.NormalizeQuery(s.Query)
	if err != nil {
		return nil, false, err
	}
	key := domain.QueryKey(query)

	sh := m.shardOrCreate(s.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := m.nowFunc()

	for _, existing := range sh.subs {
		if existing.Key() == key {
			if s.URL != "" {
				existing.URL = s.URL
			}
			existing.UpdatedAt = now
			out := existing.Clone()
			return &out, false, nil
		}
	}

	created := s.Clone()
	created.ID = m.idFunc()
	created.Query = query
	created.LastNotifiedPrice = nil
	created.CreatedAt = now
	created.UpdatedAt = now

	sh.subs = append(sh.subs, &created)

	m.mu.Lock()
	m.index[created.ID] = created.UserID
	m.mu.Unlock()

	out := created.Clone()
	return &out, true, nil
}

// ListSubscriptions implements Store.
func (m *MemoryStore) ListSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sh := m.shard(userID)
	if sh == nil {
		return []domain.Subscription{}, nil
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	out := make([]domain.Subscription, 0, len(sh.subs))
	for _, s := range sh.subs {
		out = append(out, s.Clone())
	}
	return out, nil
}

// RemoveSubscription implements Store.
func (m *MemoryStore) RemoveSubscription(ctx context.Context, userID int64, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	sh := m.shard(userID)
	if sh == nil {
		return false, nil
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	i := slices.IndexFunc(sh.subs, func(s *domain.Subscription) bool { return s.ID == id })
	if i < 0 {
		return false, nil
	}
	sh.subs = slices.Delete(sh.subs, i, i+1)

	m.mu.Lock()
	delete(m.index, id)
	m.mu.Unlock()

	return true, nil
}

// SnapshotSubscriptions implements Store. Users are visited in id order.
func (m *MemoryStore) SnapshotSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	userIDs := make([]int64, 0, len(m.shards))
	for id := range m.shards {
		userIDs = append(userIDs, id)
	}
	shards := make(map[int64]*userShard, len(m.shards))
	for id, sh := range m.shards {
		shards[id] = sh
	}
	m.mu.RUnlock()

	slices.Sort(userIDs)

	var out []domain.Subscription
	for _, id := range userIDs {
		sh := shards[id]
		sh.mu.Lock()
		for _, s := range sh.subs {
			out = append(out, s.Clone())
		}
		sh.mu.Unlock()
	}
	return out, nil
}

// ApplyPriceDrop implements Store.
func (m *MemoryStore) ApplyPriceDrop(
	ctx context.Context,
	id string,
	expectedReference, newReference int64,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	sh := m.shardFor(id)
	if sh == nil {
		return false, nil
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	s := sh.find(id)
	if s == nil || s.ReferencePrice == nil || *s.ReferencePrice != expectedReference {
		return false, nil
	}

	s.ReferencePrice = domain.Ptr(newReference)
	s.LastNotifiedPrice = domain.Ptr(newReference)
	s.UpdatedAt = m.nowFunc()
	return true, nil
}

// SeedReferencePrice implements Store.
func (m *MemoryStore) SeedReferencePrice(ctx context.Context, id string, price int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	sh := m.shardFor(id)
	if sh == nil {
		return false, nil
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	s := sh.find(id)
	if s == nil || s.ReferencePrice != nil {
		return false, nil
	}

	s.ReferencePrice = domain.Ptr(price)
	s.UpdatedAt = m.nowFunc()
	return true, nil
}

// InsertJobRun implements Store.
func (m *MemoryStore) InsertJobRun(_ context.Context, jobName string) (string, error) {
	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()

	run := domain.JobRun{
		ID:        m.idFunc(),
		JobName:   jobName,
		StartedAt: m.nowFunc(),
		Status:    domain.JobStatusRunning,
	}
	m.jobs = append(m.jobs, run)
	return run.ID, nil
}

// CompleteJobRun implements Store.
func (m *MemoryStore) CompleteJobRun(
	_ context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()

	for i := range m.jobs {
		if m.jobs[i].ID == id {
			now := m.nowFunc()
			m.jobs[i].CompletedAt = &now
			m.jobs[i].Status = status
			m.jobs[i].ErrorText = errText
			m.jobs[i].RowsAffected = rowsAffected
			return nil
		}
	}
	return nil
}

// ListJobRuns implements Store. Runs are returned newest first.
func (m *MemoryStore) ListJobRuns(_ context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()

	var out []domain.JobRun
	for i := len(m.jobs) - 1; i >= 0; i-- {
		if m.jobs[i].JobName != jobName {
			continue
		}
		out = append(out, m.jobs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListLatestJobRuns implements Store.
func (m *MemoryStore) ListLatestJobRuns(_ context.Context) ([]domain.JobRun, error) {
	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()

	seen := make(map[string]bool)
	var out []domain.JobRun
	for i := len(m.jobs) - 1; i >= 0; i-- {
		if seen[m.jobs[i].JobName] {
			continue
		}
		seen[m.jobs[i].JobName] = true
		out = append(out, m.jobs[i])
	}
	slices.SortFunc(out, func(a, b domain.JobRun) int {
		return strings.Compare(a.JobName, b.JobName)
	})
	return out, nil
}

// RecoverStaleJobRuns implements Store.
func (m *MemoryStore) RecoverStaleJobRuns(_ context.Context, olderThan time.Duration) (int, error) {
	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()

	now := m.nowFunc()
	cutoff := now.Add(-olderThan)
	n := 0
	for i := range m.jobs {
		if m.jobs[i].Status == domain.JobStatusRunning && m.jobs[i].StartedAt.Before(cutoff) {
			m.jobs[i].Status = domain.JobStatusFailed
			m.jobs[i].ErrorText = "recovered: job did not complete"
			m.jobs[i].CompletedAt = &now
			n++
		}
	}
	return n, nil
}

// AcquireSchedulerLock implements Store.
func (m *MemoryStore) AcquireSchedulerLock(
	_ context.Context,
	jobName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()

	now := m.nowFunc()
	if l, ok := m.locks[jobName]; ok && l.holder != holder && now.Before(l.expiresAt) {
		return false, nil
	}
	m.locks[jobName] = schedulerLock{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

// ReleaseSchedulerLock implements Store.
func (m *MemoryStore) ReleaseSchedulerLock(_ context.Context, jobName string, holder string) error {
	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()

	if l, ok := m.locks[jobName]; ok && l.holder == holder {
		delete(m.locks, jobName)
	}
	return nil
}

// Migrate is a no-op for the in-memory store.
func (*MemoryStore) Migrate(context.Context) error { return nil }

// Ping always succeeds for the in-memory store.
func (*MemoryStore) Ping(context.Context) error { return nil }
