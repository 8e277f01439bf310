package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	notifyMocks "github.com/donaldgifford/price-drop-tracker/internal/notify/mocks"
	"github.com/donaldgifford/price-drop-tracker/internal/oracle"
	oracleMocks "github.com/donaldgifford/price-drop-tracker/internal/oracle/mocks"
	"github.com/donaldgifford/price-drop-tracker/internal/store"
	storeMocks "github.com/donaldgifford/price-drop-tracker/internal/store/mocks"
	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// quietLogger returns a logger that discards output for tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(s store.Store, o oracle.PriceOracle, n *notifyMocks.MockNotifier, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithLogger(quietLogger())}, opts...)
	return NewEngine(s, o, n, opts...)
}

func addSub(t *testing.T, s store.Store, userID int64, query string, ref *int64) *domain.Subscription {
	t.Helper()
	sub, _, err := s.AddSubscription(context.Background(), &domain.Subscription{
		UserID:         userID,
		Query:          query,
		ReferencePrice: ref,
	})
	require.NoError(t, err)
	return sub
}

func listing(price int64) []domain.Listing {
	return []domain.Listing{{Title: "offer", Price: price, URL: "https://shop.example/offer"}}
}

func dropWith(oldPrice, newPrice int64) any {
	return mock.MatchedBy(func(ev domain.DropEvent) bool {
		return ev.OldPrice == oldPrice && ev.NewPrice == newPrice
	})
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	eng := NewEngine(store.NewMemoryStore(), oracleMocks.NewMockPriceOracle(t), notifyMocks.NewMockNotifier(t))
	assert.True(t, DefaultDropThreshold.Equal(eng.threshold))
	assert.Equal(t, defaultConcurrency, eng.concurrency)
	assert.Equal(t, defaultOracleTimeout, eng.oracleTimeout)
	assert.Equal(t, defaultNotifyTimeout, eng.notifyTimeout)
	assert.NotNil(t, eng.log)
}

func TestNewEngine_WithOptions(t *testing.T) {
	t.Parallel()

	eng := NewEngine(store.NewMemoryStore(), oracleMocks.NewMockPriceOracle(t), notifyMocks.NewMockNotifier(t),
		WithThreshold(decimal.RequireFromString("0.2")),
		WithConcurrency(3),
		WithConcurrency(0),
		WithOracleTimeout(time.Second),
		WithNotifyTimeout(2*time.Second),
	)
	assert.Equal(t, "0.2", eng.threshold.String())
	assert.Equal(t, 3, eng.concurrency, "non-positive concurrency is ignored")
	assert.Equal(t, time.Second, eng.OracleTimeout())
	assert.Equal(t, 2*time.Second, eng.notifyTimeout)
}

func TestRunScan_DropIsPersistedThenNotified(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ms := store.NewMemoryStore()
	sub := addSub(t, ms, 42, "LG OLED 55", domain.Ptr[int64](70000))

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "LG OLED 55").Return(listing(62000), nil).Once()

	mn := notifyMocks.NewMockNotifier(t)
	mn.EXPECT().
		SendDrop(mock.Anything, int64(42), dropWith(70000, 62000), mock.Anything).
		Run(func(_ context.Context, _ int64, _ domain.DropEvent, s domain.Subscription) {
			// The notifier sees the already-persisted state.
			subs, err := ms.ListSubscriptions(ctx, 42)
			assert.NoError(t, err)
			assert.Equal(t, int64(62000), *subs[0].ReferencePrice)
			assert.Equal(t, int64(62000), *s.ReferencePrice)
		}).
		Return(nil).Once()

	res, err := newTestEngine(ms, mo, mn).RunScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Subscriptions)
	assert.Equal(t, 1, res.Queries)
	assert.Equal(t, 1, res.Drops)
	assert.Equal(t, 1, res.Notified)

	subs, err := ms.ListSubscriptions(ctx, 42)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, sub.ID, subs[0].ID)
	assert.Equal(t, int64(62000), *subs[0].ReferencePrice)
	assert.Equal(t, int64(62000), *subs[0].LastNotifiedPrice)
}

func TestRunScan_SmallDropLeavesReference(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ms := store.NewMemoryStore()
	addSub(t, ms, 42, "LG OLED 55", domain.Ptr[int64](70000))

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "LG OLED 55").Return(listing(64000), nil).Once()

	res, err := newTestEngine(ms, mo, notifyMocks.NewMockNotifier(t)).RunScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Drops)

	subs, err := ms.ListSubscriptions(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(70000), *subs[0].ReferencePrice)
	assert.Nil(t, subs[0].LastNotifiedPrice)
}

func TestRunScan_SharedQuerySearchedOnce(t *testing.T) {
	t.Parallel()

	ms := store.NewMemoryStore()
	addSub(t, ms, 1, "iphone 15", domain.Ptr[int64](100000))
	addSub(t, ms, 2, "iPhone  15", domain.Ptr[int64](100000))

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "iphone 15").Return(listing(80000), nil).Once()

	mn := notifyMocks.NewMockNotifier(t)
	mn.EXPECT().SendDrop(mock.Anything, int64(1), dropWith(100000, 80000), mock.Anything).Return(nil).Once()
	mn.EXPECT().SendDrop(mock.Anything, int64(2), dropWith(100000, 80000), mock.Anything).Return(nil).Once()

	res, err := newTestEngine(ms, mo, mn).RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Subscriptions)
	assert.Equal(t, 1, res.Queries)
	assert.Equal(t, 2, res.Notified)
}

func TestRunScan_OracleTimeoutIsolatedToQuery(t *testing.T) {
	t.Parallel()

	ms := store.NewMemoryStore()
	addSub(t, ms, 1, "slow query", domain.Ptr[int64](1000))
	addSub(t, ms, 2, "fast query", domain.Ptr[int64](1000))

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "slow query").
		RunAndReturn(func(ctx context.Context, _ string) ([]domain.Listing, error) {
			<-ctx.Done()
			return nil, &oracle.Error{Query: "slow query", Kind: oracle.Transient, Err: ctx.Err()}
		}).Once()
	mo.EXPECT().Search(mock.Anything, "fast query").Return(listing(500), nil).Once()

	mn := notifyMocks.NewMockNotifier(t)
	mn.EXPECT().SendDrop(mock.Anything, int64(2), dropWith(1000, 500), mock.Anything).Return(nil).Once()

	eng := newTestEngine(ms, mo, mn, WithOracleTimeout(50*time.Millisecond))
	res, err := eng.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedQueries)
	assert.Equal(t, 1, res.Notified)
}

func TestRunScan_PermanentOracleErrorSkipsQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ms := store.NewMemoryStore()
	addSub(t, ms, 1, "bad query", domain.Ptr[int64](1000))

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "bad query").
		Return(nil, &oracle.Error{Query: "bad query", Kind: oracle.Permanent, Err: errors.New("rejected")}).Once()

	res, err := newTestEngine(ms, mo, notifyMocks.NewMockNotifier(t)).RunScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedQueries)

	subs, err := ms.ListSubscriptions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, subs, 1, "permanent failures never unsubscribe")
}

func TestRunScan_NoDuplicateNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ms := store.NewMemoryStore()
	addSub(t, ms, 42, "LG OLED 55", domain.Ptr[int64](70000))

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "LG OLED 55").Return(listing(62000), nil).Twice()
	mo.EXPECT().Search(mock.Anything, "LG OLED 55").Return(listing(57000), nil).Once()
	mo.EXPECT().Search(mock.Anything, "LG OLED 55").Return(listing(55000), nil).Once()

	mn := notifyMocks.NewMockNotifier(t)
	mn.EXPECT().SendDrop(mock.Anything, int64(42), dropWith(70000, 62000), mock.Anything).Return(nil).Once()
	mn.EXPECT().SendDrop(mock.Anything, int64(42), dropWith(62000, 55000), mock.Anything).Return(nil).Once()

	eng := newTestEngine(ms, mo, mn)

	// 70000 -> 62000 notifies; repeat 62000 does not; 57000 is only 8.1%
	// below the new reference; 55000 is 11.3% below it.
	wantNotified := []int{1, 0, 0, 1}
	for i, want := range wantNotified {
		res, err := eng.RunScan(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, res.Notified, "scan %d", i)
	}

	subs, err := ms.ListSubscriptions(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(55000), *subs[0].ReferencePrice)
}

func TestRunScan_ConcurrentRemovalDropsNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ms := store.NewMemoryStore()
	sub := addSub(t, ms, 42, "LG OLED 55", domain.Ptr[int64](70000))

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "LG OLED 55").
		RunAndReturn(func(ctx context.Context, _ string) ([]domain.Listing, error) {
			// The user unsubscribes while the scan is waiting on the oracle.
			removed, err := ms.RemoveSubscription(ctx, 42, sub.ID)
			assert.NoError(t, err)
			assert.True(t, removed)
			return listing(50000), nil
		}).Once()

	res, err := newTestEngine(ms, mo, notifyMocks.NewMockNotifier(t)).RunScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Drops)
	assert.Equal(t, 1, res.Stale)
	assert.Equal(t, 0, res.Notified)

	snap, err := ms.SnapshotSubscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestRunScan_SeedsUnknownReferenceWithoutNotifying(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ms := store.NewMemoryStore()
	addSub(t, ms, 42, "LG OLED 55", nil)

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "LG OLED 55").Return([]domain.Listing{
		{Title: "a", Price: 72000},
		{Title: "b", Price: 69000},
	}, nil).Once()

	res, err := newTestEngine(ms, mo, notifyMocks.NewMockNotifier(t)).RunScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Seeded)
	assert.Equal(t, 0, res.Drops)

	subs, err := ms.ListSubscriptions(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(69000), *subs[0].ReferencePrice)
	assert.Nil(t, subs[0].LastNotifiedPrice)
}

func TestRunScan_EmptyListingsNoDetection(t *testing.T) {
	t.Parallel()

	ms := store.NewMemoryStore()
	addSub(t, ms, 42, "LG OLED 55", domain.Ptr[int64](70000))

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "LG OLED 55").Return([]domain.Listing{}, nil).Once()

	res, err := newTestEngine(ms, mo, notifyMocks.NewMockNotifier(t)).RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Drops)
	assert.Equal(t, 0, res.FailedQueries)
}

func TestRunScan_NotifyFailureKeepsPersistedDrop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ms := store.NewMemoryStore()
	addSub(t, ms, 42, "LG OLED 55", domain.Ptr[int64](70000))

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "LG OLED 55").Return(listing(60000), nil).Once()

	mn := notifyMocks.NewMockNotifier(t)
	mn.EXPECT().SendDrop(mock.Anything, int64(42), mock.Anything, mock.Anything).
		Return(errors.New("telegram unavailable")).Once()

	res, err := newTestEngine(ms, mo, mn).RunScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NotifyFailed)
	assert.Equal(t, 0, res.Notified)

	subs, err := ms.ListSubscriptions(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), *subs[0].ReferencePrice)
}

func TestRunScan_NotifiesAfterCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := domain.Subscription{ID: "sub-1", UserID: 42, Query: "q", ReferencePrice: domain.Ptr[int64](1000)}

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().SnapshotSubscriptions(mock.Anything).Return([]domain.Subscription{sub}, nil).Once()
	ms.EXPECT().ApplyPriceDrop(mock.Anything, "sub-1", int64(1000), int64(500)).
		RunAndReturn(func(context.Context, string, int64, int64) (bool, error) {
			// Shutdown begins right after the drop is persisted.
			cancel()
			return true, nil
		}).Once()

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "q").Return(listing(500), nil).Once()

	mn := notifyMocks.NewMockNotifier(t)
	mn.EXPECT().SendDrop(mock.Anything, int64(42), dropWith(1000, 500), mock.Anything).
		RunAndReturn(func(ctx context.Context, _ int64, _ domain.DropEvent, _ domain.Subscription) error {
			assert.NoError(t, ctx.Err(), "delivery context survives scan cancellation")
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return nil
		}).Once()

	res, err := newTestEngine(ms, mo, mn).RunScan(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Notified)
}

func TestRunScan_SnapshotError(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().SnapshotSubscriptions(mock.Anything).Return(nil, errors.New("connection refused")).Once()

	_, err := newTestEngine(ms, oracleMocks.NewMockPriceOracle(t), notifyMocks.NewMockNotifier(t)).
		RunScan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshotting subscriptions")
}

func TestRunScan_SingleFlight(t *testing.T) {
	t.Parallel()

	ms := store.NewMemoryStore()
	addSub(t, ms, 42, "LG OLED 55", domain.Ptr[int64](70000))

	release := make(chan struct{})
	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "LG OLED 55").
		RunAndReturn(func(context.Context, string) ([]domain.Listing, error) {
			<-release
			return listing(69000), nil
		}).Once()

	eng := newTestEngine(ms, mo, notifyMocks.NewMockNotifier(t))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := eng.RunScan(context.Background())
		assert.NoError(t, err)
	}()

	require.Eventually(t, eng.Scanning, time.Second, 5*time.Millisecond)

	_, err := eng.RunScan(context.Background())
	require.ErrorIs(t, err, ErrScanInProgress)

	close(release)
	wg.Wait()
	assert.False(t, eng.Scanning())
}

func TestRunScan_ConcurrencyCap(t *testing.T) {
	t.Parallel()

	ms := store.NewMemoryStore()
	queries := []string{"a", "b", "c", "d", "e", "f"}
	for i, q := range queries {
		addSub(t, ms, int64(i+1), q, domain.Ptr[int64](1000))
	}

	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, mock.Anything).
		RunAndReturn(func(context.Context, string) ([]domain.Listing, error) {
			mu.Lock()
			current++
			peak = max(peak, current)
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			return listing(1000), nil
		}).Times(len(queries))

	res, err := newTestEngine(ms, mo, notifyMocks.NewMockNotifier(t), WithConcurrency(2)).
		RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(queries), res.Queries)
	assert.LessOrEqual(t, peak, 2)
}

func TestRunScan_ConcurrentCommands(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ms := store.NewMemoryStore()
	for u := int64(1); u <= 20; u++ {
		addSub(t, ms, u, "shared", domain.Ptr[int64](1000))
	}

	mo := oracleMocks.NewMockPriceOracle(t)
	mo.EXPECT().Search(mock.Anything, "shared").Return(listing(800), nil).Once()

	mn := notifyMocks.NewMockNotifier(t)
	mn.EXPECT().SendDrop(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	eng := newTestEngine(ms, mo, mn)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := eng.RunScan(ctx)
		assert.NoError(t, err)
		assert.Equal(t, res.Subscriptions, res.Notified+res.Stale)
	}()

	for u := int64(1); u <= 20; u++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			subs, err := ms.ListSubscriptions(ctx, uid)
			assert.NoError(t, err)
			if uid%2 == 0 && len(subs) == 1 {
				_, err = ms.RemoveSubscription(ctx, uid, subs[0].ID)
				assert.NoError(t, err)
			}
		}(u)
	}
	wg.Wait()

	snap, err := ms.SnapshotSubscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, snap, 10)
	for i := range snap {
		assert.Equal(t, int64(800), *snap[i].ReferencePrice)
	}
}

func TestGroupByQuery(t *testing.T) {
	t.Parallel()

	groups := groupByQuery([]domain.Subscription{
		{ID: "1", Query: "iphone 15"},
		{ID: "2", Query: "LG OLED"},
		{ID: "3", Query: "iPhone 15"},
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "iphone 15", groups[0].query)
	assert.Len(t, groups[0].subs, 2)
	assert.Equal(t, "LG OLED", groups[1].query)
}
