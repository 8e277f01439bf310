// Package engine runs price scans: it snapshots subscriptions, asks the price
// oracle once per distinct query, detects drops, persists the new reference
// price and notifies the owner.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/donaldgifford/price-drop-tracker/internal/metrics"
	"github.com/donaldgifford/price-drop-tracker/internal/notify"
	"github.com/donaldgifford/price-drop-tracker/internal/oracle"
	"github.com/donaldgifford/price-drop-tracker/internal/store"
	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// ErrScanInProgress is returned when a scan is requested while another is
// still running.
var ErrScanInProgress = errors.New("scan already in progress")

const (
	defaultConcurrency   = 8
	defaultOracleTimeout = 30 * time.Second
	defaultNotifyTimeout = 10 * time.Second
)

var tracer = otel.Tracer("github.com/donaldgifford/price-drop-tracker/internal/engine")

// Engine orchestrates price scans.
type Engine struct {
	store    store.Store
	oracle   oracle.PriceOracle
	notifier notify.Notifier
	log      *slog.Logger

	threshold     decimal.Decimal
	concurrency   int
	oracleTimeout time.Duration
	notifyTimeout time.Duration
	nowFunc       func() time.Time

	scanning atomic.Bool
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	s store.Store,
	o oracle.PriceOracle,
	n notify.Notifier,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		store:         s,
		oracle:        o,
		notifier:      n,
		log:           slog.Default(),
		threshold:     DefaultDropThreshold,
		concurrency:   defaultConcurrency,
		oracleTimeout: defaultOracleTimeout,
		notifyTimeout: defaultNotifyTimeout,
		nowFunc:       time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithThreshold sets the drop fraction that triggers a notification.
func WithThreshold(t decimal.Decimal) EngineOption {
	return func(e *Engine) {
		e.threshold = t
	}
}

// WithConcurrency caps concurrent oracle searches within one scan.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithOracleTimeout bounds each oracle search.
func WithOracleTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.oracleTimeout = d
	}
}

// WithNotifyTimeout bounds each notification delivery.
func WithNotifyTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.notifyTimeout = d
	}
}

// WithNowFunc overrides the clock used for DetectedAt and scan timestamps.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = f
	}
}

// OracleTimeout returns the per-search timeout.
func (eng *Engine) OracleTimeout() time.Duration { return eng.oracleTimeout }

// Scanning reports whether a scan is currently running.
func (eng *Engine) Scanning() bool { return eng.scanning.Load() }

// ScanResult summarizes one scan.
type ScanResult struct {
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Subscriptions int       `json:"subscriptions"`
	Queries       int       `json:"queries"`
	FailedQueries int       `json:"failed_queries"`
	Drops         int       `json:"drops"`
	Notified      int       `json:"notified"`
	NotifyFailed  int       `json:"notify_failed"`
	Stale         int       `json:"stale"`
	Seeded        int       `json:"seeded"`
}

func (r *ScanResult) add(t *ScanResult) {
	r.FailedQueries += t.FailedQueries
	r.Drops += t.Drops
	r.Notified += t.Notified
	r.NotifyFailed += t.NotifyFailed
	r.Stale += t.Stale
	r.Seeded += t.Seeded
}

type queryGroup struct {
	query string
	subs  []domain.Subscription
}

// groupByQuery buckets subscriptions by query key, in first-seen order.
func groupByQuery(subs []domain.Subscription) []queryGroup {
	idx := make(map[string]int)
	var groups []queryGroup
	for i := range subs {
		key := subs[i].Key()
		j, ok := idx[key]
		if !ok {
			j = len(groups)
			idx[key] = j
			groups = append(groups, queryGroup{query: subs[i].Query})
		}
		groups[j].subs = append(groups[j].subs, subs[i])
	}
	return groups
}

// RunScan performs one sweep over every subscription. Only one scan runs at
// a time; a concurrent call returns ErrScanInProgress. Per-query and
// per-subscription failures are logged and counted, never returned. If ctx
// is canceled the partial result is returned together with ctx's error.
func (eng *Engine) RunScan(ctx context.Context) (*ScanResult, error) {
	if !eng.scanning.CompareAndSwap(false, true) {
		metrics.ScansTotal.WithLabelValues("skipped").Inc()
		return nil, ErrScanInProgress
	}
	defer eng.scanning.Store(false)

	ctx, span := tracer.Start(ctx, "engine.scan")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}()

	res := &ScanResult{StartedAt: eng.nowFunc()}

	subs, err := eng.store.SnapshotSubscriptions(ctx)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot failed")
		return nil, fmt.Errorf("snapshotting subscriptions: %w", err)
	}

	groups := groupByQuery(subs)
	res.Subscriptions = len(subs)
	res.Queries = len(groups)
	metrics.ScanSubscriptions.Set(float64(len(subs)))
	metrics.ScanQueries.Set(float64(len(groups)))

	eng.log.Info("scan starting", "subscriptions", len(subs), "queries", len(groups))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(eng.concurrency)

	for _, grp := range groups {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			tally := eng.scanQuery(ctx, grp)
			mu.Lock()
			res.add(tally)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	res.FinishedAt = eng.nowFunc()
	span.SetAttributes(
		attribute.Int("scan.subscriptions", res.Subscriptions),
		attribute.Int("scan.queries", res.Queries),
		attribute.Int("scan.failed_queries", res.FailedQueries),
		attribute.Int("scan.drops", res.Drops),
		attribute.Int("scan.notified", res.Notified),
	)

	if err := ctx.Err(); err != nil {
		metrics.ScansTotal.WithLabelValues("canceled").Inc()
		eng.log.Warn("scan interrupted", "error", err, "notified", res.Notified)
		return res, fmt.Errorf("scan interrupted: %w", err)
	}

	metrics.ScansTotal.WithLabelValues("succeeded").Inc()
	eng.log.Info("scan complete",
		"queries", res.Queries,
		"failed_queries", res.FailedQueries,
		"drops", res.Drops,
		"notified", res.Notified,
		"notify_failed", res.NotifyFailed,
		"stale", res.Stale,
		"seeded", res.Seeded,
		"duration", time.Since(start),
	)
	return res, nil
}

// scanQuery searches one query and processes every subscription sharing it.
func (eng *Engine) scanQuery(ctx context.Context, grp queryGroup) *ScanResult {
	tally := &ScanResult{}

	if ctx.Err() != nil {
		tally.FailedQueries++
		return tally
	}

	searchCtx, cancel := context.WithTimeout(ctx, eng.oracleTimeout)
	listings, err := eng.oracle.Search(searchCtx, grp.query)
	cancel()
	if err != nil {
		tally.FailedQueries++
		eng.log.Warn("oracle search failed, skipping query this scan",
			"query", grp.query,
			"kind", oracle.KindOf(err).String(),
			"subscriptions", len(grp.subs),
			"error", err,
		)
		return tally
	}

	for i := range grp.subs {
		eng.processSubscription(ctx, &grp.subs[i], listings, tally)
	}
	return tally
}

func (eng *Engine) processSubscription(
	ctx context.Context,
	sub *domain.Subscription,
	listings []domain.Listing,
	tally *ScanResult,
) {
	if !sub.HasReference() {
		eng.seedReference(ctx, sub, listings, tally)
		return
	}

	ev := Evaluate(*sub, listings, eng.threshold)
	if ev == nil {
		return
	}
	ev.DetectedAt = eng.nowFunc()
	tally.Drops++
	metrics.DropsDetectedTotal.Inc()

	applied, err := eng.store.ApplyPriceDrop(ctx, sub.ID, ev.OldPrice, ev.NewPrice)
	if err != nil {
		eng.log.Error("persisting price drop failed",
			"subscription_id", sub.ID,
			"error", err,
		)
		return
	}
	if !applied {
		// Removed or re-priced since the snapshot.
		tally.Stale++
		metrics.StaleWritebacksTotal.Inc()
		eng.log.Debug("stale drop discarded", "subscription_id", sub.ID)
		return
	}

	sub.ReferencePrice = domain.Ptr(ev.NewPrice)
	sub.LastNotifiedPrice = domain.Ptr(ev.NewPrice)

	// The drop is persisted; deliver it even if the scan is being canceled.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eng.notifyTimeout)
	defer cancel()

	if err := eng.notifier.SendDrop(notifyCtx, sub.UserID, *ev, *sub); err != nil {
		tally.NotifyFailed++
		metrics.NotificationFailuresTotal.Inc()
		eng.log.Error("sending drop notification failed",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"error", err,
		)
		return
	}

	tally.Notified++
	metrics.NotificationsSentTotal.Inc()
	eng.log.Info("price drop notified",
		"subscription_id", sub.ID,
		"user_id", sub.UserID,
		"query", sub.Query,
		"old_price", ev.OldPrice,
		"new_price", ev.NewPrice,
	)
}

func (eng *Engine) seedReference(
	ctx context.Context,
	sub *domain.Subscription,
	listings []domain.Listing,
	tally *ScanResult,
) {
	best, ok := BestListing(listings)
	if !ok {
		return
	}

	seeded, err := eng.store.SeedReferencePrice(ctx, sub.ID, best.Price)
	if err != nil {
		eng.log.Error("seeding reference price failed", "subscription_id", sub.ID, "error", err)
		return
	}
	if seeded {
		tally.Seeded++
		metrics.ReferencesSeededTotal.Inc()
		eng.log.Debug("reference price seeded", "subscription_id", sub.ID, "price", best.Price)
	}
}
