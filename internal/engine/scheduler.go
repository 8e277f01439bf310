package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/price-drop-tracker/internal/metrics"
	"github.com/donaldgifford/price-drop-tracker/internal/store"
	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// JobPriceScan is the job name recorded for scans.
const JobPriceScan = "price_scan"

// errJobLocked means another holder owns the job's scheduler lock.
var errJobLocked = errors.New("job locked by another holder")

// Scheduler runs price scans on a fixed interval. Ticks that fire while a
// scan is still running are skipped.
type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	engine  *Engine
	store   store.Store
	log     *slog.Logger

	lockTTL time.Duration
	running atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers the scan job. An error here means scans would never
// run and should stop the process.
func NewScheduler(
	eng *Engine,
	s store.Store,
	interval time.Duration,
	lockTTL time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	cl := cronLogger{log: log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))

	ctx, cancel := context.WithCancel(context.Background())
	sch := &Scheduler{
		cron:    c,
		engine:  eng,
		store:   s,
		log:     log,
		lockTTL: lockTTL,
		ctx:     ctx,
		cancel:  cancel,
	}

	id, err := c.AddFunc("@every "+interval.String(), sch.runScheduledScan)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("registering scan job: %w", err)
	}
	sch.entryID = id

	return sch, nil
}

// Start recovers job runs orphaned by a previous crash and begins running
// scheduled scans.
func (s *Scheduler) Start(ctx context.Context) {
	n, err := s.store.RecoverStaleJobRuns(ctx, s.lockTTL)
	if err != nil {
		s.log.Warn("recovering stale job runs failed", "error", err)
	} else if n > 0 {
		s.log.Warn("recovered stale job runs", "count", n)
	}

	s.cron.Start()
	s.SyncNextRunTimestamp()
	s.log.Info("scheduler started", "next_scan", s.NextRun())
}

// Shutdown cancels in-flight scans and waits for them to finish or for ctx
// to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.log.Info("scheduler stopping")
	s.cancel()
	stopped := s.cron.Stop()

	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running scan: %w", ctx.Err())
	}
}

// NextRun returns when the next scheduled scan fires. It is zero before Start.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// Scanning reports whether a scan is running in this process.
func (s *Scheduler) Scanning() bool {
	return s.engine.Scanning()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// SyncNextRunTimestamp publishes the next scheduled scan time.
func (s *Scheduler) SyncNextRunTimestamp() {
	if next := s.NextRun(); !next.IsZero() {
		metrics.SchedulerNextScanTimestamp.Set(float64(next.Unix()))
	}
}

// TriggerScan runs a scan immediately through the same locking and job
// history as scheduled scans. It returns ErrScanInProgress when a scan is
// already running here or on another replica. An overlapping call in this
// process returns before touching the lock or the job history.
func (s *Scheduler) TriggerScan(ctx context.Context) (*ScanResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.ScansTotal.WithLabelValues("skipped").Inc()
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	var res *ScanResult
	err := s.runJob(ctx, JobPriceScan, func(ctx context.Context) (int, error) {
		r, err := s.engine.RunScan(ctx)
		res = r
		if r == nil {
			return 0, err
		}
		return r.Notified, err
	})
	if errors.Is(err, errJobLocked) {
		return nil, ErrScanInProgress
	}
	return res, err
}

func (s *Scheduler) runScheduledScan() {
	defer s.SyncNextRunTimestamp()

	s.log.Info("scheduled scan starting")
	if _, err := s.TriggerScan(s.ctx); err != nil {
		if errors.Is(err, ErrScanInProgress) {
			s.log.Info("scheduled scan skipped", "reason", err)
			return
		}
		s.log.Error("scheduled scan failed", "error", err)
	}
}

// runJob wraps fn with the distributed scheduler lock and a job_runs record.
// Each run holds the lock under its own token, so only that run can release
// it. Bookkeeping failures are logged; they never prevent fn from running.
func (s *Scheduler) runJob(
	ctx context.Context,
	name string,
	fn func(context.Context) (int, error),
) error {
	holder := uuid.NewString()
	acquired, err := s.store.AcquireSchedulerLock(ctx, name, holder, s.lockTTL)
	if err != nil {
		return fmt.Errorf("acquiring scheduler lock: %w", err)
	}
	if !acquired {
		s.log.Info("job skipped, lock held elsewhere", "job", name)
		return errJobLocked
	}

	cleanupCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := s.store.ReleaseSchedulerLock(cleanupCtx, name, holder); err != nil {
			s.log.Warn("releasing scheduler lock failed", "job", name, "error", err)
		}
	}()

	runID, err := s.store.InsertJobRun(ctx, name)
	if err != nil {
		s.log.Warn("recording job start failed", "job", name, "error", err)
	}

	rows, runErr := fn(ctx)

	if runID != "" {
		status, errText := domain.JobStatusSucceeded, ""
		switch {
		case errors.Is(runErr, ErrScanInProgress):
			status, errText = domain.JobStatusSkipped, runErr.Error()
		case runErr != nil:
			status, errText = domain.JobStatusFailed, runErr.Error()
		}
		if err := s.store.CompleteJobRun(cleanupCtx, runID, status, errText, rows); err != nil {
			s.log.Warn("recording job completion failed", "job", name, "error", err)
		}
	}

	return runErr
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
