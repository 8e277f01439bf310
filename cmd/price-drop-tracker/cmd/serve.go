package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/price-drop-tracker/internal/engine"
	"github.com/donaldgifford/price-drop-tracker/internal/telemetry"
	"github.com/donaldgifford/price-drop-tracker/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scan scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Tracing, Version, log)
	if err != nil {
		return err
	}

	st, closeStore, err := buildStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	orc, limiter, err := buildOracle(cfg.Oracle)
	if err != nil {
		return err
	}
	notifier := buildNotifier(cfg.Notifications, logger.Component(log, "notify"))

	eng := engine.NewEngine(st, orc, notifier,
		engine.WithLogger(logger.Component(log, "engine")),
		engine.WithThreshold(decimal.NewFromFloat(cfg.Scan.DropThreshold)),
		engine.WithConcurrency(cfg.Scan.Concurrency),
		engine.WithOracleTimeout(cfg.Oracle.Timeout),
		engine.WithNotifyTimeout(cfg.Scan.NotifyTimeout),
	)

	sched, err := engine.NewScheduler(eng, st, cfg.Scan.Interval, cfg.Scan.LockTTL, logger.Component(log, "scheduler"))
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	svc := engine.NewSubscriptionService(st, orc, cfg.Oracle.Timeout, logger.Component(log, "subscriptions"))

	e := newServer(cfg.Server, serverDeps{
		store:     st,
		svc:       svc,
		scheduler: sched,
		limiter:   limiter,
		log:       logger.Component(log, "http"),
	})

	sched.Start(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr, "version", Version)

	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serverErr:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := e.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down server: %w", err))
	}
	if err := sched.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stopping scheduler: %w", err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("flushing traces: %w", err))
	}

	log.Info("server stopped")
	return errors.Join(errs...)
}
