package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/price-drop-tracker/internal/api/handlers"
	mw "github.com/donaldgifford/price-drop-tracker/internal/api/middleware"
	"github.com/donaldgifford/price-drop-tracker/internal/config"
	"github.com/donaldgifford/price-drop-tracker/internal/engine"
	"github.com/donaldgifford/price-drop-tracker/internal/notify"
	"github.com/donaldgifford/price-drop-tracker/internal/oracle"
	"github.com/donaldgifford/price-drop-tracker/internal/store"
)

// buildStore opens the configured store. The returned close func is never nil.
func buildStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (store.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pg, err := store.NewPostgresStore(ctx, cfg.DSN())
		if err != nil {
			return nil, func() {}, fmt.Errorf("connecting to database: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, func() {}, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("using postgres store", "host", cfg.Host, "database", cfg.Name)
		return pg, pg.Close, nil
	case config.BackendMemory:
		log.Warn("using in-memory store; subscriptions are lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}

// buildOracle returns the configured price oracle and, for the HTTP backend,
// its rate limiter.
func buildOracle(cfg config.OracleConfig) (oracle.PriceOracle, *oracle.RateLimiter, error) {
	switch cfg.Backend {
	case config.OracleHTTP:
		rl := oracle.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, cfg.RateLimit.Daily)
		return oracle.NewHTTPOracle(cfg.Endpoint, oracle.WithRateLimiter(rl)), rl, nil
	case config.OracleStatic:
		o, err := oracle.LoadStaticOracle(cfg.StaticFile)
		if err != nil {
			return nil, nil, err
		}
		return o, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown oracle backend %q", cfg.Backend)
	}
}

// buildNotifier fans out to every enabled backend, or discards drops with a
// log line when none is enabled.
func buildNotifier(cfg config.NotificationsConfig, log *slog.Logger) notify.Notifier {
	var targets notify.Multi

	if cfg.Telegram.Enabled {
		targets = append(targets, notify.NewTelegramNotifier(cfg.Telegram.BotToken,
			notify.WithTelegramAPIURL(cfg.Telegram.APIURL),
			notify.WithTelegramCurrency(cfg.Currency),
		))
		log.Info("telegram notifications enabled")
	}
	if cfg.Discord.Enabled {
		targets = append(targets, notify.NewDiscordNotifier(cfg.Discord.WebhookURL,
			notify.WithCurrency(cfg.Currency),
		))
		log.Info("discord notifications enabled")
	}

	switch len(targets) {
	case 0:
		log.Warn("no notification backend enabled; drops will only be logged")
		return notify.NewNoOpNotifier(log)
	case 1:
		return targets[0]
	default:
		return targets
	}
}

type serverDeps struct {
	store     store.Store
	svc       *engine.SubscriptionService
	scheduler *engine.Scheduler
	limiter   *oracle.RateLimiter
	log       *slog.Logger
}

// newServer builds the Echo instance with middleware, the Huma API, health
// probes and the Prometheus endpoint.
func newServer(cfg config.ServerConfig, deps serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(mw.Recovery(deps.log), mw.RequestLog(deps.log), mw.Metrics())

	api := humaecho.New(e, huma.DefaultConfig("Price Drop Tracker API", Version))
	handlers.RegisterSubscriptionRoutes(api, handlers.NewSubscriptionHandler(deps.svc))
	handlers.RegisterSearchRoutes(api, handlers.NewSearchHandler(deps.svc))
	handlers.RegisterScanRoutes(api, handlers.NewScanHandler(deps.scheduler, deps.log))
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(deps.store, deps.scheduler))
	handlers.RegisterQuotaRoutes(api, handlers.NewQuotaHandler(deps.limiter))

	handlers.RegisterHealthRoutes(e, handlers.NewHealthHandler(deps.store))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
