package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"appgateway/internal/gateway"
	"appgateway/internal/httpapi"
	"appgateway/internal/metrics"
	"appgateway/internal/session"
	"appgateway/pkg/config"
	"appgateway/pkg/db"
	"appgateway/pkg/shopify"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open session store")
	}
	defer cleanup()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	gw := gateway.New(cfg, store,
		gateway.WithLogger(log),
		gateway.WithMetrics(m),
		gateway.WithAfterAuth(registerUninstallWebhook(cfg, log)),
	)

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:      cfg,
		Log:      log,
		Gateway:  gw,
		Sessions: store,
		Registry: registry,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http serve")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if cfg.AppEnv == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log
}

func openStore(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	switch cfg.SessionBackend {
	case "postgres":
		pool, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.MigrationsPath != "" {
			if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return session.NewPostgresStore(pool), pool.Close, nil
	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}

// registerUninstallWebhook keeps the uninstall webhook subscribed after every
// install or reinstall.
func registerUninstallWebhook(cfg config.Config, log zerolog.Logger) gateway.AfterAuthFunc {
	return func(ctx context.Context, s *shopify.Session, admin *gateway.AdminAPI) error {
		body := map[string]any{
			"webhook": map[string]any{
				"topic":   "app/uninstalled",
				"address": cfg.Shopify.AppURL + "/webhooks",
				"format":  "json",
			},
		}
		t, err := admin.Rest(ctx, http.MethodPost, "/webhooks.json", body, nil)
		if err != nil {
			// Registration failures shouldn't block install; the platform
			// retries deliveries and subscription can be repaired on next auth.
			log.Warn().Err(err).Str("shop", s.Shop).Msg("webhook registration failed")
			return nil
		}
		if t != nil && t.Status != http.StatusUnprocessableEntity {
			// 422 means the subscription already exists.
			log.Warn().Int("status", t.Status).Str("shop", s.Shop).Msg("webhook registration rejected")
		}
		return nil
	}
}
