package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/web3-frozen/tokenflow/internal/cache"
	"github.com/web3-frozen/tokenflow/internal/config"
	"github.com/web3-frozen/tokenflow/internal/handler"
	"github.com/web3-frozen/tokenflow/internal/ledger"
	"github.com/web3-frozen/tokenflow/internal/market"
	"github.com/web3-frozen/tokenflow/internal/middleware"
	"github.com/web3-frozen/tokenflow/internal/report"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()

	if cfg.EtherscanAPIKey == "" {
		logger.Error("ETHERSCAN_API_KEY is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cache backend: Postgres when configured, then Redis, then memory.
	var store cache.Store
	var pinger handler.Pinger

	switch {
	case cfg.DatabaseURL != "":
		pg, err := cache.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database connected and migrated")
		// Expired rows are invisible to readers but still occupy the
		// table, so prune anything well past its TTL in the background.
		go cache.SweepLoop(ctx, pg, cfg.CacheTTL, 2*cfg.CacheTTL, logger)
		store, pinger = pg, pg

	case cfg.RedisURL != "":
		// Retry up to 30s for ExternalSecret to sync
		var rs *cache.RedisStore
		var err error
		for i := 0; i < 6; i++ {
			rs, err = cache.NewRedisStore(cfg.RedisURL, cfg.RedisPassword, cfg.CacheTTL)
			if err == nil {
				break
			}
			logger.Warn("redis not ready, retrying...", "attempt", i+1, "error", err)
			time.Sleep(5 * time.Second)
		}
		if err != nil {
			logger.Error("failed to connect to redis after retries", "error", err)
			os.Exit(1)
		}
		defer rs.Close()
		logger.Info("redis connected for cache")
		store, pinger = rs, rs

	default:
		logger.Warn("no DATABASE_URL or REDIS_URL set, using in-memory cache")
		store = cache.NewMemoryStore()
	}

	c := cache.New(store, cfg.CacheTTL, logger)

	// Upstream clients and the report service
	svc := report.NewService(
		ledger.NewClient(cfg.EtherscanAPIKey, logger),
		market.NewKrakenClient(),
		market.NewFuturesClient(),
		c,
		logger,
	)

	// Background cache warming
	go svc.RefreshLoop(ctx, cfg.RefreshInterval)

	// HTTP routes
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())
	r.Get("/readyz", handler.Ready(pinger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/tokens", handler.ListTokens())
		r.Get("/tokens/{slug}/activity", handler.TokenActivity(svc))
		r.Get("/tokens/{slug}/whales", handler.TokenWhales(svc))
		r.Get("/tokens/{slug}/exchange-flows", handler.TokenExchangeFlows(svc))
		r.Get("/market/{pair}/signal", handler.SpotSignal(svc))
		r.Get("/futures/{symbol}/signal", handler.DerivativesSignal(svc))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
