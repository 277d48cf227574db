package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"ece-marketplace/internal/config"
	"ece-marketplace/internal/infrastructure/mysql"
	"ece-marketplace/internal/infrastructure/redis"
	"ece-marketplace/internal/services"
	"ece-marketplace/pkg/logger"
	"ece-marketplace/pkg/utils"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.NewWithLevel(cfg.Log.Level).With("service", "analytics-service", "instance_id", cfg.Instance.ID)
	log.Info("Starting analytics service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := utils.InitializeRedis(ctx, cfg, log)
	defer rdb.Close()

	db := utils.InitializeDatabase(ctx, cfg, log)
	defer db.Close()

	store := mysql.NewStore(db)
	repos := mysql.NewRepositories(store)

	cacheService := services.NewCacheService(redis.NewRedisCacheStore(rdb), repos.Catalog, repos.Bids,
		store, cfg.Cache.Prefix, log)
	recorder := services.NewAnalyticsRecorder(repos.BidEvents, cacheService, cfg.Leaderboard.Refresh, log)
	subscriber := redis.NewRedisEventSubscriber(rdb, cfg.Cache.Prefix, log)
	expiry := redis.NewExpiryListener(rdb, cfg.Redis.DB, cfg.Cache.Prefix, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return recorder.Start(gctx, subscriber)
	})
	g.Go(func() error {
		return expiry.Listen(gctx, func(key string) {
			log.Debug("Cache key expired", "key", key)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Analytics service failed", "error", err)
		os.Exit(1)
	}
	log.Info("Analytics service stopped")
}
