package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ece-marketplace/internal/api"
	"ece-marketplace/internal/config"
	"ece-marketplace/internal/infrastructure/leader"
	"ece-marketplace/internal/infrastructure/lock"
	"ece-marketplace/internal/infrastructure/mysql"
	"ece-marketplace/internal/infrastructure/redis"
	"ece-marketplace/internal/services"
	"ece-marketplace/pkg/logger"
	"ece-marketplace/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.NewWithLevel(cfg.Log.Level).With("service", "marketplace-api", "instance_id", cfg.Instance.ID)
	log.Info("Starting marketplace API", "config", cfg.GetConfigString())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := utils.InitializeRedis(ctx, cfg, log)
	defer rdb.Close()

	db := utils.InitializeDatabase(ctx, cfg, log)
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}()

	store := mysql.NewStore(db)
	repos := mysql.NewRepositories(store)

	cacheStore := redis.NewRedisCacheStore(rdb)
	eventPublisher := redis.NewEventPublisher(rdb, cfg.Cache.Prefix)
	locker := lock.NewRedisAuctionLocker(rdb, cfg.Cache.Prefix, cfg.Lock.TTL, cfg.Lock.Wait, log)
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Cache.Prefix, cfg.Leader.TTL)

	validator := services.NewBidValidator(cacheStore, cfg.Cache.Prefix)
	if err := validator.LoadRules(ctx); err != nil {
		log.Error("Failed to load validation rules", "error", err)
		os.Exit(1)
	}

	cacheService := services.NewCacheService(cacheStore, repos.Catalog, repos.Bids, store, cfg.Cache.Prefix, log)
	ledger := services.NewLedgerService(store, repos.Users, repos.Transactions, log)
	orders := services.NewOrderService(store, repos.Users, repos.Orders, log)

	// bid notifications go over the Redis bus to whichever bidding-service
	// instance holds the user's socket
	engine := services.NewAutoBidService(store, repos, locker, validator, eventPublisher, eventPublisher, cacheService, log)
	auctionManager := services.NewAuctionManager(store, repos, locker, engine, validator,
		eventPublisher, eventPublisher, cacheService, log)

	scheduler := services.NewCronAuctionScheduler(repos.Jobs, auctionManager, leaderElection,
		cfg.Instance.ID, cfg.Scheduler.Interval, log)
	auctionManager.SetScheduler(scheduler)

	if err := scheduler.Start(ctx); err != nil {
		log.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	e := api.NewRouter(api.Services{
		Ledger:         ledger,
		Orders:         orders,
		AuctionManager: auctionManager,
		Engine:         engine,
		Cache:          cacheService,
	}, api.RouterConfig{AdminToken: cfg.Admin.Token}, log)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting marketplace server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down marketplace API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scheduler.Stop(); err != nil {
		log.Error("Failed to stop scheduler", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Marketplace API stopped")
}
