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

	"ece-marketplace/internal/api/handlers"
	"ece-marketplace/internal/config"
	"ece-marketplace/internal/infrastructure/lock"
	"ece-marketplace/internal/infrastructure/mysql"
	"ece-marketplace/internal/infrastructure/redis"
	"ece-marketplace/internal/infrastructure/websocket"
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
	log := logger.NewWithLevel(cfg.Log.Level).With("service", "bidding-service", "instance_id", cfg.Instance.ID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := utils.InitializeRedis(ctx, cfg, log)
	defer rdb.Close()

	db := utils.InitializeDatabase(ctx, cfg, log)
	defer db.Close()

	store := mysql.NewStore(db)
	repos := mysql.NewRepositories(store)

	cacheStore := redis.NewRedisCacheStore(rdb)
	eventPublisher := redis.NewEventPublisher(rdb, cfg.Cache.Prefix)
	eventSubscriber := redis.NewRedisEventSubscriber(rdb, cfg.Cache.Prefix, log)
	locker := lock.NewRedisAuctionLocker(rdb, cfg.Cache.Prefix, cfg.Lock.TTL, cfg.Lock.Wait, log)

	validator := services.NewBidValidator(cacheStore, cfg.Cache.Prefix)
	if err := validator.LoadRules(ctx); err != nil {
		log.Error("Failed to load validation rules", "error", err)
		os.Exit(1)
	}

	cacheService := services.NewCacheService(cacheStore, repos.Catalog, repos.Bids, store, cfg.Cache.Prefix, log)
	engine := services.NewAutoBidService(store, repos, locker, validator, eventPublisher, eventPublisher, cacheService, log)

	connManager := websocket.NewConnectionManager(log)
	broadcaster := websocket.NewWebSocketNotifier(connManager)

	eventListener := services.NewEventListener(connManager, broadcaster, broadcaster, log)
	go func() {
		if err := eventListener.Start(ctx, eventSubscriber, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	wsHandlers := handlers.NewWebSocketHandlers(engine, connManager, log)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: handlers.NewBiddingRouter(wsHandlers, log),
	}

	go func() {
		log.Info("Starting bidding service", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down bidding service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Bidding service stopped")
}
