package utils

import (
	"context"
	"database/sql"
	"os"
	"time"

	"ece-marketplace/internal/config"
	"ece-marketplace/internal/infrastructure/mysql"
	"ece-marketplace/internal/infrastructure/sqlite"
	"ece-marketplace/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
)

// InitializeDatabase opens the configured store and applies the schema.
// Failures are fatal.
func InitializeDatabase(ctx context.Context, cfg *config.Config, log logger.Logger) *sql.DB {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Database.URL)
		if err != nil {
			log.Error("Failed to open SQLite", "path", cfg.Database.URL, "error", err)
			os.Exit(1)
		}
		log.Info("Connected to SQLite", "path", cfg.Database.URL)
		return db
	}

	db, err := mysql.Open(cfg.Database.URL, cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	if err := mysql.Migrate(ctx, db, mysql.Schema); err != nil {
		log.Error("Failed to migrate MySQL", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")
	return db
}

// InitializeRedis connects and pings Redis. Failures are fatal.
func InitializeRedis(ctx context.Context, cfg *config.Config, log logger.Logger) *redisClient.Client {
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.RedisAddress(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "address", cfg.RedisAddress(), "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.RedisAddress())
	return rdb
}
