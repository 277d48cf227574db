// Package lock serializes bid placement per auction.
package lock

import (
	"context"
	"errors"
	"time"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrLockTimeout = &domain.Error{Kind: domain.KindInvalidState, Message: "auction is busy, try again"}

var unlockScript = redis.NewScript(`
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("DEL", KEYS[1])
    else
        return 0
    end
`)

// RedisAuctionLocker holds one token-owned key per auction. The TTL bounds
// how long a crashed holder can block an auction.
type RedisAuctionLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	log    logger.Logger
}

var _ domain.AuctionLocker = (*RedisAuctionLocker)(nil)

func NewRedisAuctionLocker(client *redis.Client, prefix string, ttl, wait time.Duration, log logger.Logger) *RedisAuctionLocker {
	return &RedisAuctionLocker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		wait:   wait,
		log:    log,
	}
}

func (l *RedisAuctionLocker) Lock(ctx context.Context, auctionID string) (func(), error) {
	key := l.prefix + "lock:auction:" + auctionID
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	backoff := 5 * time.Millisecond
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(backoff):
		}
		if backoff < 100*time.Millisecond {
			backoff *= 2
		}
	}
}

func (l *RedisAuctionLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := unlockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.log.Warn("Failed to release auction lock", "key", key, "error", err)
	}
}
