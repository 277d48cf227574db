package redis

import (
	"context"
	"fmt"
	"strings"

	"ece-marketplace/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// ExpiryListener reports cache keys that Redis expired. It only sees keys
// under prefix.
type ExpiryListener struct {
	client *redis.Client
	db     int
	prefix string
	log    logger.Logger
}

func NewExpiryListener(client *redis.Client, db int, prefix string, log logger.Logger) *ExpiryListener {
	return &ExpiryListener{client: client, db: db, prefix: prefix, log: log}
}

func (l *ExpiryListener) Listen(ctx context.Context, handler func(key string)) error {
	// managed Redis often forbids CONFIG; notifications may already be on
	if err := l.client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		l.log.Warn("Could not enable keyspace notifications", "error", err)
	}

	channel := fmt.Sprintf("__keyevent@%d__:expired", l.db)
	pubsub := l.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if strings.HasPrefix(msg.Payload, l.prefix) {
				handler(msg.Payload)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
