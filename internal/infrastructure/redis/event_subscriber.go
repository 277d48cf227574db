package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type RedisEventSubscriber struct {
	client *redis.Client
	prefix string
	log    logger.Logger
}

var _ domain.EventSubscriber = (*RedisEventSubscriber)(nil)
var _ domain.NotificationSubscriber = (*RedisEventSubscriber)(nil)

func NewRedisEventSubscriber(client *redis.Client, prefix string, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		prefix: prefix,
		log:    log,
	}
}

func (r *RedisEventSubscriber) SubscribeToBidEvents(ctx context.Context, handler domain.EventHandler) error {
	return r.listen(ctx, r.prefix+AuctionEventsChannel, func(payload string) error {
		var event domain.BidEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return fmt.Errorf("invalid event payload: %w", err)
		}
		return handler(&event)
	})
}

func (r *RedisEventSubscriber) SubscribeToNotifications(ctx context.Context, handler domain.NotificationHandler) error {
	return r.listen(ctx, r.prefix+BidNotificationsChannel, func(payload string) error {
		var n domain.BidNotification
		if err := json.Unmarshal([]byte(payload), &n); err != nil {
			return fmt.Errorf("invalid notification payload: %w", err)
		}
		return handler(&n)
	})
}

func (r *RedisEventSubscriber) listen(ctx context.Context, channel string, handle func(payload string) error) error {
	pubsub := r.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	// wait for the subscription to be confirmed before consuming
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	ch := pubsub.Channel()

	r.log.Info("Subscribed to channel", "channel", channel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := handle(msg.Payload); err != nil {
				r.log.Error("Failed to handle message", "channel", channel, "payload", msg.Payload, "error", err)
			}

		case <-ctx.Done():
			r.log.Info("Subscriber stopped", "channel", channel)
			return ctx.Err()
		}
	}
}
