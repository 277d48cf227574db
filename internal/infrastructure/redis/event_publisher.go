package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"ece-marketplace/internal/domain"

	"github.com/go-redis/redis/v8"
)

const (
	AuctionEventsChannel    = "auction_events"
	BidNotificationsChannel = "bid_notifications"
)

// EventPublisherImpl publishes JSON payloads on the prefixed auction event
// channel. It doubles as the UserNotifier of the API process: notifications
// go out on their own channel and bidding-service pushes them to sockets.
type EventPublisherImpl struct {
	client *redis.Client
	prefix string
}

var _ domain.EventPublisher = (*EventPublisherImpl)(nil)
var _ domain.UserNotifier = (*EventPublisherImpl)(nil)

func NewEventPublisher(client *redis.Client, prefix string) *EventPublisherImpl {
	return &EventPublisherImpl{client: client, prefix: prefix}
}

func (r *EventPublisherImpl) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode bid event: %w", err)
	}
	return r.client.Publish(ctx, r.prefix+AuctionEventsChannel, payload).Err()
}

func (r *EventPublisherImpl) NotifyUser(ctx context.Context, userID string, message interface{}) error {
	n, ok := message.(*domain.BidNotification)
	if !ok {
		return fmt.Errorf("unsupported notification payload %T", message)
	}
	if n.UserID == "" {
		n.UserID = userID
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return r.client.Publish(ctx, r.prefix+BidNotificationsChannel, payload).Err()
}
