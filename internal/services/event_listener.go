package services

import (
	"context"
	"fmt"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// EventListener relays bus traffic to the sockets of this process: bid
// events to auction rooms, notifications to their user.
type EventListener struct {
	broadcaster       domain.AuctionBroadcaster
	notifier          domain.UserNotifier
	connectionManager domain.ConnectionManager
	log               logger.Logger
}

func NewEventListener(connectionManager domain.ConnectionManager, broadcaster domain.AuctionBroadcaster,
	notifier domain.UserNotifier, log logger.Logger) *EventListener {
	return &EventListener{
		broadcaster:       broadcaster,
		notifier:          notifier,
		connectionManager: connectionManager,
		log:               log,
	}
}

// Start blocks until ctx ends or either subscription fails.
func (el *EventListener) Start(ctx context.Context, events domain.EventSubscriber, notifications domain.NotificationSubscriber) error {
	el.log.Info("Starting event listener")
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return events.SubscribeToBidEvents(ctx, el.HandleBidEvent)
	})
	g.Go(func() error {
		return notifications.SubscribeToNotifications(ctx, el.HandleNotification)
	})
	return g.Wait()
}

func (el *EventListener) HandleBidEvent(event *domain.BidEvent) error {
	el.log.Debug("Handling bid event", "type", string(event.Type), "auction_id", event.AuctionID)

	switch event.Type {
	case domain.BidAccepted:
		return el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
			"type":           "bid_update",
			"current_bid":    event.Amount,
			"current_winner": event.UserID,
			"bid_type":       event.BidType,
			"timestamp":      event.Timestamp,
		})
	case domain.AuctionStarted:
		return el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
			"type":        "auction_started",
			"current_bid": event.Amount,
			"timestamp":   event.Timestamp,
		})
	case domain.AuctionClosed, domain.AuctionCancelEvt:
		return el.handleAuctionClosed(event)
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}

func (el *EventListener) handleAuctionClosed(event *domain.BidEvent) error {
	if err := el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
		"type":      string(event.Type),
		"final_bid": event.Amount,
		"winner_id": event.UserID,
		"timestamp": event.Timestamp,
	}); err != nil {
		el.log.Error("Failed to broadcast auction close", "auction_id", event.AuctionID, "error", err)
		return err
	}

	if err := el.connectionManager.CloseAndUnregisterConnections(event.AuctionID); err != nil {
		el.log.Error("Failed to close connections for auction", "auction_id", event.AuctionID, "error", err)
		return err
	}
	return nil
}

func (el *EventListener) HandleNotification(n *domain.BidNotification) error {
	return el.notifier.NotifyUser(context.Background(), n.UserID, map[string]interface{}{
		"type":         "notification",
		"notification": n,
	})
}
