package services

import (
	"context"
	"fmt"
	"time"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"

	"github.com/robfig/cron/v3"
)

// LeaderboardRefresher recomputes a cached leaderboard from the store.
type LeaderboardRefresher interface {
	RefreshLeaderboard(ctx context.Context, boardType domain.LeaderboardType) ([]*domain.LeaderboardEntry, error)
}

// AnalyticsRecorder persists every bid event into the audit log and keeps
// the leaderboards warm on a cron schedule.
type AnalyticsRecorder struct {
	events   domain.BidEventRepository
	boards   LeaderboardRefresher
	cron     *cron.Cron
	interval time.Duration
	log      logger.Logger
}

func NewAnalyticsRecorder(events domain.BidEventRepository, boards LeaderboardRefresher,
	interval time.Duration, log logger.Logger) *AnalyticsRecorder {
	if interval <= 0 {
		interval = LeaderboardTTL
	}
	return &AnalyticsRecorder{
		events:   events,
		boards:   boards,
		cron:     cron.New(cron.WithSeconds()),
		interval: interval,
		log:      log,
	}
}

// Start schedules the refresher and blocks consuming bid events until ctx
// ends.
func (a *AnalyticsRecorder) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	_, err := a.cron.AddFunc(fmt.Sprintf("@every %s", a.interval), func() {
		a.RefreshLeaderboards(ctx)
	})
	if err != nil {
		return err
	}
	a.cron.Start()
	defer a.cron.Stop()

	a.RefreshLeaderboards(ctx)
	a.log.Info("Analytics recorder started", "leaderboard_refresh", a.interval.String())
	return subscriber.SubscribeToBidEvents(ctx, func(event *domain.BidEvent) error {
		return a.Record(ctx, event)
	})
}

func (a *AnalyticsRecorder) Record(ctx context.Context, event *domain.BidEvent) error {
	if event.AuctionID == "" {
		return fmt.Errorf("bid event without auction id")
	}
	if err := a.events.SaveBidEvent(ctx, event); err != nil {
		return err
	}
	a.log.Debug("Bid event recorded", "auction_id", event.AuctionID, "type", string(event.Type),
		"amount", event.Amount.String())
	return nil
}

func (a *AnalyticsRecorder) RefreshLeaderboards(ctx context.Context) {
	for _, t := range []domain.LeaderboardType{domain.LeaderboardBattle, domain.LeaderboardTrading, domain.LeaderboardCollection} {
		entries, err := a.boards.RefreshLeaderboard(ctx, t)
		if err != nil {
			a.log.Error("Failed to refresh leaderboard", "type", string(t), "error", err)
			continue
		}
		a.log.Debug("Leaderboard refreshed", "type", string(t), "entries", len(entries))
	}
}

func (a *AnalyticsRecorder) AuctionHistory(ctx context.Context, auctionID string) ([]*domain.BidEvent, error) {
	return a.events.GetBidEvents(ctx, auctionID)
}
