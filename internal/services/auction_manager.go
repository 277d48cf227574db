package services

import (
	"context"
	"errors"
	"time"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"
	"ece-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
)

// AuctionBidsInvalidator drops cached bid data of a closed auction.
type AuctionBidsInvalidator interface {
	InvalidateAuctionBids(ctx context.Context, auctionID string) error
}

type CreateAuctionRequest struct {
	SellerID      string
	Title         string
	StartingPrice decimal.Decimal
	BidIncrement  decimal.Decimal
	StartTime     time.Time
	EndTime       time.Time
}

type AuctionManager struct {
	tx        domain.Transactor
	repos     domain.Repositories
	locker    domain.AuctionLocker
	engine    *AutoBidService
	validator *BidValidator
	eventPub  domain.EventPublisher
	scheduler domain.AuctionScheduler
	notifier  domain.UserNotifier
	cache     AuctionBidsInvalidator
	log       logger.Logger
}

func NewAuctionManager(
	tx domain.Transactor,
	repos domain.Repositories,
	locker domain.AuctionLocker,
	engine *AutoBidService,
	validator *BidValidator,
	eventPub domain.EventPublisher,
	notifier domain.UserNotifier,
	cache AuctionBidsInvalidator,
	log logger.Logger,
) *AuctionManager {
	return &AuctionManager{
		tx:        tx,
		repos:     repos,
		locker:    locker,
		engine:    engine,
		validator: validator,
		eventPub:  eventPub,
		notifier:  notifier,
		cache:     cache,
		log:       log,
	}
}

// SetScheduler breaks the construction cycle with CronAuctionScheduler.
func (am *AuctionManager) SetScheduler(scheduler domain.AuctionScheduler) {
	am.scheduler = scheduler
}

func (am *AuctionManager) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*domain.Auction, error) {
	if req.SellerID == "" || req.Title == "" {
		return nil, domain.Validation("sellerId and title are required")
	}
	if !req.StartingPrice.IsPositive() {
		return nil, domain.Validation("Starting price must be greater than 0")
	}
	if req.BidIncrement.IsNegative() {
		return nil, domain.Validation("Bid increment must not be negative")
	}

	now := time.Now().UTC()
	if req.StartTime.IsZero() {
		req.StartTime = now
	}
	if !req.EndTime.After(req.StartTime) || !req.EndTime.After(now) {
		return nil, domain.Validation("End time must be in the future and after the start time")
	}
	if req.BidIncrement.IsZero() {
		req.BidIncrement = am.validator.DefaultIncrement(req.StartingPrice)
	}

	status := domain.AuctionActive
	if req.StartTime.After(now) {
		status = domain.AuctionPending
	}

	auction := &domain.Auction{
		ID:            utils.GenerateID("auction"),
		SellerID:      req.SellerID,
		Title:         req.Title,
		Status:        status,
		StartingPrice: req.StartingPrice,
		BidIncrement:  req.BidIncrement,
		CurrentBid:    req.StartingPrice,
		StartTime:     req.StartTime.UTC(),
		EndTime:       req.EndTime.UTC(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := am.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := am.repos.Auctions.CreateAuction(ctx, auction); err != nil {
			return err
		}
		if am.scheduler == nil {
			return nil
		}
		if status == domain.AuctionPending {
			if err := am.scheduler.ScheduleAuctionStart(ctx, auction.ID, auction.StartTime); err != nil {
				return err
			}
		}
		return am.scheduler.ScheduleAuctionEnd(ctx, auction.ID, auction.EndTime)
	})
	if err != nil {
		return nil, err
	}

	am.log.Info("Auction created", "auction_id", auction.ID, "status", string(status),
		"starting_price", auction.StartingPrice.String(), "bid_increment", auction.BidIncrement.String())
	if status == domain.AuctionActive {
		am.publish(ctx, &domain.BidEvent{Type: domain.AuctionStarted, AuctionID: auction.ID, Amount: auction.CurrentBid})
	}
	return auction, nil
}

// StartAuction opens a PENDING auction. Starting one that already left
// PENDING is a no-op.
func (am *AuctionManager) StartAuction(ctx context.Context, auctionID string) error {
	ok, err := am.repos.Auctions.TransitionStatus(ctx, auctionID, domain.AuctionPending, domain.AuctionActive)
	if err != nil {
		return err
	}
	if !ok {
		_, err := am.repos.Auctions.GetAuction(ctx, auctionID)
		return err
	}

	am.log.Info("Auction started", "auction_id", auctionID)
	auction, err := am.repos.Auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	am.publish(ctx, &domain.BidEvent{Type: domain.AuctionStarted, AuctionID: auctionID, Amount: auction.CurrentBid})
	return nil
}

// EndAuction closes an ACTIVE auction. The highest bid wins.
func (am *AuctionManager) EndAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	return am.close(ctx, auctionID, domain.AuctionEnded)
}

// CancelAuction closes a PENDING or ACTIVE auction without a winner.
func (am *AuctionManager) CancelAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	return am.close(ctx, auctionID, domain.AuctionCancelled)
}

func (am *AuctionManager) close(ctx context.Context, auctionID string, to domain.AuctionStatus) (*domain.Auction, error) {
	unlock, err := am.locker.Lock(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		auction *domain.Auction
		winner  *domain.BidNotification
	)
	err = am.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		auction, err = am.repos.Auctions.GetAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		from := auction.Status
		if from != domain.AuctionActive && !(to == domain.AuctionCancelled && from == domain.AuctionPending) {
			return domain.InvalidState("Auction is not active")
		}

		ok, err := am.repos.Auctions.TransitionStatus(ctx, auctionID, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return domain.InvalidState("Auction is not active")
		}

		if from == domain.AuctionActive {
			if err := am.engine.DeactivateAutoBidsForAuction(ctx, auctionID); err != nil {
				return err
			}
		}
		withWinner := to == domain.AuctionEnded && auction.HasBids()
		if err := am.repos.Bids.FinalizeBids(ctx, auctionID, withWinner); err != nil {
			return err
		}
		if am.scheduler != nil {
			if err := am.scheduler.CancelSchedule(ctx, auctionID); err != nil {
				return err
			}
		}

		if withWinner {
			winner = newNotification(auction.HighestBidderID, auctionID, domain.NotifyAuctionEnded, auction.CurrentBid, nil)
			if err := am.repos.Notifications.CreateNotification(ctx, winner); err != nil {
				return err
			}
		}
		auction.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	am.log.Info("Auction closed", "auction_id", auctionID, "status", string(to),
		"winner_id", auction.HighestBidderID, "final_bid", auction.CurrentBid.String())

	eventType := domain.AuctionClosed
	if to == domain.AuctionCancelled {
		eventType = domain.AuctionCancelEvt
	}
	am.publish(ctx, &domain.BidEvent{
		Type:      eventType,
		AuctionID: auctionID,
		UserID:    auction.HighestBidderID,
		Amount:    auction.CurrentBid,
	})

	if am.cache != nil {
		if err := am.cache.InvalidateAuctionBids(ctx, auctionID); err != nil {
			am.log.Warn("Failed to invalidate auction cache", "auction_id", auctionID, "error", err)
		}
	}
	if winner != nil && am.notifier != nil {
		if err := am.notifier.NotifyUser(ctx, winner.UserID, winner); err != nil {
			am.log.Warn("Failed to push notification", "user_id", winner.UserID, "error", err)
		}
	}
	return auction, nil
}

// ExpireDueAuctions ends every ACTIVE auction whose end time has passed. It
// backs up the job table for auctions created without a schedule.
func (am *AuctionManager) ExpireDueAuctions(ctx context.Context) (int, error) {
	auctions, err := am.repos.Auctions.GetActiveAuctions(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	ended := 0
	for _, auction := range auctions {
		if auction.EndTime.After(now) {
			continue
		}
		if _, err := am.EndAuction(ctx, auction.ID); err != nil {
			if errors.Is(err, domain.ErrInvalidState) {
				continue
			}
			am.log.Error("Failed to end expired auction", "auction_id", auction.ID, "error", err)
			continue
		}
		ended++
	}
	return ended, nil
}

func (am *AuctionManager) publish(ctx context.Context, event *domain.BidEvent) {
	if am.eventPub == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := am.eventPub.PublishBidEvent(ctx, event); err != nil {
		am.log.Warn("Failed to publish auction event", "auction_id", event.AuctionID,
			"type", string(event.Type), "error", err)
	}
}
