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

// BidCacheWriter receives every accepted bid after commit.
type BidCacheWriter interface {
	CacheAuctionBid(ctx context.Context, bid *domain.Bid)
}

type AutoBidRequest struct {
	UserID              string
	AuctionID           string
	MaxBid              decimal.Decimal
	Strategy            domain.AutoBidStrategy
	ActivationThreshold *decimal.Decimal
}

// AutoBidService is the bid engine. Every placement on an auction runs under
// that auction's lock and lands through a version compare-and-swap, one
// transaction per bid.
type AutoBidService struct {
	tx        domain.Transactor
	repos     domain.Repositories
	locker    domain.AuctionLocker
	validator *BidValidator
	notifier  domain.UserNotifier
	eventPub  domain.EventPublisher
	cache     BidCacheWriter
	log       logger.Logger
}

func NewAutoBidService(
	tx domain.Transactor,
	repos domain.Repositories,
	locker domain.AuctionLocker,
	validator *BidValidator,
	notifier domain.UserNotifier,
	eventPub domain.EventPublisher,
	cache BidCacheWriter,
	log logger.Logger,
) *AutoBidService {
	return &AutoBidService{
		tx:        tx,
		repos:     repos,
		locker:    locker,
		validator: validator,
		notifier:  notifier,
		eventPub:  eventPub,
		cache:     cache,
		log:       log,
	}
}

// bidEffects collects what committed transactions produced so it can be
// pushed out once the lock is released.
type bidEffects struct {
	bids          []*domain.Bid
	notifications []*domain.BidNotification
}

func (e *bidEffects) merge(other *bidEffects) {
	if other == nil {
		return
	}
	e.bids = append(e.bids, other.bids...)
	e.notifications = append(e.notifications, other.notifications...)
}

func (s *AutoBidService) CreateAutoBidRule(ctx context.Context, req AutoBidRequest) (*domain.AutoBidRule, error) {
	if req.UserID == "" || req.AuctionID == "" {
		return nil, domain.Validation("userId and auctionId are required")
	}
	if !req.MaxBid.IsPositive() {
		return nil, domain.Validation("maxBid must be positive")
	}
	if !WholeCents(req.MaxBid) {
		return nil, domain.Validation("maxBid cannot have more than 2 decimal places")
	}
	if req.Strategy == "" {
		req.Strategy = domain.StrategyAggressive
	}
	if !req.Strategy.Valid() {
		return nil, domain.Validation("invalid strategy %q", req.Strategy)
	}
	if req.ActivationThreshold != nil && req.ActivationThreshold.IsNegative() {
		return nil, domain.Validation("activationThreshold must not be negative")
	}

	unlock, err := s.locker.Lock(ctx, req.AuctionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	auction, err := s.activeAuction(ctx, req.AuctionID)
	if err != nil {
		return nil, err
	}

	rule := &domain.AutoBidRule{
		ID:           utils.GenerateID("abr"),
		UserID:       req.UserID,
		AuctionID:    req.AuctionID,
		MaxBidAmount: req.MaxBid,
		Strategy:     req.Strategy,
		IsActive:     true,
	}
	if req.ActivationThreshold != nil {
		rule.ActivationThreshold = decimal.NullDecimal{Decimal: *req.ActivationThreshold, Valid: true}
	}
	if err := s.repos.Rules.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	s.log.Info("Auto-bid rule created", "auction_id", req.AuctionID, "user_id", req.UserID,
		"max_bid", req.MaxBid.String(), "strategy", string(req.Strategy))

	current := auction.CurrentBid
	if current.LessThan(req.MaxBid) && (req.ActivationThreshold == nil || current.GreaterThanOrEqual(*req.ActivationThreshold)) {
		effects, err := s.executeAutoBidStrategy(ctx, req.AuctionID)
		s.dispatch(ctx, effects)
		if err != nil {
			return nil, err
		}
	}

	return s.repos.Rules.GetRule(ctx, rule.ID)
}

func (s *AutoBidService) CreateProxyBid(ctx context.Context, userID, auctionID string, maximumBid decimal.Decimal) (*domain.ProxyBid, error) {
	if userID == "" || auctionID == "" {
		return nil, domain.Validation("userId and auctionId are required")
	}
	if !maximumBid.IsPositive() {
		return nil, domain.Validation("maximumBid must be positive")
	}
	if !WholeCents(maximumBid) {
		return nil, domain.Validation("maximumBid cannot have more than 2 decimal places")
	}

	unlock, err := s.locker.Lock(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.activeAuction(ctx, auctionID); err != nil {
		return nil, err
	}

	proxy := &domain.ProxyBid{
		ID:         utils.GenerateID("pxb"),
		UserID:     userID,
		AuctionID:  auctionID,
		MaximumBid: maximumBid,
		IsActive:   true,
	}
	if err := s.repos.Proxies.CreateProxyBid(ctx, proxy); err != nil {
		return nil, err
	}
	s.log.Info("Proxy bid created", "auction_id", auctionID, "user_id", userID, "maximum_bid", maximumBid.String())

	effects, err := s.executeProxyBidding(ctx, auctionID)
	s.dispatch(ctx, effects)
	if err != nil {
		return nil, err
	}

	return s.repos.Proxies.GetProxyBid(ctx, proxy.ID)
}

// PlaceBid accepts a manual bid and lets the automated bidders answer it.
func (s *AutoBidService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (*domain.Bid, error) {
	if bidderID == "" || auctionID == "" {
		return nil, domain.Validation("bidderId and auctionId are required")
	}

	unlock, err := s.locker.Lock(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	auction, err := s.repos.Auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateBid(auction, amount); err != nil {
		return nil, err
	}

	var bid *domain.Bid
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		bid, err = s.placeBidTx(ctx, auction, bidderID, amount, domain.BidManual)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Bid placed", "auction_id", auctionID, "user_id", bidderID, "amount", amount.String())

	effects := &bidEffects{bids: []*domain.Bid{bid}}
	more, err := s.handleNewBid(ctx, auctionID, bidderID, amount)
	effects.merge(more)
	s.dispatch(ctx, effects)
	if err != nil {
		s.log.Error("Automated bidding failed after manual bid", "auction_id", auctionID, "error", err)
	}
	return bid, nil
}

// HandleNewBid runs auto-bid rules, then proxy bids, then tells the manual
// bidder where they stand.
func (s *AutoBidService) HandleNewBid(ctx context.Context, auctionID, bidderID string, bidAmount decimal.Decimal) error {
	unlock, err := s.locker.Lock(ctx, auctionID)
	if err != nil {
		return err
	}
	defer unlock()

	effects, err := s.handleNewBid(ctx, auctionID, bidderID, bidAmount)
	s.dispatch(ctx, effects)
	return err
}

func (s *AutoBidService) ExecuteAutoBidStrategy(ctx context.Context, auctionID string) error {
	unlock, err := s.locker.Lock(ctx, auctionID)
	if err != nil {
		return err
	}
	defer unlock()

	effects, err := s.executeAutoBidStrategy(ctx, auctionID)
	s.dispatch(ctx, effects)
	return err
}

func (s *AutoBidService) ExecuteProxyBidding(ctx context.Context, auctionID string) error {
	unlock, err := s.locker.Lock(ctx, auctionID)
	if err != nil {
		return err
	}
	defer unlock()

	effects, err := s.executeProxyBidding(ctx, auctionID)
	s.dispatch(ctx, effects)
	return err
}

// DeactivateAutoBidsForAuction switches off every rule and proxy of the
// auction. It joins the caller's transaction when there is one.
func (s *AutoBidService) DeactivateAutoBidsForAuction(ctx context.Context, auctionID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		rules, err := s.repos.Rules.DeactivateForAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		proxies, err := s.repos.Proxies.DeactivateForAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		s.log.Info("Automated bidding deactivated", "auction_id", auctionID, "rules", rules, "proxies", proxies)
		return nil
	})
}

func (s *AutoBidService) handleNewBid(ctx context.Context, auctionID, bidderID string, bidAmount decimal.Decimal) (*bidEffects, error) {
	effects := &bidEffects{}

	auto, err := s.executeAutoBidStrategy(ctx, auctionID)
	effects.merge(auto)
	if err != nil {
		return effects, err
	}

	proxy, err := s.executeProxyBidding(ctx, auctionID)
	effects.merge(proxy)
	if err != nil {
		return effects, err
	}

	auction, err := s.repos.Auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return effects, err
	}

	var n *domain.BidNotification
	if auction.HighestBidderID == bidderID {
		n = newNotification(bidderID, auctionID, domain.NotifyWinning, bidAmount, nil)
	} else {
		n = newNotification(bidderID, auctionID, domain.NotifyOutbid, auction.CurrentBid, &bidAmount)
	}
	if err := s.repos.Notifications.CreateNotification(ctx, n); err != nil {
		return effects, err
	}
	effects.notifications = append(effects.notifications, n)
	return effects, nil
}

func (s *AutoBidService) executeAutoBidStrategy(ctx context.Context, auctionID string) (*bidEffects, error) {
	effects := &bidEffects{}

	auction, err := s.repos.Auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return effects, err
	}
	if auction.Status != domain.AuctionActive {
		return effects, nil
	}

	rules, err := s.repos.Rules.GetActiveRules(ctx, auctionID)
	if err != nil {
		return effects, err
	}

	for _, rule := range rules {
		var (
			bid *domain.Bid
			n   *domain.BidNotification
		)
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			// re-read so every rule sees the bid the previous one placed
			auction, err := s.repos.Auctions.GetAuction(ctx, auctionID)
			if err != nil {
				return err
			}
			if auction.Status != domain.AuctionActive {
				return nil
			}

			current := auction.CurrentBid
			if current.GreaterThanOrEqual(rule.MaxBidAmount) {
				s.log.Debug("Auto-bid rule exhausted", "rule_id", rule.ID, "auction_id", auctionID)
				return s.repos.Rules.DeactivateRule(ctx, rule.ID)
			}
			if rule.ActivationThreshold.Valid && current.LessThan(rule.ActivationThreshold.Decimal) {
				return nil
			}
			if auction.HighestBidderID == rule.UserID {
				return nil
			}

			amount := NextAutoBid(rule.Strategy, current, auction.BidIncrement, rule.MaxBidAmount)
			if amount.GreaterThan(rule.MaxBidAmount) || !amount.GreaterThan(current) {
				return nil
			}

			bid, err = s.placeBidTx(ctx, auction, rule.UserID, amount, domain.BidAutoBid)
			if err != nil {
				return err
			}
			if err := s.repos.Rules.RecordBid(ctx, rule.ID, amount); err != nil {
				return err
			}
			n = newNotification(rule.UserID, auctionID, domain.NotifyWinning, amount, nil)
			return s.repos.Notifications.CreateNotification(ctx, n)
		})
		if errors.Is(err, domain.ErrStaleBid) {
			s.log.Warn("Auto-bid lost a race, skipping rule", "rule_id", rule.ID, "auction_id", auctionID)
			continue
		}
		if err != nil {
			return effects, err
		}
		if bid != nil {
			s.log.Info("Auto-bid placed", "auction_id", auctionID, "user_id", rule.UserID,
				"amount", bid.Amount.String(), "strategy", string(rule.Strategy))
			effects.bids = append(effects.bids, bid)
			effects.notifications = append(effects.notifications, n)
		}
	}
	return effects, nil
}

func (s *AutoBidService) executeProxyBidding(ctx context.Context, auctionID string) (*bidEffects, error) {
	effects := &bidEffects{}
	var (
		bid     *domain.Bid
		winner  *domain.ProxyBid
		pending []*domain.BidNotification
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		auction, err := s.repos.Auctions.GetAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		if auction.Status != domain.AuctionActive {
			return nil
		}

		proxies, err := s.repos.Proxies.GetActiveProxyBids(ctx, auctionID)
		if err != nil {
			return err
		}

		current := auction.CurrentBid
		// proxies arrive highest maximum first, earliest created on ties
		for _, p := range proxies {
			if !p.MaximumBid.GreaterThan(current) {
				if err := s.repos.Proxies.DeactivateProxyBid(ctx, p.ID); err != nil {
					return err
				}
				continue
			}
			if winner == nil {
				winner = p
			}
		}
		if winner == nil || auction.HighestBidderID == winner.UserID {
			return nil
		}

		amount := NextProxyBid(current, auction.BidIncrement, winner.MaximumBid)
		bid, err = s.placeBidTx(ctx, auction, winner.UserID, amount, domain.BidProxyBid)
		if err != nil {
			return err
		}
		if err := s.repos.Proxies.CreateHistory(ctx, &domain.ProxyBidHistory{
			ID:            utils.GenerateID("pbh"),
			ProxyBidID:    winner.ID,
			BidAmount:     amount,
			CompetingBid:  current,
			AutoGenerated: true,
		}); err != nil {
			return err
		}
		if err := s.repos.Proxies.RecordBid(ctx, winner.ID, amount); err != nil {
			return err
		}

		bidders, err := s.repos.Bids.ListBidders(ctx, auctionID)
		if err != nil {
			return err
		}
		for _, b := range bidders {
			if b.BidderID == winner.UserID {
				continue
			}
			yours := b.HighestAmount
			n := newNotification(b.BidderID, auctionID, domain.NotifyOutbid, amount, &yours)
			if err := s.repos.Notifications.CreateNotification(ctx, n); err != nil {
				return err
			}
			pending = append(pending, n)
		}
		return nil
	})
	if errors.Is(err, domain.ErrStaleBid) {
		s.log.Warn("Proxy bid lost a race", "auction_id", auctionID)
		return effects, nil
	}
	if err != nil {
		return effects, err
	}

	if bid != nil {
		s.log.Info("Proxy bid placed", "auction_id", auctionID, "user_id", winner.UserID, "amount", bid.Amount.String())
		effects.bids = append(effects.bids, bid)
		effects.notifications = append(effects.notifications, pending...)
	}
	return effects, nil
}

// placeBidTx must run inside a transaction. It moves the auction to amount,
// supersedes the previous leader and records the new bid.
func (s *AutoBidService) placeBidTx(ctx context.Context, auction *domain.Auction, bidderID string, amount decimal.Decimal, bidType domain.BidType) (*domain.Bid, error) {
	if err := s.repos.Auctions.ApplyBid(ctx, auction.ID, auction.Version, bidderID, amount); err != nil {
		return nil, err
	}
	if err := s.repos.Bids.SupersedeActive(ctx, auction.ID); err != nil {
		return nil, err
	}

	bid := &domain.Bid{
		ID:        utils.GenerateID("bid"),
		AuctionID: auction.ID,
		BidderID:  bidderID,
		Amount:    amount,
		Type:      bidType,
		Status:    domain.BidActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repos.Bids.CreateBid(ctx, bid); err != nil {
		return nil, err
	}

	auction.CurrentBid = amount
	auction.HighestBidderID = bidderID
	auction.Version++
	return bid, nil
}

// dispatch pushes committed effects to the event bus, the cache and the
// users. Failures are logged; the bids are already durable.
func (s *AutoBidService) dispatch(ctx context.Context, effects *bidEffects) {
	if effects == nil {
		return
	}
	for _, bid := range effects.bids {
		if s.eventPub != nil {
			err := s.eventPub.PublishBidEvent(ctx, &domain.BidEvent{
				Type:      domain.BidAccepted,
				AuctionID: bid.AuctionID,
				UserID:    bid.BidderID,
				Amount:    bid.Amount,
				BidType:   bid.Type,
				Timestamp: bid.CreatedAt,
			})
			if err != nil {
				s.log.Warn("Failed to publish bid event", "auction_id", bid.AuctionID, "error", err)
			}
		}
		if s.cache != nil {
			s.cache.CacheAuctionBid(ctx, bid)
		}
	}
	if s.notifier == nil {
		return
	}
	for _, n := range effects.notifications {
		if err := s.notifier.NotifyUser(ctx, n.UserID, n); err != nil {
			s.log.Warn("Failed to push notification", "user_id", n.UserID, "error", err)
		}
	}
}

func (s *AutoBidService) activeAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	auction, err := s.repos.Auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.Status != domain.AuctionActive {
		return nil, domain.InvalidState("Auction is not active")
	}
	return auction, nil
}

func (s *AutoBidService) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	return s.repos.Auctions.GetAuction(ctx, auctionID)
}

func (s *AutoBidService) ListBids(ctx context.Context, auctionID string, limit int) ([]*domain.Bid, error) {
	if _, err := s.repos.Auctions.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.repos.Bids.ListBids(ctx, auctionID, limit)
}

func (s *AutoBidService) ListRules(ctx context.Context, auctionID string) ([]*domain.AutoBidRule, error) {
	return s.repos.Rules.ListRules(ctx, auctionID)
}

func (s *AutoBidService) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.BidNotification, error) {
	if userID == "" {
		return nil, domain.Validation("userId is required")
	}
	return s.repos.Notifications.ListNotifications(ctx, userID, unreadOnly, limit)
}

func (s *AutoBidService) MarkNotificationsRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if userID == "" {
		return 0, domain.Validation("userId is required")
	}
	return s.repos.Notifications.MarkRead(ctx, userID, ids)
}
