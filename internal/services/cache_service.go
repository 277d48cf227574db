package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// TTL classes.
const (
	HotTTL     = 60 * time.Second
	DefaultTTL = 300 * time.Second
	ColdTTL    = time.Hour

	CardTTL          = HotTTL
	BattleCardsTTL   = 30 * time.Minute
	BattleStateTTL   = DefaultTTL
	BattleHistoryTTL = 24 * time.Hour
	ListingsTTL      = 30 * time.Second
	LatestBidTTL     = 10 * time.Second
	BidHistoryTTL    = ColdTTL
	SessionTTL       = 30 * time.Minute
	LeaderboardTTL   = 5 * time.Minute

	// BattleFreshness bounds how old a cached battle state may be before a
	// read goes back to the store.
	BattleFreshness = 5 * time.Second

	BattleHistoryMax = 100
	BidHistoryMax    = 500
	LeaderboardSize  = 100
)

type HealthStatus struct {
	Database bool `json:"database"`
	Cache    bool `json:"cache"`
}

// CacheService fronts the catalog read models and the live auction data with
// Redis. Cache failures are logged and never fail a read.
type CacheService struct {
	store   domain.CacheStore
	catalog domain.CatalogRepository
	bids    domain.BidRepository
	db      domain.HealthChecker
	prefix  string
	log     logger.Logger
	now     func() time.Time
}

var _ BidCacheWriter = (*CacheService)(nil)

func NewCacheService(store domain.CacheStore, catalog domain.CatalogRepository, bids domain.BidRepository,
	db domain.HealthChecker, prefix string, log logger.Logger) *CacheService {
	return &CacheService{
		store:   store,
		catalog: catalog,
		bids:    bids,
		db:      db,
		prefix:  prefix,
		log:     log,
		now:     time.Now,
	}
}

func (c *CacheService) key(parts ...string) string {
	return c.prefix + strings.Join(parts, ":")
}

// getJSON reports whether key held a decodable value.
func (c *CacheService) getJSON(ctx context.Context, key string, dst interface{}) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.log.Warn("Cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.log.Warn("Cache entry undecodable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CacheService) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("Cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		c.log.Warn("Cache write failed", "key", key, "error", err)
	}
}

func (c *CacheService) invalidate(ctx context.Context, patterns ...string) error {
	for _, pattern := range patterns {
		n, err := c.store.DeletePattern(ctx, pattern)
		if err != nil {
			return err
		}
		c.log.Debug("Cache invalidated", "pattern", pattern, "keys", n)
	}
	return nil
}

// Cards

func (c *CacheService) GetCard(ctx context.Context, cardID string, useCache bool) (*domain.Card, error) {
	key := c.key("card", cardID)
	if useCache {
		var card domain.Card
		if c.getJSON(ctx, key, &card) {
			return &card, nil
		}
	}

	card, err := c.catalog.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	c.setJSON(ctx, key, card, CardTTL)
	return card, nil
}

func (c *CacheService) CacheCard(ctx context.Context, card *domain.Card) {
	c.setJSON(ctx, c.key("card", card.ID), card, CardTTL)
}

// InvalidateCard drops the card entry and anything namespaced under it,
// leaving cards whose ids merely share a prefix alone.
func (c *CacheService) InvalidateCard(ctx context.Context, cardID string) error {
	key := c.key("card", cardID)
	if err := c.store.Delete(ctx, key); err != nil {
		return err
	}
	return c.invalidate(ctx, key+":*")
}

func (c *CacheService) GetCardsForBattle(ctx context.Context, playerIDs []string) ([]*domain.Card, error) {
	ids := append([]string(nil), playerIDs...)
	sort.Strings(ids)
	key := c.key("battle", "cards", strings.Join(ids, ","))

	var cards []*domain.Card
	if c.getJSON(ctx, key, &cards) {
		return cards, nil
	}

	cards, err := c.catalog.GetCardsByOwners(ctx, ids)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []*domain.Card{}
	}
	c.setJSON(ctx, key, cards, BattleCardsTTL)
	return cards, nil
}

// Battles

// CacheBattleState stores the current state and prepends a snapshot to the
// capped replay history.
func (c *CacheService) CacheBattleState(ctx context.Context, battle *domain.Battle) {
	now := c.now().UnixMilli()
	c.setJSON(ctx, c.key("battle", "state", battle.ID), &domain.BattleState{
		Battle:      battle,
		LastUpdated: now,
	}, BattleStateTTL)

	snapshot, err := json.Marshal(&domain.BattleSnapshot{State: battle, Timestamp: now})
	if err != nil {
		c.log.Warn("Cache encode failed", "battle_id", battle.ID, "error", err)
		return
	}
	historyKey := c.key("battle", "history", battle.ID)
	if err := c.store.PushCapped(ctx, historyKey, snapshot, BattleHistoryMax, BattleHistoryTTL); err != nil {
		c.log.Warn("Cache write failed", "key", historyKey, "error", err)
	}
}

// GetBattleState trusts a cached state only while it is fresher than
// BattleFreshness; older entries are reloaded from the store.
func (c *CacheService) GetBattleState(ctx context.Context, battleID string) (*domain.Battle, error) {
	var state domain.BattleState
	if c.getJSON(ctx, c.key("battle", "state", battleID), &state) && state.Battle != nil {
		age := c.now().UnixMilli() - state.LastUpdated
		if age < BattleFreshness.Milliseconds() {
			return state.Battle, nil
		}
	}

	battle, err := c.catalog.GetBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	c.CacheBattleState(ctx, battle)
	return battle, nil
}

// GetBattleHistory returns replay snapshots, newest first.
func (c *CacheService) GetBattleHistory(ctx context.Context, battleID string, limit int) ([]*domain.BattleSnapshot, error) {
	if limit <= 0 || limit > BattleHistoryMax {
		limit = BattleHistoryMax
	}
	raw, err := c.store.Range(ctx, c.key("battle", "history", battleID), 0, int64(limit-1))
	if err != nil {
		return nil, err
	}

	snapshots := make([]*domain.BattleSnapshot, 0, len(raw))
	for _, entry := range raw {
		var snap domain.BattleSnapshot
		if err := json.Unmarshal(entry, &snap); err != nil {
			c.log.Warn("Skipping undecodable battle snapshot", "battle_id", battleID, "error", err)
			continue
		}
		snapshots = append(snapshots, &snap)
	}
	return snapshots, nil
}

func (c *CacheService) InvalidateBattle(ctx context.Context, battleID string) error {
	return c.invalidate(ctx,
		c.key("battle", "state", battleID)+"*",
		c.key("battle", "history", battleID)+"*",
	)
}

// Marketplace

func (c *CacheService) GetMarketplaceListings(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	encoded, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}
	key := c.key("marketplace", "listings", string(encoded))

	var listings []*domain.Listing
	if c.getJSON(ctx, key, &listings) {
		return listings, nil
	}

	listings, err = c.catalog.ListListings(ctx, filter)
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []*domain.Listing{}
	}
	c.setJSON(ctx, key, listings, ListingsTTL)
	return listings, nil
}

func (c *CacheService) InvalidateMarketplace(ctx context.Context) error {
	return c.invalidate(ctx, c.key("marketplace")+":*")
}

// Auctions

// CacheAuctionBid writes the latest bid. The bid joins the amount-ordered
// history set only while that set holds the auction's full history;
// otherwise the next read rebuilds it from the store.
func (c *CacheService) CacheAuctionBid(ctx context.Context, bid *domain.Bid) {
	base := c.key("auction", "bids", bid.AuctionID)
	c.setJSON(ctx, base+":latest", bid, LatestBidTTL)

	if !c.bidHistoryComplete(ctx, bid.AuctionID) {
		return
	}
	data, err := json.Marshal(bid)
	if err != nil {
		c.log.Warn("Cache encode failed", "auction_id", bid.AuctionID, "error", err)
		return
	}
	if err := c.store.AddScored(ctx, base+":history", bid.Amount.InexactFloat64(), data, BidHistoryTTL); err != nil {
		c.log.Warn("Cache write failed", "key", base+":history", "error", err)
	}
}

func (c *CacheService) bidHistoryMarker(auctionID string) string {
	return c.key("auction", "bids", auctionID, "history", "complete")
}

func (c *CacheService) bidHistoryComplete(ctx context.Context, auctionID string) bool {
	key := c.bidHistoryMarker(auctionID)
	if _, err := c.store.Get(ctx, key); err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.log.Warn("Cache read failed", "key", key, "error", err)
		}
		return false
	}
	return true
}

// GetLatestBid returns nil when the auction has no bids.
func (c *CacheService) GetLatestBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	var bid domain.Bid
	if c.getJSON(ctx, c.key("auction", "bids", auctionID, "latest"), &bid) {
		return &bid, nil
	}

	latest, err := c.bids.GetHighestBid(ctx, auctionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.CacheAuctionBid(ctx, latest)
	return latest, nil
}

// GetBidHistory returns bids highest amount first. The cached set is only
// trusted once a fill has marked it complete; a fill loads the newest
// BidHistoryMax bids, which are also the highest since accepted bids rise.
func (c *CacheService) GetBidHistory(ctx context.Context, auctionID string, limit int) ([]*domain.Bid, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > BidHistoryMax {
		limit = BidHistoryMax
	}
	key := c.key("auction", "bids", auctionID, "history")

	if c.bidHistoryComplete(ctx, auctionID) {
		raw, err := c.store.TopScored(ctx, key, int64(limit))
		if err == nil {
			bids := make([]*domain.Bid, 0, len(raw))
			for _, entry := range raw {
				var bid domain.Bid
				if err := json.Unmarshal(entry, &bid); err != nil {
					continue
				}
				bids = append(bids, &bid)
			}
			return bids, nil
		}
		c.log.Warn("Cache read failed", "key", key, "error", err)
	}

	bids, err := c.bids.ListBids(ctx, auctionID, BidHistoryMax)
	if err != nil {
		return nil, err
	}
	c.fillBidHistory(ctx, auctionID, bids)

	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Amount.GreaterThan(bids[j].Amount) })
	if len(bids) > limit {
		bids = bids[:limit]
	}
	if bids == nil {
		bids = []*domain.Bid{}
	}
	return bids, nil
}

// fillBidHistory marks the set complete only after every bid landed.
func (c *CacheService) fillBidHistory(ctx context.Context, auctionID string, bids []*domain.Bid) {
	key := c.key("auction", "bids", auctionID, "history")
	for _, bid := range bids {
		data, err := json.Marshal(bid)
		if err != nil {
			c.log.Warn("Cache encode failed", "auction_id", auctionID, "error", err)
			return
		}
		if err := c.store.AddScored(ctx, key, bid.Amount.InexactFloat64(), data, BidHistoryTTL); err != nil {
			c.log.Warn("Cache write failed", "key", key, "error", err)
			return
		}
	}
	marker := c.bidHistoryMarker(auctionID)
	if err := c.store.Set(ctx, marker, []byte("1"), BidHistoryTTL); err != nil {
		c.log.Warn("Cache write failed", "key", marker, "error", err)
	}
}

func (c *CacheService) InvalidateAuctionBids(ctx context.Context, auctionID string) error {
	return c.invalidate(ctx, c.key("auction", "bids", auctionID)+":*")
}

// Sessions

func (c *CacheService) CacheUserSession(ctx context.Context, session *domain.UserSession) {
	c.setJSON(ctx, c.key("session", session.UserID), session, SessionTTL)
}

// GetUserSession has no backing store; a miss is NotFound.
func (c *CacheService) GetUserSession(ctx context.Context, userID string) (*domain.UserSession, error) {
	var session domain.UserSession
	if c.getJSON(ctx, c.key("session", userID), &session) {
		return &session, nil
	}
	return nil, domain.NotFound("session not found")
}

// Leaderboards

func (c *CacheService) GetLeaderboard(ctx context.Context, boardType domain.LeaderboardType) ([]*domain.LeaderboardEntry, error) {
	if !boardType.Valid() {
		return nil, domain.Validation("Invalid leaderboard type")
	}
	var entries []*domain.LeaderboardEntry
	if c.getJSON(ctx, c.key("leaderboard", string(boardType)), &entries) {
		return entries, nil
	}
	return c.RefreshLeaderboard(ctx, boardType)
}

// RefreshLeaderboard recomputes a board from the store and caches it.
func (c *CacheService) RefreshLeaderboard(ctx context.Context, boardType domain.LeaderboardType) ([]*domain.LeaderboardEntry, error) {
	entries, err := c.catalog.GetLeaderboard(ctx, boardType, LeaderboardSize)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*domain.LeaderboardEntry{}
	}
	c.CacheLeaderboard(ctx, boardType, entries)
	return entries, nil
}

func (c *CacheService) CacheLeaderboard(ctx context.Context, boardType domain.LeaderboardType, entries []*domain.LeaderboardEntry) {
	c.setJSON(ctx, c.key("leaderboard", string(boardType)), entries, LeaderboardTTL)
}

// InvalidateLeaderboard drops one board, or all of them for an empty type.
func (c *CacheService) InvalidateLeaderboard(ctx context.Context, boardType domain.LeaderboardType) error {
	if boardType == "" {
		return c.invalidate(ctx, c.key("leaderboard")+":*")
	}
	return c.invalidate(ctx, c.key("leaderboard", string(boardType))+"*")
}

// PreloadBattleData warms the battle state, the players' cards and their
// sessions concurrently.
func (c *CacheService) PreloadBattleData(ctx context.Context, battleID string, playerIDs []string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := c.GetBattleState(ctx, battleID)
		return err
	})
	g.Go(func() error {
		_, err := c.GetCardsForBattle(ctx, playerIDs)
		return err
	})
	for _, id := range playerIDs {
		id := id
		g.Go(func() error {
			_, err := c.GetUserSession(ctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// HealthCheck probes the database and the cache independently.
func (c *CacheService) HealthCheck(ctx context.Context) HealthStatus {
	var status HealthStatus
	if c.db != nil {
		if err := c.db.Ping(ctx); err != nil {
			c.log.Warn("Database health check failed", "error", err)
		} else {
			status.Database = true
		}
	}
	if err := c.store.Ping(ctx); err != nil {
		c.log.Warn("Cache health check failed", "error", err)
	} else {
		status.Cache = true
	}
	return status
}
