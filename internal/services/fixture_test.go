package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ece-marketplace/internal/domain"
	"ece-marketplace/internal/infrastructure/lock"
	"ece-marketplace/internal/infrastructure/mysql"
	infraredis "ece-marketplace/internal/infrastructure/redis"
	"ece-marketplace/internal/infrastructure/sqlite"
	"ece-marketplace/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.BidEvent
}

func (p *recordingPublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.BidEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.BidEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*domain.BidNotification
}

func (n *recordingNotifier) NotifyUser(ctx context.Context, userID string, message interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if bn, ok := message.(*domain.BidNotification); ok {
		n.sent = append(n.sent, bn)
	}
	return nil
}

func (n *recordingNotifier) forUser(userID string) []*domain.BidNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*domain.BidNotification
	for _, bn := range n.sent {
		if bn.UserID == userID {
			out = append(out, bn)
		}
	}
	return out
}

type fixture struct {
	ctx       context.Context
	store     *mysql.Store
	repos     domain.Repositories
	mr        *miniredis.Miniredis
	cache     *CacheService
	validator *BidValidator
	engine    *AutoBidService
	manager   *AuctionManager
	scheduler *CronAuctionScheduler
	ledger    *LedgerService
	orders    *OrderService
	publisher *recordingPublisher
	notifier  *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "marketplace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewNop()
	store := mysql.NewStore(db)
	repos := mysql.NewRepositories(store)
	cacheStore := infraredis.NewRedisCacheStore(client)

	f := &fixture{
		ctx:       ctx,
		store:     store,
		repos:     repos,
		mr:        mr,
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
	}
	f.cache = NewCacheService(cacheStore, repos.Catalog, repos.Bids, store, "ece:", log)
	f.validator = NewBidValidator(cacheStore, "ece:")
	require.NoError(t, f.validator.LoadRules(ctx))

	locker := lock.NewLocalAuctionLocker()
	f.engine = NewAutoBidService(store, repos, locker, f.validator, f.notifier, f.publisher, f.cache, log)
	f.manager = NewAuctionManager(store, repos, locker, f.engine, f.validator, f.publisher, f.notifier, f.cache, log)
	f.scheduler = NewCronAuctionScheduler(repos.Jobs, f.manager, nil, "test-instance", time.Minute, log)
	f.manager.SetScheduler(f.scheduler)

	f.ledger = NewLedgerService(store, repos.Users, repos.Transactions, log)
	f.orders = NewOrderService(store, repos.Users, repos.Orders, log)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) user(t *testing.T, id, balance string) {
	t.Helper()
	require.NoError(t, f.repos.Users.CreateUser(f.ctx, &domain.UserAccount{
		ID:       id,
		Username: id,
		Balance:  dec(balance),
	}))
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	b, err := f.ledger.GetBalance(f.ctx, id)
	require.NoError(t, err)
	return b
}

// activeAuction opens an auction at startingPrice with a fixed increment.
func (f *fixture) activeAuction(t *testing.T, startingPrice, increment string) *domain.Auction {
	t.Helper()
	auction, err := f.manager.CreateAuction(f.ctx, CreateAuctionRequest{
		SellerID:      "seller",
		Title:         "Holo dragon",
		StartingPrice: dec(startingPrice),
		BidIncrement:  dec(increment),
		EndTime:       time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, domain.AuctionActive, auction.Status)
	return auction
}

func (f *fixture) auction(t *testing.T, id string) *domain.Auction {
	t.Helper()
	a, err := f.repos.Auctions.GetAuction(f.ctx, id)
	require.NoError(t, err)
	return a
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
