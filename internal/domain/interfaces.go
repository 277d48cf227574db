package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Transactor runs fn inside one database transaction. Repositories called
// with the ctx passed to fn join that transaction; nested calls reuse it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repository interfaces
type AuctionRepository interface {
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	// TransitionStatus moves the auction from one status to another and
	// reports false when it was not in the expected status.
	TransitionStatus(ctx context.Context, auctionID string, from, to AuctionStatus) (bool, error)
	GetActiveAuctions(ctx context.Context) ([]*Auction, error)
	// ApplyBid installs amount as the current bid when the auction is still
	// at expectedVersion, ACTIVE, and below amount. Otherwise ErrStaleBid.
	ApplyBid(ctx context.Context, auctionID string, expectedVersion int64, bidderID string, amount decimal.Decimal) error
}

type BidRepository interface {
	CreateBid(ctx context.Context, bid *Bid) error
	SupersedeActive(ctx context.Context, auctionID string) error
	GetHighestBid(ctx context.Context, auctionID string) (*Bid, error)
	ListBids(ctx context.Context, auctionID string, limit int) ([]*Bid, error)
	ListBidders(ctx context.Context, auctionID string) ([]*BidderSummary, error)
	// FinalizeBids closes every bid of the auction: with a winner the ACTIVE
	// bid becomes WON, everything else becomes LOST.
	FinalizeBids(ctx context.Context, auctionID string, withWinner bool) error
}

type AutoBidRuleRepository interface {
	CreateRule(ctx context.Context, rule *AutoBidRule) error
	GetRule(ctx context.Context, ruleID string) (*AutoBidRule, error)
	GetActiveRules(ctx context.Context, auctionID string) ([]*AutoBidRule, error)
	ListRules(ctx context.Context, auctionID string) ([]*AutoBidRule, error)
	RecordBid(ctx context.Context, ruleID string, amount decimal.Decimal) error
	DeactivateRule(ctx context.Context, ruleID string) error
	DeactivateForAuction(ctx context.Context, auctionID string) (int64, error)
}

type ProxyBidRepository interface {
	CreateProxyBid(ctx context.Context, proxy *ProxyBid) error
	GetProxyBid(ctx context.Context, proxyID string) (*ProxyBid, error)
	// GetActiveProxyBids orders by maximum bid descending, then creation.
	GetActiveProxyBids(ctx context.Context, auctionID string) ([]*ProxyBid, error)
	RecordBid(ctx context.Context, proxyID string, amount decimal.Decimal) error
	DeactivateProxyBid(ctx context.Context, proxyID string) error
	DeactivateForAuction(ctx context.Context, auctionID string) (int64, error)
	CreateHistory(ctx context.Context, entry *ProxyBidHistory) error
	ListHistory(ctx context.Context, proxyID string) ([]*ProxyBidHistory, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *BidNotification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*BidNotification, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
}

// UserRepository owns the balance column. Debit never lets it go negative.
type UserRepository interface {
	CreateUser(ctx context.Context, user *UserAccount) error
	GetUser(ctx context.Context, userID string) (*UserAccount, error)
	Credit(ctx context.Context, userID string, amount decimal.Decimal) error
	Debit(ctx context.Context, userID string, amount decimal.Decimal) error
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, int, error)
	UpdateStatus(ctx context.Context, transactionID, userID string, status TransactionStatus) (*Transaction, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *Order) error
	// GetOrder scopes the lookup to userID unless it is empty.
	GetOrder(ctx context.Context, orderID, userID string) (*Order, error)
	TransitionStatus(ctx context.Context, orderID string, from []OrderStatus, to OrderStatus) (bool, error)
	UpdateProgress(ctx context.Context, orderID string, status OrderStatus, progress *int, milestone *string) error
	ListOrders(ctx context.Context, userID string, status OrderStatus, offset, limit int) ([]*Order, int, error)
	NextRevisionNumber(ctx context.Context, orderID string) (int, error)
	CreateRevision(ctx context.Context, rev *OrderRevision) error
	ListRevisions(ctx context.Context, orderID string) ([]*OrderRevision, error)
	CreateCommunication(ctx context.Context, msg *OrderCommunication) error
	ListCommunications(ctx context.Context, orderID string) ([]*OrderCommunication, error)
}

// CatalogRepository serves the read models that sit behind the cache.
type CatalogRepository interface {
	GetCard(ctx context.Context, cardID string) (*Card, error)
	GetCardsByOwners(ctx context.Context, ownerIDs []string) ([]*Card, error)
	GetBattle(ctx context.Context, battleID string) (*Battle, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]*Listing, error)
	GetLeaderboard(ctx context.Context, boardType LeaderboardType, limit int) ([]*LeaderboardEntry, error)
}

type SchedulerRepository interface {
	CreateJob(ctx context.Context, job *ScheduledJob) error
	GetPendingJobs(ctx context.Context, before time.Time) ([]*ScheduledJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus) error
	CancelJobsForAuction(ctx context.Context, auctionID string) error
}

type BidEventRepository interface {
	SaveBidEvent(ctx context.Context, event *BidEvent) error
	GetBidEvents(ctx context.Context, auctionID string) ([]*BidEvent, error)
}

// Repositories bundles the stores a process wires into its services.
type Repositories struct {
	Auctions      AuctionRepository
	Bids          BidRepository
	Rules         AutoBidRuleRepository
	Proxies       ProxyBidRepository
	Notifications NotificationRepository
	Users         UserRepository
	Transactions  TransactionRepository
	Orders        OrderRepository
	Catalog       CatalogRepository
	Jobs          SchedulerRepository
	BidEvents     BidEventRepository
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Cache interfaces
type CacheError string

func (e CacheError) Error() string { return string(e) }

const ErrCacheMiss CacheError = "cache miss"

// CacheStore is the key/value surface the cache service needs. Keys are
// passed fully qualified; Get returns ErrCacheMiss for absent keys.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) (int64, error)
	PushCapped(ctx context.Context, key string, value []byte, max int64, ttl time.Duration) error
	Range(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	AddScored(ctx context.Context, key string, score float64, member []byte, ttl time.Duration) error
	TopScored(ctx context.Context, key string, limit int64) ([][]byte, error)
	Ping(ctx context.Context) error
}

// AuctionLocker serializes bid placement per auction across processes.
type AuctionLocker interface {
	Lock(ctx context.Context, auctionID string) (unlock func(), err error)
}

// Event interfaces
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

type EventSubscriber interface {
	SubscribeToBidEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *BidEvent) error

type NotificationSubscriber interface {
	SubscribeToNotifications(ctx context.Context, handler NotificationHandler) error
}

type NotificationHandler func(n *BidNotification) error

// Notification interfaces
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, message interface{}) error
}

type AuctionBroadcaster interface {
	BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// Scheduler interface
type AuctionScheduler interface {
	ScheduleAuctionStart(ctx context.Context, auctionID string, startTime time.Time) error
	ScheduleAuctionEnd(ctx context.Context, auctionID string, endTime time.Time) error
	CancelSchedule(ctx context.Context, auctionID string) error
	Start(ctx context.Context) error
	Stop() error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	AuctionID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, auctionID string, conn WebSocketConnection) error
	UnregisterConnection(userID, auctionID string) error
	GetConnectionsForAuction(auctionID string) []WebSocketConnection
	GetConnectionsForUser(userID string) []WebSocketConnection
	BroadcastToAuction(auctionID string, message interface{}) error
	NotifyUser(userID string, message interface{}) error
	CloseAndUnregisterConnections(auctionID string) error
}
