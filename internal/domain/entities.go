package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const Currency = "ECE"

type Auction struct {
	ID              string          `json:"id"`
	SellerID        string          `json:"sellerId"`
	Title           string          `json:"title"`
	Status          AuctionStatus   `json:"status"`
	StartingPrice   decimal.Decimal `json:"startingPrice"`
	BidIncrement    decimal.Decimal `json:"bidIncrement"`
	CurrentBid      decimal.Decimal `json:"currentBid"`
	HighestBidderID string          `json:"highestBidderId,omitempty"`
	Version         int64           `json:"version"`
	StartTime       time.Time       `json:"startTime"`
	EndTime         time.Time       `json:"endTime"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// HasBids reports whether any bid has been accepted; before that CurrentBid
// equals the starting price.
func (a *Auction) HasBids() bool {
	return a.HighestBidderID != ""
}

type AuctionStatus string

const (
	AuctionPending   AuctionStatus = "PENDING"
	AuctionActive    AuctionStatus = "ACTIVE"
	AuctionEnded     AuctionStatus = "ENDED"
	AuctionCancelled AuctionStatus = "CANCELLED"
)

func (s AuctionStatus) String() string {
	return string(s)
}

type Bid struct {
	ID        string          `json:"id"`
	AuctionID string          `json:"auctionId"`
	BidderID  string          `json:"bidderId"`
	Amount    decimal.Decimal `json:"amount"`
	Type      BidType         `json:"type"`
	Status    BidStatus       `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// BidderSummary is one distinct bidder of an auction and their best bid.
type BidderSummary struct {
	BidderID      string
	HighestAmount decimal.Decimal
}

type BidType string

const (
	BidManual   BidType = "MANUAL"
	BidAutoBid  BidType = "AUTO_BID"
	BidProxyBid BidType = "PROXY_BID"
)

type BidStatus string

const (
	BidActive     BidStatus = "ACTIVE"
	BidSuperseded BidStatus = "SUPERSEDED"
	BidWon        BidStatus = "WON"
	BidLost       BidStatus = "LOST"
)

type AutoBidStrategy string

const (
	StrategyAggressive   AutoBidStrategy = "AGGRESSIVE"
	StrategyConservative AutoBidStrategy = "CONSERVATIVE"
	StrategySniper       AutoBidStrategy = "SNIPER"
	StrategyGradual      AutoBidStrategy = "GRADUAL"
)

func (s AutoBidStrategy) Valid() bool {
	switch s {
	case StrategyAggressive, StrategyConservative, StrategySniper, StrategyGradual:
		return true
	}
	return false
}

type AutoBidRule struct {
	ID                  string              `json:"id"`
	UserID              string              `json:"userId"`
	AuctionID           string              `json:"auctionId"`
	MaxBidAmount        decimal.Decimal     `json:"maxBidAmount"`
	Strategy            AutoBidStrategy     `json:"strategy"`
	ActivationThreshold decimal.NullDecimal `json:"activationThreshold"`
	IsActive            bool                `json:"isActive"`
	LastBidAmount       decimal.NullDecimal `json:"lastBidAmount"`
	TotalBidsPlaced     int                 `json:"totalBidsPlaced"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

type ProxyBid struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	AuctionID       string              `json:"auctionId"`
	MaximumBid      decimal.Decimal     `json:"maximumBid"`
	CurrentProxyBid decimal.NullDecimal `json:"currentProxyBid"`
	BidsPlaced      int                 `json:"bidsPlaced"`
	IsActive        bool                `json:"isActive"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type ProxyBidHistory struct {
	ID            string          `json:"id"`
	ProxyBidID    string          `json:"proxyBidId"`
	BidAmount     decimal.Decimal `json:"bidAmount"`
	CompetingBid  decimal.Decimal `json:"competingBid"`
	AutoGenerated bool            `json:"autoGenerated"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type NotificationType string

const (
	NotifyOutbid        NotificationType = "OUTBID"
	NotifyWinning       NotificationType = "WINNING"
	NotifyAuctionEnding NotificationType = "AUCTION_ENDING"
	NotifyAuctionEnded  NotificationType = "AUCTION_ENDED"
	NotifyNewBid        NotificationType = "NEW_BID"
)

type BidNotification struct {
	ID           string              `json:"id"`
	UserID       string              `json:"userId"`
	AuctionID    string              `json:"auctionId"`
	Type         NotificationType    `json:"type"`
	Message      string              `json:"message"`
	BidAmount    decimal.Decimal     `json:"bidAmount"`
	OutbidAmount decimal.NullDecimal `json:"outbidAmount"`
	Read         bool                `json:"read"`
	CreatedAt    time.Time           `json:"createdAt"`
}

type UserAccount struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type TransactionType string

const (
	TxDeposit    TransactionType = "DEPOSIT"
	TxWithdrawal TransactionType = "WITHDRAWAL"
	TxPurchase   TransactionType = "PURCHASE"
	TxSale       TransactionType = "SALE"
	TxTrade      TransactionType = "TRADE"
	TxReward     TransactionType = "REWARD"
	TxRefund     TransactionType = "REFUND"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxPurchase, TxSale, TxTrade, TxReward, TxRefund:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
	TxCanceled  TransactionStatus = "CANCELED"
	TxRefunded  TransactionStatus = "REFUNDED"
)

type Transaction struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"userId"`
	CounterpartyUserID string            `json:"counterpartyUserId,omitempty"`
	CardID             string            `json:"cardId,omitempty"`
	Amount             decimal.Decimal   `json:"amount"`
	Currency           string            `json:"currency"`
	Type               TransactionType   `json:"type"`
	Status             TransactionStatus `json:"status"`
	Description        string            `json:"description,omitempty"`
	PaymentMethod      string            `json:"paymentMethod,omitempty"`
	PaymentID          string            `json:"paymentId,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

type TransactionFilter struct {
	UserID string
	Type   TransactionType
	Offset int
	Limit  int
}

type OrderStatus string

const (
	OrderPending           OrderStatus = "PENDING"
	OrderApproved          OrderStatus = "APPROVED"
	OrderInProgress        OrderStatus = "IN_PROGRESS"
	OrderRevisionRequested OrderStatus = "REVISION_REQUESTED"
	OrderCompleted         OrderStatus = "COMPLETED"
	OrderDelivered         OrderStatus = "DELIVERED"
	OrderCancelled         OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderApproved, OrderInProgress, OrderRevisionRequested,
		OrderCompleted, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Cancellable reports whether escrowed funds may still be refunded.
func (s OrderStatus) Cancellable() bool {
	return s == OrderPending || s == OrderApproved
}

// Final reports whether the order accepts no further user actions.
func (s OrderStatus) Final() bool {
	return s == OrderCancelled || s == OrderCompleted || s == OrderDelivered
}

type Order struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"userId"`
	ProjectType        string            `json:"projectType"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Requirements       map[string]string `json:"requirements"`
	Timeline           string            `json:"timeline"`
	EstimatedCost      decimal.Decimal   `json:"estimatedCost"`
	Currency           string            `json:"currency"`
	Status             OrderStatus       `json:"status"`
	Priority           string            `json:"priority"`
	ProgressPercentage int               `json:"progressPercentage"`
	CurrentMilestone   string            `json:"currentMilestone,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

type OrderRevision struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	UserID         string    `json:"userId"`
	RevisionNumber int       `json:"revisionNumber"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

type OrderCommunication struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	MessageType string    `json:"messageType"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	IsFromAdmin bool      `json:"isFromAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Card struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	OwnerID  string `json:"ownerId"`
	Rarity   string `json:"rarity"`
	Power    int    `json:"power"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type Battle struct {
	ID          string          `json:"id"`
	InitiatorID string          `json:"initiatorId"`
	TargetID    string          `json:"targetId"`
	WinnerID    string          `json:"winnerId,omitempty"`
	Status      string          `json:"status"`
	State       json.RawMessage `json:"state,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// BattleState is the cached view of a battle; LastUpdated is epoch millis.
type BattleState struct {
	Battle      *Battle `json:"battle"`
	LastUpdated int64   `json:"lastUpdated"`
}

type BattleSnapshot struct {
	State     *Battle `json:"state"`
	Timestamp int64   `json:"timestamp"`
}

type Listing struct {
	ID        string          `json:"id"`
	CardID    string          `json:"cardId"`
	SellerID  string          `json:"sellerId"`
	Price     decimal.Decimal `json:"price"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ListingFilter struct {
	SellerID string           `json:"sellerId,omitempty"`
	CardID   string           `json:"cardId,omitempty"`
	MaxPrice *decimal.Decimal `json:"maxPrice,omitempty"`
}

type LeaderboardType string

const (
	LeaderboardBattle     LeaderboardType = "battle"
	LeaderboardTrading    LeaderboardType = "trading"
	LeaderboardCollection LeaderboardType = "collection"
)

func (t LeaderboardType) Valid() bool {
	return t == LeaderboardBattle || t == LeaderboardTrading || t == LeaderboardCollection
}

type LeaderboardEntry struct {
	UserID   string          `json:"userId"`
	Username string          `json:"username"`
	Score    decimal.Decimal `json:"score"`
	Count    int             `json:"count"`
}

type UserSession struct {
	UserID string            `json:"userId"`
	Data   map[string]string `json:"data"`
}

type BidEvent struct {
	Type      BidEventType    `json:"type"`
	AuctionID string          `json:"auctionId"`
	UserID    string          `json:"userId,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	BidType   BidType         `json:"bidType,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type BidEventType string

const (
	BidAccepted      BidEventType = "bid_accepted"
	AuctionStarted   BidEventType = "auction_started"
	AuctionClosed    BidEventType = "auction_ended"
	AuctionCancelEvt BidEventType = "auction_cancelled"
)

type ScheduledJob struct {
	ID        string
	AuctionID string
	JobType   JobType
	RunAt     time.Time
	Status    JobStatus
	CreatedAt time.Time
}

type JobType string

const (
	JobStartAuction JobType = "start_auction"
	JobEndAuction   JobType = "end_auction"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobExecuted  JobStatus = "executed"
	JobCancelled JobStatus = "cancelled"
)
