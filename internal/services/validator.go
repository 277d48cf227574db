package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"ece-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

// IncrementTiers maps a price band to the increment used when an auction is
// created without one.
type IncrementTiers struct {
	Under100 decimal.Decimal `json:"0-100"`
	Under500 decimal.Decimal `json:"100-500"`
	Above    decimal.Decimal `json:"500+"`
}

var defaultTiers = IncrementTiers{
	Under100: decimal.NewFromInt(5),
	Under500: decimal.NewFromInt(10),
	Above:    decimal.NewFromInt(25),
}

// BidValidator checks manual bids against an auction and hands out default
// increments. Tiers live in the cache so operators can tune them without a
// deploy.
type BidValidator struct {
	store  domain.CacheStore
	prefix string

	mu    sync.RWMutex
	tiers IncrementTiers
}

func NewBidValidator(store domain.CacheStore, prefix string) *BidValidator {
	return &BidValidator{store: store, prefix: prefix, tiers: defaultTiers}
}

func (v *BidValidator) LoadRules(ctx context.Context) error {
	if v.store == nil {
		return nil
	}
	key := v.prefix + "bid_increment_tiers"

	data, err := v.store.Get(ctx, key)
	if errors.Is(err, domain.ErrCacheMiss) {
		encoded, err := json.Marshal(defaultTiers)
		if err != nil {
			return err
		}
		return v.store.Set(ctx, key, encoded, 0)
	}
	if err != nil {
		return err
	}

	var tiers IncrementTiers
	if err := json.Unmarshal(data, &tiers); err != nil {
		return err
	}

	v.mu.Lock()
	v.tiers = tiers
	v.mu.Unlock()
	return nil
}

func (v *BidValidator) DefaultIncrement(price decimal.Decimal) decimal.Decimal {
	v.mu.RLock()
	defer v.mu.RUnlock()

	switch {
	case price.LessThan(decimal.NewFromInt(100)):
		return v.tiers.Under100
	case price.LessThan(decimal.NewFromInt(500)):
		return v.tiers.Under500
	default:
		return v.tiers.Above
	}
}

// WholeCents reports whether amount needs no more than two decimal places.
func WholeCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(AmountPlaces))
}

// ValidateBid enforces the manual bid floor: above the starting price for the
// first bid, at least one increment above the current bid afterwards.
func (v *BidValidator) ValidateBid(auction *domain.Auction, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.Validation("Bid amount must be positive")
	}
	if !WholeCents(amount) {
		return domain.Validation("Bid amount cannot have more than 2 decimal places")
	}
	if auction.Status != domain.AuctionActive {
		return domain.InvalidState("Auction is not active")
	}
	if !auction.HasBids() {
		if !amount.GreaterThan(auction.StartingPrice) {
			return domain.Validation("Bid must be greater than the starting price of %s %s",
				auction.StartingPrice.String(), domain.Currency)
		}
		return nil
	}
	minimum := auction.CurrentBid.Add(auction.BidIncrement)
	if amount.LessThan(minimum) {
		return domain.Validation("Bid must be at least %s %s", minimum.String(), domain.Currency)
	}
	return nil
}
