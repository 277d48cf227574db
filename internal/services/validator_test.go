package services

import (
	"errors"
	"testing"

	"ece-marketplace/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIncrementTiers(t *testing.T) {
	f := newFixture(t)

	requireDecimal(t, "5", f.validator.DefaultIncrement(dec("99.99")))
	requireDecimal(t, "10", f.validator.DefaultIncrement(dec("100")))
	requireDecimal(t, "10", f.validator.DefaultIncrement(dec("499")))
	requireDecimal(t, "25", f.validator.DefaultIncrement(dec("500")))

	// defaults were seeded for operators to edit
	assert.True(t, f.mr.Exists("ece:bid_increment_tiers"))
}

func TestLoadRulesPicksUpOperatorTiers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mr.Set("ece:bid_increment_tiers", `{"0-100":"1","100-500":"2","500+":"50"}`))

	require.NoError(t, f.validator.LoadRules(f.ctx))
	requireDecimal(t, "1", f.validator.DefaultIncrement(dec("20")))
	requireDecimal(t, "2", f.validator.DefaultIncrement(dec("200")))
	requireDecimal(t, "50", f.validator.DefaultIncrement(dec("2000")))

	require.NoError(t, f.mr.Set("ece:bid_increment_tiers", `not json`))
	assert.Error(t, f.validator.LoadRules(f.ctx))
	// a bad payload keeps the last good tiers
	requireDecimal(t, "1", f.validator.DefaultIncrement(dec("20")))
}

func TestValidateBid(t *testing.T) {
	v := NewBidValidator(nil, "ece:")
	open := &domain.Auction{
		Status:        domain.AuctionActive,
		StartingPrice: dec("100"),
		CurrentBid:    dec("100"),
		BidIncrement:  dec("10"),
	}
	withBids := *open
	withBids.CurrentBid = dec("130")
	withBids.HighestBidderID = "bob"
	ended := *open
	ended.Status = domain.AuctionEnded

	tests := []struct {
		name    string
		auction *domain.Auction
		amount  string
		want    error
	}{
		{"first bid above start", open, "100.01", nil},
		{"first bid at start", open, "100", domain.ErrValidation},
		{"negative", open, "-5", domain.ErrValidation},
		{"one increment above", &withBids, "140", nil},
		{"under one increment", &withBids, "139.99", domain.ErrValidation},
		{"ended auction", &ended, "500", domain.ErrInvalidState},
		{"whole cents", &withBids, "140.25", nil},
		{"fractional cents", &withBids, "140.001", domain.ErrValidation},
		{"fractional cents on first bid", open, "100.015", domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBid(tt.auction, dec(tt.amount))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	err := v.ValidateBid(&withBids, dec("135"))
	assert.EqualError(t, err, "Bid must be at least 140 ECE")
}
