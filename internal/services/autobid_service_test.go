package services

import (
	"errors"
	"testing"
	"time"

	"ece-marketplace/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoBidRuleAnswersManualBidsUntilCeiling(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	rule, err := f.engine.CreateAutoBidRule(f.ctx, AutoBidRequest{
		UserID:    "alice",
		AuctionID: a.ID,
		MaxBid:    dec("150"),
		Strategy:  domain.StrategyAggressive,
	})
	require.NoError(t, err)
	assert.True(t, rule.IsActive)
	assert.Equal(t, 1, rule.TotalBidsPlaced)
	requireDecimal(t, "110", f.auction(t, a.ID).CurrentBid)

	_, err = f.engine.PlaceBid(f.ctx, a.ID, "bob", dec("120"))
	require.NoError(t, err)
	current := f.auction(t, a.ID)
	requireDecimal(t, "130", current.CurrentBid)
	assert.Equal(t, "alice", current.HighestBidderID)

	bobNotes := f.notifier.forUser("bob")
	require.NotEmpty(t, bobNotes)
	assert.Equal(t, domain.NotifyOutbid, bobNotes[len(bobNotes)-1].Type)

	_, err = f.engine.PlaceBid(f.ctx, a.ID, "bob", dec("150"))
	require.NoError(t, err)
	current = f.auction(t, a.ID)
	requireDecimal(t, "150", current.CurrentBid)
	assert.Equal(t, "bob", current.HighestBidderID)

	rule, err = f.repos.Rules.GetRule(f.ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, rule.IsActive)
	assert.Equal(t, 2, rule.TotalBidsPlaced)

	bids, err := f.repos.Bids.ListBids(f.ctx, a.ID, 10)
	require.NoError(t, err)
	assert.Len(t, bids, 4)
}

func TestAutoBidRuleIsUniquePerUserAndAuction(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	req := AutoBidRequest{UserID: "alice", AuctionID: a.ID, MaxBid: dec("150")}
	_, err := f.engine.CreateAutoBidRule(f.ctx, req)
	require.NoError(t, err)

	_, err = f.engine.CreateAutoBidRule(f.ctx, req)
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
}

func TestAutoBidRuleValidation(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	_, err := f.engine.CreateAutoBidRule(f.ctx, AutoBidRequest{UserID: "alice", AuctionID: a.ID, MaxBid: dec("0")})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.engine.CreateAutoBidRule(f.ctx, AutoBidRequest{
		UserID: "alice", AuctionID: a.ID, MaxBid: dec("150"), Strategy: "YOLO",
	})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.engine.CreateAutoBidRule(f.ctx, AutoBidRequest{UserID: "alice", AuctionID: a.ID, MaxBid: dec("150.555")})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.engine.CreateProxyBid(f.ctx, "alice", a.ID, dec("150.001"))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	pending, err := f.manager.CreateAuction(f.ctx, CreateAuctionRequest{
		SellerID:      "seller",
		Title:         "Later",
		StartingPrice: dec("100"),
		StartTime:     time.Now().Add(time.Hour),
		EndTime:       time.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)
	_, err = f.engine.CreateAutoBidRule(f.ctx, AutoBidRequest{UserID: "alice", AuctionID: pending.ID, MaxBid: dec("150")})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestAutoBidRuleWaitsForActivationThreshold(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	threshold := dec("125")
	rule, err := f.engine.CreateAutoBidRule(f.ctx, AutoBidRequest{
		UserID:              "alice",
		AuctionID:           a.ID,
		MaxBid:              dec("200"),
		ActivationThreshold: &threshold,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rule.TotalBidsPlaced)
	requireDecimal(t, "100", f.auction(t, a.ID).CurrentBid)

	// 110 is still below the threshold
	_, err = f.engine.PlaceBid(f.ctx, a.ID, "bob", dec("110"))
	require.NoError(t, err)
	assert.Equal(t, "bob", f.auction(t, a.ID).HighestBidderID)

	_, err = f.engine.PlaceBid(f.ctx, a.ID, "bob", dec("130"))
	require.NoError(t, err)
	current := f.auction(t, a.ID)
	assert.Equal(t, "alice", current.HighestBidderID)
	requireDecimal(t, "140", current.CurrentBid)
}

func TestAutoBidRuleNeverOutbidsItsOwner(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	_, err := f.engine.PlaceBid(f.ctx, a.ID, "alice", dec("110"))
	require.NoError(t, err)

	_, err = f.engine.CreateAutoBidRule(f.ctx, AutoBidRequest{UserID: "alice", AuctionID: a.ID, MaxBid: dec("300")})
	require.NoError(t, err)

	current := f.auction(t, a.ID)
	requireDecimal(t, "110", current.CurrentBid)
	assert.Equal(t, "alice", current.HighestBidderID)
}

func TestCompetingRulesBidOncePerEvaluation(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	alice, err := f.engine.CreateAutoBidRule(f.ctx, AutoBidRequest{UserID: "alice", AuctionID: a.ID, MaxBid: dec("150")})
	require.NoError(t, err)
	bob, err := f.engine.CreateAutoBidRule(f.ctx, AutoBidRequest{UserID: "bob", AuctionID: a.ID, MaxBid: dec("130")})
	require.NoError(t, err)

	current := f.auction(t, a.ID)
	requireDecimal(t, "120", current.CurrentBid)
	assert.Equal(t, "bob", current.HighestBidderID)

	_, err = f.engine.PlaceBid(f.ctx, a.ID, "carol", dec("130"))
	require.NoError(t, err)

	current = f.auction(t, a.ID)
	requireDecimal(t, "140", current.CurrentBid)
	assert.Equal(t, "alice", current.HighestBidderID)

	bob, err = f.repos.Rules.GetRule(f.ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, bob.IsActive)
	alice, err = f.repos.Rules.GetRule(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, alice.IsActive)
}

func TestProxyBiddingPicksHighestMaximum(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	_, err := f.engine.PlaceBid(f.ctx, a.ID, "carol", dec("150"))
	require.NoError(t, err)

	low := &domain.ProxyBid{ID: "pxb_low", UserID: "erin", AuctionID: a.ID, MaximumBid: dec("180"), IsActive: true}
	high := &domain.ProxyBid{ID: "pxb_high", UserID: "frank", AuctionID: a.ID, MaximumBid: dec("200"), IsActive: true}
	require.NoError(t, f.repos.Proxies.CreateProxyBid(f.ctx, low))
	require.NoError(t, f.repos.Proxies.CreateProxyBid(f.ctx, high))

	require.NoError(t, f.engine.ExecuteProxyBidding(f.ctx, a.ID))

	current := f.auction(t, a.ID)
	requireDecimal(t, "160", current.CurrentBid)
	assert.Equal(t, "frank", current.HighestBidderID)

	history, err := f.repos.Proxies.ListHistory(f.ctx, high.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	requireDecimal(t, "160", history[0].BidAmount)
	requireDecimal(t, "150", history[0].CompetingBid)

	carolNotes := f.notifier.forUser("carol")
	require.NotEmpty(t, carolNotes)
	last := carolNotes[len(carolNotes)-1]
	assert.Equal(t, domain.NotifyOutbid, last.Type)
	requireDecimal(t, "160", last.BidAmount)
	require.True(t, last.OutbidAmount.Valid)
	requireDecimal(t, "150", last.OutbidAmount.Decimal)
}

func TestProxyBiddingTieGoesToEarliest(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	now := time.Now().UTC()
	require.NoError(t, f.repos.Proxies.CreateProxyBid(f.ctx, &domain.ProxyBid{
		ID: "pxb_late", UserID: "frank", AuctionID: a.ID, MaximumBid: dec("200"), IsActive: true, CreatedAt: now,
	}))
	require.NoError(t, f.repos.Proxies.CreateProxyBid(f.ctx, &domain.ProxyBid{
		ID: "pxb_early", UserID: "erin", AuctionID: a.ID, MaximumBid: dec("200"), IsActive: true, CreatedAt: now.Add(-time.Minute),
	}))

	require.NoError(t, f.engine.ExecuteProxyBidding(f.ctx, a.ID))
	assert.Equal(t, "erin", f.auction(t, a.ID).HighestBidderID)
}

func TestProxyBelowCurrentBidIsDeactivated(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	_, err := f.engine.PlaceBid(f.ctx, a.ID, "carol", dec("150"))
	require.NoError(t, err)

	proxy, err := f.engine.CreateProxyBid(f.ctx, "erin", a.ID, dec("140"))
	require.NoError(t, err)
	assert.False(t, proxy.IsActive)
	assert.Equal(t, "carol", f.auction(t, a.ID).HighestBidderID)
}

func TestManualBidFloor(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	_, err := f.engine.PlaceBid(f.ctx, a.ID, "bob", dec("100"))
	assert.True(t, errors.Is(err, domain.ErrValidation), "first bid must exceed the starting price")

	_, err = f.engine.PlaceBid(f.ctx, a.ID, "bob", dec("101"))
	require.NoError(t, err)

	_, err = f.engine.PlaceBid(f.ctx, a.ID, "carol", dec("105"))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.engine.PlaceBid(f.ctx, a.ID, "carol", dec("111"))
	require.NoError(t, err)

	_, err = f.engine.PlaceBid(f.ctx, "missing", "carol", dec("500"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAcceptedBidsArePublishedAndCached(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	bid, err := f.engine.PlaceBid(f.ctx, a.ID, "bob", dec("120"))
	require.NoError(t, err)
	assert.Equal(t, domain.BidManual, bid.Type)
	assert.Contains(t, f.publisher.types(), domain.BidAccepted)

	latest, err := f.cache.GetLatestBid(f.ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, bid.ID, latest.ID)
}
