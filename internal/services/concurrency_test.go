package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"ece-marketplace/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestConcurrentBidsAreAcceptedInRisingOrder(t *testing.T) {
	f := newFixture(t)
	a := f.activeAuction(t, "100", "10")

	var (
		mu       sync.Mutex
		accepted []decimal.Decimal
	)
	var g errgroup.Group
	for i := 1; i <= 10; i++ {
		amount := decimal.NewFromInt(int64(100 + i*10))
		bidder := fmt.Sprintf("bidder_%d", i)
		g.Go(func() error {
			_, err := f.engine.PlaceBid(f.ctx, a.ID, bidder, amount)
			if errors.Is(err, domain.ErrValidation) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			accepted = append(accepted, amount)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.NotEmpty(t, accepted)

	// insertion order is the order the auction accepted them
	rows, err := f.store.DB().QueryContext(f.ctx, `SELECT amount FROM bids WHERE auction_id = ? ORDER BY rowid`, a.ID)
	require.NoError(t, err)
	defer rows.Close()
	var stored []decimal.Decimal
	for rows.Next() {
		var raw string
		require.NoError(t, rows.Scan(&raw))
		stored = append(stored, dec(raw))
	}
	require.NoError(t, rows.Err())
	require.Len(t, stored, len(accepted))

	for i := 1; i < len(stored); i++ {
		assert.True(t, stored[i].GreaterThanOrEqual(stored[i-1].Add(dec("10"))),
			"bid %s accepted after %s", stored[i], stored[i-1])
	}

	highest := decimal.Max(accepted[0], accepted[1:]...)
	final := f.auction(t, a.ID)
	requireDecimal(t, highest.String(), final.CurrentBid)
	requireDecimal(t, stored[len(stored)-1].String(), final.CurrentBid)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "100")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		short     int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Withdraw(f.ctx, "alice", dec("15"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientBalance):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, succeeded)
	assert.Equal(t, 14, short)
	requireDecimal(t, "10", f.balance(t, "alice"))
}

func TestConcurrentPurchasesNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "100")
	f.user(t, "shop", "0")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Purchase(f.ctx, "alice", "shop", dec("30"))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, domain.ErrInsufficientBalance), "got %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	requireDecimal(t, "10", f.balance(t, "alice"))
	requireDecimal(t, "90", f.balance(t, "shop"))
}
