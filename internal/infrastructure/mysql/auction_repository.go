package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ece-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

type MySQLAuctionRepository struct {
	store *Store
}

var _ domain.AuctionRepository = (*MySQLAuctionRepository)(nil)

func NewMySQLAuctionRepository(store *Store) *MySQLAuctionRepository {
	return &MySQLAuctionRepository{store: store}
}

const auctionColumns = `id, seller_id, title, status, starting_price, bid_increment, current_bid,
        highest_bidder_id, version, start_time, end_time, created_at, updated_at`

func (r *MySQLAuctionRepository) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	auction.CreatedAt = orNow(auction.CreatedAt)
	auction.UpdatedAt = auction.CreatedAt
	query := `
        INSERT INTO auctions (` + auctionColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		auction.ID, auction.SellerID, auction.Title, string(auction.Status),
		auction.StartingPrice, auction.BidIncrement, auction.CurrentBid,
		auction.HighestBidderID, auction.Version,
		auction.StartTime.UTC(), auction.EndTime.UTC(), auction.CreatedAt, auction.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert auction: %w", err)
	}
	return nil
}

func (r *MySQLAuctionRepository) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`

	auction, err := scanAuction(r.store.conn(ctx).QueryRowContext(ctx, query, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("auction %s not found", auctionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get auction: %w", err)
	}
	return auction, nil
}

func (r *MySQLAuctionRepository) TransitionStatus(ctx context.Context, auctionID string, from, to domain.AuctionStatus) (bool, error) {
	query := `UPDATE auctions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.store.conn(ctx).ExecContext(ctx, query, string(to), nowUTC(), auctionID, string(from))
	if err != nil {
		return false, fmt.Errorf("update auction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *MySQLAuctionRepository) GetActiveAuctions(ctx context.Context) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = ? ORDER BY end_time ASC`

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, string(domain.AuctionActive))
	if err != nil {
		return nil, fmt.Errorf("list active auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	return auctions, rows.Err()
}

func (r *MySQLAuctionRepository) ApplyBid(ctx context.Context, auctionID string, expectedVersion int64, bidderID string, amount decimal.Decimal) error {
	query := `
        UPDATE auctions
        SET current_bid = ?, highest_bidder_id = ?, version = version + 1, updated_at = ?
        WHERE id = ? AND version = ? AND status = ? AND current_bid < ?
    `
	res, err := r.store.conn(ctx).ExecContext(ctx, query,
		amount, bidderID, nowUTC(), auctionID, expectedVersion, string(domain.AuctionActive), amount)
	if err != nil {
		return fmt.Errorf("apply bid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrStaleBid
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	var status string

	err := row.Scan(&auction.ID, &auction.SellerID, &auction.Title, &status,
		&auction.StartingPrice, &auction.BidIncrement, &auction.CurrentBid,
		&auction.HighestBidderID, &auction.Version,
		&auction.StartTime, &auction.EndTime, &auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	auction.Status = domain.AuctionStatus(status)
	return &auction, nil
}
