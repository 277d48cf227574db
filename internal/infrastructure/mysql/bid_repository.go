package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ece-marketplace/internal/domain"
)

type MySQLBidRepository struct {
	store *Store
}

var _ domain.BidRepository = (*MySQLBidRepository)(nil)

func NewMySQLBidRepository(store *Store) *MySQLBidRepository {
	return &MySQLBidRepository{store: store}
}

const bidColumns = `id, auction_id, bidder_id, amount, type, status, created_at`

func (r *MySQLBidRepository) CreateBid(ctx context.Context, bid *domain.Bid) error {
	bid.CreatedAt = orNow(bid.CreatedAt)
	query := `INSERT INTO bids (` + bidColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount,
		string(bid.Type), string(bid.Status), bid.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bid: %w", err)
	}
	return nil
}

func (r *MySQLBidRepository) SupersedeActive(ctx context.Context, auctionID string) error {
	query := `UPDATE bids SET status = ? WHERE auction_id = ? AND status = ?`
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		string(domain.BidSuperseded), auctionID, string(domain.BidActive))
	if err != nil {
		return fmt.Errorf("supersede bids: %w", err)
	}
	return nil
}

func (r *MySQLBidRepository) GetHighestBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids WHERE auction_id = ?
        ORDER BY amount DESC, created_at ASC
        LIMIT 1
    `
	bid, err := scanBid(r.store.conn(ctx).QueryRowContext(ctx, query, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("auction %s has no bids", auctionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get highest bid: %w", err)
	}
	return bid, nil
}

// ListBids returns the newest bids first.
func (r *MySQLBidRepository) ListBids(ctx context.Context, auctionID string, limit int) ([]*domain.Bid, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT ` + bidColumns + `
        FROM bids WHERE auction_id = ?
        ORDER BY created_at DESC, amount DESC
        LIMIT ?
    `
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

func (r *MySQLBidRepository) ListBidders(ctx context.Context, auctionID string) ([]*domain.BidderSummary, error) {
	query := `
        SELECT bidder_id, MAX(amount)
        FROM bids WHERE auction_id = ?
        GROUP BY bidder_id
        ORDER BY bidder_id
    `
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bidders: %w", err)
	}
	defer rows.Close()

	var bidders []*domain.BidderSummary
	for rows.Next() {
		var b domain.BidderSummary
		if err := rows.Scan(&b.BidderID, &b.HighestAmount); err != nil {
			return nil, err
		}
		bidders = append(bidders, &b)
	}
	return bidders, rows.Err()
}

func (r *MySQLBidRepository) FinalizeBids(ctx context.Context, auctionID string, withWinner bool) error {
	query := `UPDATE bids SET status = ? WHERE auction_id = ?`
	args := []interface{}{string(domain.BidLost), auctionID}
	if withWinner {
		query = `
            UPDATE bids
            SET status = CASE WHEN status = ? THEN ? ELSE ? END
            WHERE auction_id = ?
        `
		args = []interface{}{string(domain.BidActive), string(domain.BidWon), string(domain.BidLost), auctionID}
	}
	if _, err := r.store.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("finalize bids: %w", err)
	}
	return nil
}

func scanBid(row rowScanner) (*domain.Bid, error) {
	var bid domain.Bid
	var bidType, status string
	err := row.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID, &bid.Amount,
		&bidType, &status, &bid.CreatedAt)
	if err != nil {
		return nil, err
	}
	bid.Type = domain.BidType(bidType)
	bid.Status = domain.BidStatus(status)
	return &bid, nil
}
