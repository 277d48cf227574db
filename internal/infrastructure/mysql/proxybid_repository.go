package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ece-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

type MySQLProxyBidRepository struct {
	store *Store
}

var _ domain.ProxyBidRepository = (*MySQLProxyBidRepository)(nil)

func NewMySQLProxyBidRepository(store *Store) *MySQLProxyBidRepository {
	return &MySQLProxyBidRepository{store: store}
}

const proxyColumns = `id, user_id, auction_id, maximum_bid, current_proxy_bid, bids_placed,
        is_active, created_at, updated_at`

func (r *MySQLProxyBidRepository) CreateProxyBid(ctx context.Context, proxy *domain.ProxyBid) error {
	proxy.CreatedAt = orNow(proxy.CreatedAt)
	proxy.UpdatedAt = proxy.CreatedAt
	query := `INSERT INTO proxy_bids (` + proxyColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		proxy.ID, proxy.UserID, proxy.AuctionID, proxy.MaximumBid, proxy.CurrentProxyBid,
		proxy.BidsPlaced, proxy.IsActive, proxy.CreatedAt, proxy.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.AlreadyExists("proxy bid already exists for this auction")
		}
		return fmt.Errorf("insert proxy bid: %w", err)
	}
	return nil
}

func (r *MySQLProxyBidRepository) GetProxyBid(ctx context.Context, proxyID string) (*domain.ProxyBid, error) {
	query := `SELECT ` + proxyColumns + ` FROM proxy_bids WHERE id = ?`
	proxy, err := scanProxy(r.store.conn(ctx).QueryRowContext(ctx, query, proxyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("proxy bid %s not found", proxyID)
	}
	if err != nil {
		return nil, fmt.Errorf("get proxy bid: %w", err)
	}
	return proxy, nil
}

func (r *MySQLProxyBidRepository) GetActiveProxyBids(ctx context.Context, auctionID string) ([]*domain.ProxyBid, error) {
	query := `
        SELECT ` + proxyColumns + `
        FROM proxy_bids
        WHERE auction_id = ? AND is_active = 1
        ORDER BY maximum_bid DESC, created_at ASC, id ASC
    `
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list proxy bids: %w", err)
	}
	defer rows.Close()

	var proxies []*domain.ProxyBid
	for rows.Next() {
		proxy, err := scanProxy(rows)
		if err != nil {
			return nil, err
		}
		proxies = append(proxies, proxy)
	}
	return proxies, rows.Err()
}

func (r *MySQLProxyBidRepository) RecordBid(ctx context.Context, proxyID string, amount decimal.Decimal) error {
	query := `
        UPDATE proxy_bids
        SET current_proxy_bid = ?, bids_placed = bids_placed + 1, updated_at = ?
        WHERE id = ?
    `
	if _, err := r.store.conn(ctx).ExecContext(ctx, query, amount, nowUTC(), proxyID); err != nil {
		return fmt.Errorf("record proxy bid: %w", err)
	}
	return nil
}

func (r *MySQLProxyBidRepository) DeactivateProxyBid(ctx context.Context, proxyID string) error {
	query := `UPDATE proxy_bids SET is_active = 0, updated_at = ? WHERE id = ?`
	if _, err := r.store.conn(ctx).ExecContext(ctx, query, nowUTC(), proxyID); err != nil {
		return fmt.Errorf("deactivate proxy bid: %w", err)
	}
	return nil
}

func (r *MySQLProxyBidRepository) DeactivateForAuction(ctx context.Context, auctionID string) (int64, error) {
	query := `UPDATE proxy_bids SET is_active = 0, updated_at = ? WHERE auction_id = ? AND is_active = 1`
	res, err := r.store.conn(ctx).ExecContext(ctx, query, nowUTC(), auctionID)
	if err != nil {
		return 0, fmt.Errorf("deactivate proxy bids: %w", err)
	}
	return res.RowsAffected()
}

func (r *MySQLProxyBidRepository) CreateHistory(ctx context.Context, entry *domain.ProxyBidHistory) error {
	entry.CreatedAt = orNow(entry.CreatedAt)
	query := `
        INSERT INTO proxy_bid_history (id, proxy_bid_id, bid_amount, competing_bid, auto_generated, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		entry.ID, entry.ProxyBidID, entry.BidAmount, entry.CompetingBid, entry.AutoGenerated, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert proxy bid history: %w", err)
	}
	return nil
}

func (r *MySQLProxyBidRepository) ListHistory(ctx context.Context, proxyID string) ([]*domain.ProxyBidHistory, error) {
	query := `
        SELECT id, proxy_bid_id, bid_amount, competing_bid, auto_generated, created_at
        FROM proxy_bid_history
        WHERE proxy_bid_id = ?
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, proxyID)
	if err != nil {
		return nil, fmt.Errorf("list proxy bid history: %w", err)
	}
	defer rows.Close()

	var history []*domain.ProxyBidHistory
	for rows.Next() {
		var h domain.ProxyBidHistory
		if err := rows.Scan(&h.ID, &h.ProxyBidID, &h.BidAmount, &h.CompetingBid, &h.AutoGenerated, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}

func scanProxy(row rowScanner) (*domain.ProxyBid, error) {
	var proxy domain.ProxyBid
	err := row.Scan(&proxy.ID, &proxy.UserID, &proxy.AuctionID, &proxy.MaximumBid,
		&proxy.CurrentProxyBid, &proxy.BidsPlaced, &proxy.IsActive, &proxy.CreatedAt, &proxy.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &proxy, nil
}
