package mysql

import (
	"context"
	"fmt"

	"ece-marketplace/internal/domain"
)

type MySQLNotificationRepository struct {
	store *Store
}

var _ domain.NotificationRepository = (*MySQLNotificationRepository)(nil)

func NewMySQLNotificationRepository(store *Store) *MySQLNotificationRepository {
	return &MySQLNotificationRepository{store: store}
}

func (r *MySQLNotificationRepository) CreateNotification(ctx context.Context, n *domain.BidNotification) error {
	n.CreatedAt = orNow(n.CreatedAt)
	query := `
        INSERT INTO bid_notifications (id, user_id, auction_id, type, message, bid_amount, outbid_amount, is_read, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		n.ID, n.UserID, n.AuctionID, string(n.Type), n.Message, n.BidAmount, n.OutbidAmount, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *MySQLNotificationRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.BidNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT id, user_id, auction_id, type, message, bid_amount, outbid_amount, is_read, created_at
        FROM bid_notifications
        WHERE user_id = ?`
	args := []interface{}{userID}
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.BidNotification
	for rows.Next() {
		var n domain.BidNotification
		var nType string
		err := rows.Scan(&n.ID, &n.UserID, &n.AuctionID, &nType, &n.Message,
			&n.BidAmount, &n.OutbidAmount, &n.Read, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		n.Type = domain.NotificationType(nType)
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *MySQLNotificationRepository) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE bid_notifications SET is_read = 1 WHERE user_id = ? AND id IN (` + placeholders(len(ids)) + `)`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := r.store.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return res.RowsAffected()
}
