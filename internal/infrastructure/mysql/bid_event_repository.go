package mysql

import (
	"context"
	"fmt"

	"ece-marketplace/internal/domain"
)

// MySQLBidEventRepository stores the audit trail written by analytics.
type MySQLBidEventRepository struct {
	store *Store
}

var _ domain.BidEventRepository = (*MySQLBidEventRepository)(nil)

func NewMySQLBidEventRepository(store *Store) *MySQLBidEventRepository {
	return &MySQLBidEventRepository{store: store}
}

func (r *MySQLBidEventRepository) SaveBidEvent(ctx context.Context, event *domain.BidEvent) error {
	query := `
        INSERT INTO bid_events (auction_id, user_id, amount, event_type, bid_type, timestamp, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		event.AuctionID, event.UserID, event.Amount,
		string(event.Type), string(event.BidType), orNow(event.Timestamp), nowUTC())
	if err != nil {
		return fmt.Errorf("insert bid event: %w", err)
	}
	return nil
}

func (r *MySQLBidEventRepository) GetBidEvents(ctx context.Context, auctionID string) ([]*domain.BidEvent, error) {
	query := `
        SELECT auction_id, user_id, amount, event_type, bid_type, timestamp
        FROM bid_events
        WHERE auction_id = ?
        ORDER BY timestamp ASC, id ASC
    `

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bid events: %w", err)
	}
	defer rows.Close()

	var events []*domain.BidEvent
	for rows.Next() {
		var event domain.BidEvent
		var eventType, bidType string

		err := rows.Scan(&event.AuctionID, &event.UserID, &event.Amount,
			&eventType, &bidType, &event.Timestamp)
		if err != nil {
			return nil, err
		}

		event.Type = domain.BidEventType(eventType)
		event.BidType = domain.BidType(bidType)
		events = append(events, &event)
	}

	return events, rows.Err()
}
