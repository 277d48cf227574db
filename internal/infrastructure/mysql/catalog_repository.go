package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ece-marketplace/internal/domain"
)

// MySQLCatalogRepository reads cards, battles, listings and leaderboard
// aggregates. Nothing here writes; these are the sources behind the cache.
type MySQLCatalogRepository struct {
	store *Store
}

var _ domain.CatalogRepository = (*MySQLCatalogRepository)(nil)

func NewMySQLCatalogRepository(store *Store) *MySQLCatalogRepository {
	return &MySQLCatalogRepository{store: store}
}

const cardColumns = `id, name, owner_id, rarity, power, image_url`

func (r *MySQLCatalogRepository) GetCard(ctx context.Context, cardID string) (*domain.Card, error) {
	var card domain.Card
	err := r.store.conn(ctx).QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, cardID).Scan(
		&card.ID, &card.Name, &card.OwnerID, &card.Rarity, &card.Power, &card.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("card %s not found", cardID)
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return &card, nil
}

func (r *MySQLCatalogRepository) GetCardsByOwners(ctx context.Context, ownerIDs []string) ([]*domain.Card, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id IN (` + placeholders(len(ownerIDs)) + `) ORDER BY owner_id, power DESC, id`
	args := make([]interface{}, len(ownerIDs))
	for i, id := range ownerIDs {
		args[i] = id
	}

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		var card domain.Card
		if err := rows.Scan(&card.ID, &card.Name, &card.OwnerID, &card.Rarity, &card.Power, &card.ImageURL); err != nil {
			return nil, err
		}
		cards = append(cards, &card)
	}
	return cards, rows.Err()
}

func (r *MySQLCatalogRepository) GetBattle(ctx context.Context, battleID string) (*domain.Battle, error) {
	query := `SELECT id, initiator_id, target_id, winner_id, status, state, updated_at FROM battles WHERE id = ?`
	var battle domain.Battle
	var state sql.NullString
	err := r.store.conn(ctx).QueryRowContext(ctx, query, battleID).Scan(
		&battle.ID, &battle.InitiatorID, &battle.TargetID, &battle.WinnerID, &battle.Status, &state, &battle.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("battle %s not found", battleID)
	}
	if err != nil {
		return nil, fmt.Errorf("get battle: %w", err)
	}
	if state.Valid && state.String != "" {
		battle.State = json.RawMessage(state.String)
	}
	return &battle, nil
}

func (r *MySQLCatalogRepository) ListListings(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	query := `SELECT id, card_id, seller_id, price, status, created_at FROM listings WHERE status = 'ACTIVE'`
	var args []interface{}
	if filter.SellerID != "" {
		query += ` AND seller_id = ?`
		args = append(args, filter.SellerID)
	}
	if filter.CardID != "" {
		query += ` AND card_id = ?`
		args = append(args, filter.CardID)
	}
	if filter.MaxPrice != nil {
		query += ` AND price <= ?`
		args = append(args, *filter.MaxPrice)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 100`

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var listings []*domain.Listing
	for rows.Next() {
		var l domain.Listing
		if err := rows.Scan(&l.ID, &l.CardID, &l.SellerID, &l.Price, &l.Status, &l.CreatedAt); err != nil {
			return nil, err
		}
		listings = append(listings, &l)
	}
	return listings, rows.Err()
}

var leaderboardQueries = map[domain.LeaderboardType]string{
	domain.LeaderboardBattle: `
        SELECT u.id, u.username, COUNT(b.id) AS score, COUNT(b.id) AS cnt
        FROM battles b JOIN users u ON u.id = b.winner_id
        GROUP BY u.id, u.username
        ORDER BY score DESC, u.id ASC
        LIMIT ?`,
	domain.LeaderboardTrading: `
        SELECT u.id, u.username, SUM(t.amount) AS score, COUNT(t.id) AS cnt
        FROM transactions t JOIN users u ON u.id = t.user_id
        WHERE t.type IN ('SALE', 'TRADE') AND t.status = 'COMPLETED'
        GROUP BY u.id, u.username
        ORDER BY score DESC, u.id ASC
        LIMIT ?`,
	domain.LeaderboardCollection: `
        SELECT u.id, u.username, COUNT(c.id) AS score, COUNT(c.id) AS cnt
        FROM cards c JOIN users u ON u.id = c.owner_id
        GROUP BY u.id, u.username
        ORDER BY score DESC, u.id ASC
        LIMIT ?`,
}

func (r *MySQLCatalogRepository) GetLeaderboard(ctx context.Context, boardType domain.LeaderboardType, limit int) ([]*domain.LeaderboardEntry, error) {
	query, ok := leaderboardQueries[boardType]
	if !ok {
		return nil, domain.Validation("unknown leaderboard type %q", boardType)
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Score, &e.Count); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
