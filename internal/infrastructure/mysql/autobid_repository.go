package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ece-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

type MySQLAutoBidRuleRepository struct {
	store *Store
}

var _ domain.AutoBidRuleRepository = (*MySQLAutoBidRuleRepository)(nil)

func NewMySQLAutoBidRuleRepository(store *Store) *MySQLAutoBidRuleRepository {
	return &MySQLAutoBidRuleRepository{store: store}
}

const ruleColumns = `id, user_id, auction_id, max_bid_amount, strategy, activation_threshold,
        is_active, last_bid_amount, total_bids_placed, created_at, updated_at`

func (r *MySQLAutoBidRuleRepository) CreateRule(ctx context.Context, rule *domain.AutoBidRule) error {
	rule.CreatedAt = orNow(rule.CreatedAt)
	rule.UpdatedAt = rule.CreatedAt
	query := `INSERT INTO auto_bid_rules (` + ruleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		rule.ID, rule.UserID, rule.AuctionID, rule.MaxBidAmount, string(rule.Strategy),
		rule.ActivationThreshold, rule.IsActive, rule.LastBidAmount, rule.TotalBidsPlaced,
		rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.AlreadyExists("auto-bid rule already exists for this auction")
		}
		return fmt.Errorf("insert auto-bid rule: %w", err)
	}
	return nil
}

func (r *MySQLAutoBidRuleRepository) GetRule(ctx context.Context, ruleID string) (*domain.AutoBidRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM auto_bid_rules WHERE id = ?`
	rule, err := scanRule(r.store.conn(ctx).QueryRowContext(ctx, query, ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("auto-bid rule %s not found", ruleID)
	}
	if err != nil {
		return nil, fmt.Errorf("get auto-bid rule: %w", err)
	}
	return rule, nil
}

// GetActiveRules returns active rules in creation order.
func (r *MySQLAutoBidRuleRepository) GetActiveRules(ctx context.Context, auctionID string) ([]*domain.AutoBidRule, error) {
	query := `
        SELECT ` + ruleColumns + `
        FROM auto_bid_rules
        WHERE auction_id = ? AND is_active = 1
        ORDER BY created_at ASC, id ASC
    `
	return r.queryRules(ctx, query, auctionID)
}

func (r *MySQLAutoBidRuleRepository) ListRules(ctx context.Context, auctionID string) ([]*domain.AutoBidRule, error) {
	query := `
        SELECT ` + ruleColumns + `
        FROM auto_bid_rules
        WHERE auction_id = ?
        ORDER BY created_at ASC, id ASC
    `
	return r.queryRules(ctx, query, auctionID)
}

func (r *MySQLAutoBidRuleRepository) RecordBid(ctx context.Context, ruleID string, amount decimal.Decimal) error {
	query := `
        UPDATE auto_bid_rules
        SET last_bid_amount = ?, total_bids_placed = total_bids_placed + 1, updated_at = ?
        WHERE id = ?
    `
	if _, err := r.store.conn(ctx).ExecContext(ctx, query, amount, nowUTC(), ruleID); err != nil {
		return fmt.Errorf("record auto-bid: %w", err)
	}
	return nil
}

func (r *MySQLAutoBidRuleRepository) DeactivateRule(ctx context.Context, ruleID string) error {
	query := `UPDATE auto_bid_rules SET is_active = 0, updated_at = ? WHERE id = ?`
	if _, err := r.store.conn(ctx).ExecContext(ctx, query, nowUTC(), ruleID); err != nil {
		return fmt.Errorf("deactivate auto-bid rule: %w", err)
	}
	return nil
}

func (r *MySQLAutoBidRuleRepository) DeactivateForAuction(ctx context.Context, auctionID string) (int64, error) {
	query := `UPDATE auto_bid_rules SET is_active = 0, updated_at = ? WHERE auction_id = ? AND is_active = 1`
	res, err := r.store.conn(ctx).ExecContext(ctx, query, nowUTC(), auctionID)
	if err != nil {
		return 0, fmt.Errorf("deactivate auto-bid rules: %w", err)
	}
	return res.RowsAffected()
}

func (r *MySQLAutoBidRuleRepository) queryRules(ctx context.Context, query string, args ...interface{}) ([]*domain.AutoBidRule, error) {
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list auto-bid rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.AutoBidRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(row rowScanner) (*domain.AutoBidRule, error) {
	var rule domain.AutoBidRule
	var strategy string
	err := row.Scan(&rule.ID, &rule.UserID, &rule.AuctionID, &rule.MaxBidAmount, &strategy,
		&rule.ActivationThreshold, &rule.IsActive, &rule.LastBidAmount, &rule.TotalBidsPlaced,
		&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rule.Strategy = domain.AutoBidStrategy(strategy)
	return &rule, nil
}
