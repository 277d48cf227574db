package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ece-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

type MySQLUserRepository struct {
	store *Store
}

var _ domain.UserRepository = (*MySQLUserRepository)(nil)

func NewMySQLUserRepository(store *Store) *MySQLUserRepository {
	return &MySQLUserRepository{store: store}
}

func (r *MySQLUserRepository) CreateUser(ctx context.Context, user *domain.UserAccount) error {
	user.CreatedAt = orNow(user.CreatedAt)
	user.UpdatedAt = user.CreatedAt
	query := `INSERT INTO users (id, username, balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		user.ID, user.Username, user.Balance, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.AlreadyExists("user %s already exists", user.ID)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *MySQLUserRepository) GetUser(ctx context.Context, userID string) (*domain.UserAccount, error) {
	query := `SELECT id, username, balance, created_at, updated_at FROM users WHERE id = ?`
	var user domain.UserAccount
	err := r.store.conn(ctx).QueryRowContext(ctx, query, userID).Scan(
		&user.ID, &user.Username, &user.Balance, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("user %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (r *MySQLUserRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	query := `UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ?`
	res, err := r.store.conn(ctx).ExecContext(ctx, query, amount, nowUTC(), userID)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("user %s not found", userID)
	}
	return nil
}

// Debit subtracts amount only when the balance covers it. The check and the
// write are one statement, so concurrent debits cannot overdraw.
func (r *MySQLUserRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	query := `UPDATE users SET balance = balance - ?, updated_at = ? WHERE id = ? AND balance >= ?`
	res, err := r.store.conn(ctx).ExecContext(ctx, query, amount, nowUTC(), userID, amount)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	user, err := r.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	return domain.InsufficientBalance("insufficient balance: required %s, available %s",
		amount.String(), user.Balance.String())
}
