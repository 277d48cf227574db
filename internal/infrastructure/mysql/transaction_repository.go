package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ece-marketplace/internal/domain"
)

type MySQLTransactionRepository struct {
	store *Store
}

var _ domain.TransactionRepository = (*MySQLTransactionRepository)(nil)

func NewMySQLTransactionRepository(store *Store) *MySQLTransactionRepository {
	return &MySQLTransactionRepository{store: store}
}

const transactionColumns = `id, user_id, counterparty_user_id, card_id, amount, currency, type, status,
        description, payment_method, payment_id, created_at, updated_at`

func (r *MySQLTransactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	tx.CreatedAt = orNow(tx.CreatedAt)
	tx.UpdatedAt = tx.CreatedAt
	query := `INSERT INTO transactions (` + transactionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.CounterpartyUserID, tx.CardID, tx.Amount, tx.Currency,
		string(tx.Type), string(tx.Status), tx.Description, tx.PaymentMethod, tx.PaymentID,
		tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListTransactions returns one page, newest first, plus the unpaged total.
func (r *MySQLTransactionRepository) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, int, error) {
	where := ` WHERE user_id = ?`
	args := []interface{}{filter.UserID}
	if filter.Type != "" {
		where += ` AND type = ?`
		args = append(args, string(filter.Type))
	}

	var total int
	if err := r.store.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		txs = append(txs, tx)
	}
	return txs, total, rows.Err()
}

func (r *MySQLTransactionRepository) UpdateStatus(ctx context.Context, transactionID, userID string, status domain.TransactionStatus) (*domain.Transaction, error) {
	query := `UPDATE transactions SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?`
	res, err := r.store.conn(ctx).ExecContext(ctx, query, string(status), nowUTC(), transactionID, userID)
	if err != nil {
		return nil, fmt.Errorf("update transaction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.NotFound("transaction not found")
	}

	row := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, transactionID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("transaction not found")
	}
	return tx, err
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var txType, status string
	var description sql.NullString
	err := row.Scan(&tx.ID, &tx.UserID, &tx.CounterpartyUserID, &tx.CardID, &tx.Amount, &tx.Currency,
		&txType, &status, &description, &tx.PaymentMethod, &tx.PaymentID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tx.Type = domain.TransactionType(txType)
	tx.Status = domain.TransactionStatus(status)
	tx.Description = description.String
	return &tx, nil
}
