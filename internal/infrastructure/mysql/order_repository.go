package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ece-marketplace/internal/domain"
)

type MySQLOrderRepository struct {
	store *Store
}

var _ domain.OrderRepository = (*MySQLOrderRepository)(nil)

func NewMySQLOrderRepository(store *Store) *MySQLOrderRepository {
	return &MySQLOrderRepository{store: store}
}

const orderColumns = `id, user_id, project_type, title, description, requirements, timeline,
        estimated_cost, currency, status, priority, progress_percentage, current_milestone,
        created_at, updated_at`

func (r *MySQLOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	order.CreatedAt = orNow(order.CreatedAt)
	order.UpdatedAt = order.CreatedAt

	requirements, err := json.Marshal(order.Requirements)
	if err != nil {
		return fmt.Errorf("encode requirements: %w", err)
	}

	query := `INSERT INTO orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.store.conn(ctx).ExecContext(ctx, query,
		order.ID, order.UserID, order.ProjectType, order.Title, order.Description, string(requirements),
		order.Timeline, order.EstimatedCost, order.Currency, string(order.Status), order.Priority,
		order.ProgressPercentage, order.CurrentMilestone, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *MySQLOrderRepository) GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	args := []interface{}{orderID}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}

	order, err := scanOrder(r.store.conn(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (r *MySQLOrderRepository) TransitionStatus(ctx context.Context, orderID string, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	query := `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status IN (` + placeholders(len(from)) + `)`
	args := []interface{}{string(to), nowUTC(), orderID}
	for _, s := range from {
		args = append(args, string(s))
	}
	res, err := r.store.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *MySQLOrderRepository) UpdateProgress(ctx context.Context, orderID string, status domain.OrderStatus, progress *int, milestone *string) error {
	query := `UPDATE orders SET status = ?, updated_at = ?`
	args := []interface{}{string(status), nowUTC()}
	if progress != nil {
		query += `, progress_percentage = ?`
		args = append(args, *progress)
	}
	if milestone != nil {
		query += `, current_milestone = ?`
		args = append(args, *milestone)
	}
	query += ` WHERE id = ?`
	args = append(args, orderID)

	res, err := r.store.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update order progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("order not found")
	}
	return nil
}

func (r *MySQLOrderRepository) ListOrders(ctx context.Context, userID string, status domain.OrderStatus, offset, limit int) ([]*domain.Order, int, error) {
	where := ` WHERE user_id = ?`
	args := []interface{}{userID}
	if status != "" {
		where += ` AND status = ?`
		args = append(args, string(status))
	}

	var total int
	if err := r.store.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	return orders, total, rows.Err()
}

func (r *MySQLOrderRepository) NextRevisionNumber(ctx context.Context, orderID string) (int, error) {
	var current sql.NullInt64
	query := `SELECT MAX(revision_number) FROM order_revisions WHERE order_id = ?`
	if err := r.store.conn(ctx).QueryRowContext(ctx, query, orderID).Scan(&current); err != nil {
		return 0, fmt.Errorf("next revision number: %w", err)
	}
	return int(current.Int64) + 1, nil
}

func (r *MySQLOrderRepository) CreateRevision(ctx context.Context, rev *domain.OrderRevision) error {
	rev.CreatedAt = orNow(rev.CreatedAt)
	query := `
        INSERT INTO order_revisions (id, order_id, user_id, revision_number, title, description, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		rev.ID, rev.OrderID, rev.UserID, rev.RevisionNumber, rev.Title, rev.Description, rev.Status, rev.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.AlreadyExists("revision %d already exists", rev.RevisionNumber)
		}
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

func (r *MySQLOrderRepository) ListRevisions(ctx context.Context, orderID string) ([]*domain.OrderRevision, error) {
	query := `
        SELECT id, order_id, user_id, revision_number, title, description, status, created_at
        FROM order_revisions WHERE order_id = ? ORDER BY revision_number ASC
    `
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revs []*domain.OrderRevision
	for rows.Next() {
		var rev domain.OrderRevision
		err := rows.Scan(&rev.ID, &rev.OrderID, &rev.UserID, &rev.RevisionNumber,
			&rev.Title, &rev.Description, &rev.Status, &rev.CreatedAt)
		if err != nil {
			return nil, err
		}
		revs = append(revs, &rev)
	}
	return revs, rows.Err()
}

func (r *MySQLOrderRepository) CreateCommunication(ctx context.Context, msg *domain.OrderCommunication) error {
	msg.CreatedAt = orNow(msg.CreatedAt)
	query := `
        INSERT INTO order_communications (id, order_id, user_id, message_type, subject, message, is_from_admin, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		msg.ID, msg.OrderID, msg.UserID, msg.MessageType, msg.Subject, msg.Message, msg.IsFromAdmin, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert communication: %w", err)
	}
	return nil
}

func (r *MySQLOrderRepository) ListCommunications(ctx context.Context, orderID string) ([]*domain.OrderCommunication, error) {
	query := `
        SELECT id, order_id, user_id, message_type, subject, message, is_from_admin, created_at
        FROM order_communications WHERE order_id = ? ORDER BY created_at ASC, id ASC
    `
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list communications: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.OrderCommunication
	for rows.Next() {
		var msg domain.OrderCommunication
		err := rows.Scan(&msg.ID, &msg.OrderID, &msg.UserID, &msg.MessageType,
			&msg.Subject, &msg.Message, &msg.IsFromAdmin, &msg.CreatedAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var status, requirements string
	err := row.Scan(&order.ID, &order.UserID, &order.ProjectType, &order.Title, &order.Description,
		&requirements, &order.Timeline, &order.EstimatedCost, &order.Currency, &status, &order.Priority,
		&order.ProgressPercentage, &order.CurrentMilestone, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatus(status)
	if requirements != "" {
		if err := json.Unmarshal([]byte(requirements), &order.Requirements); err != nil {
			return nil, fmt.Errorf("decode requirements: %w", err)
		}
	}
	return &order, nil
}
