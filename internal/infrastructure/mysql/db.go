package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ece-marketplace/internal/domain"

	"github.com/go-sql-driver/mysql"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// Store hands repositories either the pool or the transaction carried by
// the context. The SQL it runs is shared by MySQL and SQLite.
type Store struct {
	db *sql.DB
}

var _ domain.Transactor = (*Store)(nil)
var _ domain.HealthChecker = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to MySQL with the given pool limits.
func Open(dsn string, maxOpen, maxIdle int, lifetime time.Duration) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) conn(ctx context.Context) queryer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return nowUTC()
	}
	return t.UTC()
}

// NewRepositories builds every repository on top of one store.
func NewRepositories(store *Store) domain.Repositories {
	return domain.Repositories{
		Auctions:      NewMySQLAuctionRepository(store),
		Bids:          NewMySQLBidRepository(store),
		Rules:         NewMySQLAutoBidRuleRepository(store),
		Proxies:       NewMySQLProxyBidRepository(store),
		Notifications: NewMySQLNotificationRepository(store),
		Users:         NewMySQLUserRepository(store),
		Transactions:  NewMySQLTransactionRepository(store),
		Orders:        NewMySQLOrderRepository(store),
		Catalog:       NewMySQLCatalogRepository(store),
		Jobs:          NewMySQLSchedulerRepository(store),
		BidEvents:     NewMySQLBidEventRepository(store),
	}
}
