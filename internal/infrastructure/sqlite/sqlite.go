// Package sqlite opens the single-file store used for local development and
// tests. The repositories in the mysql package run unchanged against it.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure Go driver, no CGO
)

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// one writer; transactions hold the only connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	balance NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	counterparty_user_id TEXT NOT NULL DEFAULT '',
	card_id TEXT NOT NULL DEFAULT '',
	amount NUMERIC NOT NULL,
	currency TEXT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	description TEXT,
	payment_method TEXT NOT NULL DEFAULT '',
	payment_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at);
CREATE TABLE IF NOT EXISTS auctions (
	id TEXT PRIMARY KEY,
	seller_id TEXT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	starting_price NUMERIC NOT NULL,
	bid_increment NUMERIC NOT NULL,
	current_bid NUMERIC NOT NULL,
	highest_bidder_id TEXT NOT NULL DEFAULT '',
	version INTEGER NOT NULL DEFAULT 0,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_auctions_status ON auctions(status);
CREATE TABLE IF NOT EXISTS bids (
	id TEXT PRIMARY KEY,
	auction_id TEXT NOT NULL,
	bidder_id TEXT NOT NULL,
	amount NUMERIC NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bids_auction ON bids(auction_id, amount);
CREATE TABLE IF NOT EXISTS auto_bid_rules (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	auction_id TEXT NOT NULL,
	max_bid_amount NUMERIC NOT NULL,
	strategy TEXT NOT NULL,
	activation_threshold NUMERIC,
	is_active INTEGER NOT NULL DEFAULT 1,
	last_bid_amount NUMERIC,
	total_bids_placed INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (user_id, auction_id)
);
CREATE TABLE IF NOT EXISTS proxy_bids (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	auction_id TEXT NOT NULL,
	maximum_bid NUMERIC NOT NULL,
	current_proxy_bid NUMERIC,
	bids_placed INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (user_id, auction_id)
);
CREATE TABLE IF NOT EXISTS proxy_bid_history (
	id TEXT PRIMARY KEY,
	proxy_bid_id TEXT NOT NULL,
	bid_amount NUMERIC NOT NULL,
	competing_bid NUMERIC NOT NULL,
	auto_generated INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_proxy_bid_history_proxy ON proxy_bid_history(proxy_bid_id);
CREATE TABLE IF NOT EXISTS bid_notifications (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	auction_id TEXT NOT NULL,
	type TEXT NOT NULL,
	message TEXT NOT NULL,
	bid_amount NUMERIC NOT NULL,
	outbid_amount NUMERIC,
	is_read INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bid_notifications_user ON bid_notifications(user_id, created_at);
CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	project_type TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	requirements TEXT NOT NULL,
	timeline TEXT NOT NULL,
	estimated_cost NUMERIC NOT NULL,
	currency TEXT NOT NULL,
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	progress_percentage INTEGER NOT NULL DEFAULT 0,
	current_milestone TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at);
CREATE TABLE IF NOT EXISTS order_revisions (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	revision_number INTEGER NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE (order_id, revision_number)
);
CREATE TABLE IF NOT EXISTS order_communications (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	message_type TEXT NOT NULL,
	subject TEXT NOT NULL,
	message TEXT NOT NULL,
	is_from_admin INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_communications_order ON order_communications(order_id);
CREATE TABLE IF NOT EXISTS cards (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	rarity TEXT NOT NULL,
	power INTEGER NOT NULL DEFAULT 0,
	image_url TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_cards_owner ON cards(owner_id);
CREATE TABLE IF NOT EXISTS battles (
	id TEXT PRIMARY KEY,
	initiator_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	winner_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	state TEXT,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS listings (
	id TEXT PRIMARY KEY,
	card_id TEXT NOT NULL,
	seller_id TEXT NOT NULL,
	price NUMERIC NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status, created_at);
CREATE TABLE IF NOT EXISTS scheduled_jobs (
	id TEXT PRIMARY KEY,
	auction_id TEXT NOT NULL,
	job_type TEXT NOT NULL,
	run_at DATETIME NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scheduled_jobs_due ON scheduled_jobs(status, run_at);
CREATE TABLE IF NOT EXISTS bid_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	auction_id TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	amount NUMERIC NOT NULL,
	event_type TEXT NOT NULL,
	bid_type TEXT NOT NULL DEFAULT '',
	timestamp DATETIME NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bid_events_auction ON bid_events(auction_id, timestamp);
`
