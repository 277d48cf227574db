package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the MySQL DDL for every table the repositories touch.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(64) PRIMARY KEY,
		username VARCHAR(128) NOT NULL,
		balance DECIMAL(18,2) NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		CONSTRAINT chk_users_balance CHECK (balance >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		counterparty_user_id VARCHAR(64) NOT NULL DEFAULT '',
		card_id VARCHAR(64) NOT NULL DEFAULT '',
		amount DECIMAL(18,2) NOT NULL,
		currency VARCHAR(16) NOT NULL,
		type VARCHAR(32) NOT NULL,
		status VARCHAR(32) NOT NULL,
		description TEXT,
		payment_method VARCHAR(64) NOT NULL DEFAULT '',
		payment_id VARCHAR(128) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_transactions_user (user_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS auctions (
		id VARCHAR(64) PRIMARY KEY,
		seller_id VARCHAR(64) NOT NULL,
		title VARCHAR(255) NOT NULL,
		status VARCHAR(16) NOT NULL,
		starting_price DECIMAL(18,2) NOT NULL,
		bid_increment DECIMAL(18,2) NOT NULL,
		current_bid DECIMAL(18,2) NOT NULL,
		highest_bidder_id VARCHAR(64) NOT NULL DEFAULT '',
		version BIGINT NOT NULL DEFAULT 0,
		start_time DATETIME(6) NOT NULL,
		end_time DATETIME(6) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_auctions_status (status)
	)`,
	`CREATE TABLE IF NOT EXISTS bids (
		id VARCHAR(64) PRIMARY KEY,
		auction_id VARCHAR(64) NOT NULL,
		bidder_id VARCHAR(64) NOT NULL,
		amount DECIMAL(18,2) NOT NULL,
		type VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_bids_auction (auction_id, amount)
	)`,
	`CREATE TABLE IF NOT EXISTS auto_bid_rules (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		auction_id VARCHAR(64) NOT NULL,
		max_bid_amount DECIMAL(18,2) NOT NULL,
		strategy VARCHAR(16) NOT NULL,
		activation_threshold DECIMAL(18,2) NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		last_bid_amount DECIMAL(18,2) NULL,
		total_bids_placed INT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_auto_bid_rules_user_auction (user_id, auction_id)
	)`,
	`CREATE TABLE IF NOT EXISTS proxy_bids (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		auction_id VARCHAR(64) NOT NULL,
		maximum_bid DECIMAL(18,2) NOT NULL,
		current_proxy_bid DECIMAL(18,2) NULL,
		bids_placed INT NOT NULL DEFAULT 0,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_proxy_bids_user_auction (user_id, auction_id)
	)`,
	`CREATE TABLE IF NOT EXISTS proxy_bid_history (
		id VARCHAR(64) PRIMARY KEY,
		proxy_bid_id VARCHAR(64) NOT NULL,
		bid_amount DECIMAL(18,2) NOT NULL,
		competing_bid DECIMAL(18,2) NOT NULL,
		auto_generated TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_proxy_bid_history_proxy (proxy_bid_id)
	)`,
	`CREATE TABLE IF NOT EXISTS bid_notifications (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		auction_id VARCHAR(64) NOT NULL,
		type VARCHAR(32) NOT NULL,
		message TEXT NOT NULL,
		bid_amount DECIMAL(18,2) NOT NULL,
		outbid_amount DECIMAL(18,2) NULL,
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_bid_notifications_user (user_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		project_type VARCHAR(32) NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		requirements TEXT NOT NULL,
		timeline VARCHAR(32) NOT NULL,
		estimated_cost DECIMAL(18,2) NOT NULL,
		currency VARCHAR(16) NOT NULL,
		status VARCHAR(32) NOT NULL,
		priority VARCHAR(16) NOT NULL,
		progress_percentage INT NOT NULL DEFAULT 0,
		current_milestone VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_orders_user (user_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS order_revisions (
		id VARCHAR(64) PRIMARY KEY,
		order_id VARCHAR(64) NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		revision_number INT NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		status VARCHAR(32) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_order_revisions_number (order_id, revision_number)
	)`,
	`CREATE TABLE IF NOT EXISTS order_communications (
		id VARCHAR(64) PRIMARY KEY,
		order_id VARCHAR(64) NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		message_type VARCHAR(32) NOT NULL,
		subject VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		is_from_admin TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_order_communications_order (order_id)
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		owner_id VARCHAR(64) NOT NULL,
		rarity VARCHAR(32) NOT NULL,
		power INT NOT NULL DEFAULT 0,
		image_url VARCHAR(512) NOT NULL DEFAULT '',
		INDEX idx_cards_owner (owner_id)
	)`,
	`CREATE TABLE IF NOT EXISTS battles (
		id VARCHAR(64) PRIMARY KEY,
		initiator_id VARCHAR(64) NOT NULL,
		target_id VARCHAR(64) NOT NULL,
		winner_id VARCHAR(64) NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL,
		state TEXT,
		updated_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id VARCHAR(64) PRIMARY KEY,
		card_id VARCHAR(64) NOT NULL,
		seller_id VARCHAR(64) NOT NULL,
		price DECIMAL(18,2) NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_listings_status (status, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS scheduled_jobs (
		id VARCHAR(64) PRIMARY KEY,
		auction_id VARCHAR(64) NOT NULL,
		job_type VARCHAR(32) NOT NULL,
		run_at DATETIME(6) NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_scheduled_jobs_due (status, run_at)
	)`,
	`CREATE TABLE IF NOT EXISTS bid_events (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		auction_id VARCHAR(64) NOT NULL,
		user_id VARCHAR(64) NOT NULL DEFAULT '',
		amount DECIMAL(18,2) NOT NULL,
		event_type VARCHAR(32) NOT NULL,
		bid_type VARCHAR(16) NOT NULL DEFAULT '',
		timestamp DATETIME(6) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_bid_events_auction (auction_id, timestamp)
	)`,
}

// Migrate applies statements in order. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
