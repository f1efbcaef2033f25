// Package dbtest opens throwaway in-memory sqlite databases carrying the sell
// schema so repository tests can run without Postgres.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Schema mirrors the goose migrations closely enough for sqlite. jsonb columns
// become TEXT and uuid columns become TEXT.
var Schema = []string{
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL,
		name TEXT NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE product_variants (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		label TEXT NOT NULL,
		base_price INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE sell_questions (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL,
		section TEXT NOT NULL DEFAULT '',
		key TEXT NOT NULL,
		title TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		ui_type TEXT NOT NULL DEFAULT 'radio',
		multi_select BOOLEAN NOT NULL DEFAULT 0,
		options TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE sell_defects (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL,
		key TEXT NOT NULL,
		title TEXT NOT NULL,
		delta TEXT,
		severity TEXT NOT NULL DEFAULT 'minor',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE sell_accessories (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL,
		key TEXT NOT NULL,
		title TEXT NOT NULL,
		delta TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE sell_configs (
		id TEXT PRIMARY KEY,
		product_id TEXT UNIQUE,
		steps TEXT NOT NULL,
		rules TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE sell_offer_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		variant_id TEXT NOT NULL,
		partner_id TEXT,
		answers TEXT,
		defects TEXT,
		accessories TEXT,
		base_price INTEGER NOT NULL,
		final_price INTEGER NOT NULL,
		breakdown TEXT,
		token_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		expires_at DATETIME NOT NULL,
		computed_at DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE sell_orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		variant_id TEXT NOT NULL,
		order_number TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'confirmed',
		pickup TEXT,
		payout TEXT,
		quote_amount INTEGER NOT NULL,
		quote_breakdown TEXT,
		actual_amount INTEGER,
		final_price INTEGER,
		assigned_to TEXT,
		assigned_at DATETIME,
		evaluation_data TEXT,
		picked_up_at DATETIME,
		evaluated_at DATETIME,
		completed_at DATETIME,
		cancelled_at DATETIME,
		cancel_reason TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT ux_sell_orders_session_id UNIQUE (session_id),
		CONSTRAINT ux_sell_orders_order_number UNIQUE (order_number)
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a private in-memory database with the sell schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range Schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// MustCreate inserts each row, failing the test on error. Rows must carry
// explicit ids; sqlite has no gen_random_uuid.
func MustCreate(t testing.TB, db *gorm.DB, rows ...any) {
	t.Helper()
	for _, row := range rows {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("create %T: %v", row, err)
		}
	}
}
