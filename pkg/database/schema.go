package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of a pool needed to apply the schema.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// schemaStatements is applied in order by Migrate. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(15,2) NOT NULL CHECK (price >= 0),
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS vouchers (
		id BIGSERIAL PRIMARY KEY,
		code VARCHAR(64) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		discount_type VARCHAR(16) NOT NULL CHECK (discount_type IN ('PERCENTAGE', 'FIXED')),
		discount_value NUMERIC(15,2) NOT NULL CHECK (discount_value > 0),
		min_purchase NUMERIC(15,2) NOT NULL DEFAULT 0 CHECK (min_purchase >= 0),
		max_discount NUMERIC(15,2) CHECK (max_discount IS NULL OR max_discount > 0),
		usage_limit INTEGER NOT NULL CHECK (usage_limit > 0),
		usage_count INTEGER NOT NULL DEFAULT 0 CHECK (usage_count >= 0),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		starts_at TIMESTAMPTZ NOT NULL,
		ends_at TIMESTAMPTZ NOT NULL,
		created_by VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (usage_count <= usage_limit),
		CHECK (ends_at >= starts_at)
	)`,
	`CREATE TABLE IF NOT EXISTS order_status (
		id INTEGER PRIMARY KEY,
		name VARCHAR(32) NOT NULL UNIQUE
	)`,
	`INSERT INTO order_status (id, name) VALUES
		(1, 'pending'), (2, 'confirmed'), (3, 'processing'),
		(4, 'shipped'), (5, 'delivered'), (6, 'cancelled')
	ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		order_number VARCHAR(64) NOT NULL UNIQUE,
		user_id VARCHAR(255) NOT NULL,
		original_amount NUMERIC(15,2) NOT NULL,
		discount_amount NUMERIC(15,2) NOT NULL DEFAULT 0,
		total_amount NUMERIC(15,2) NOT NULL CHECK (total_amount >= 0),
		voucher_id BIGINT REFERENCES vouchers(id) ON DELETE SET NULL,
		voucher_code VARCHAR(64),
		shipping_address_id BIGINT NOT NULL,
		status_id INTEGER NOT NULL REFERENCES order_status(id),
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price NUMERIC(15,2) NOT NULL,
		subtotal NUMERIC(15,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_tracking (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		status_id INTEGER NOT NULL REFERENCES order_status(id),
		notes TEXT NOT NULL DEFAULT '',
		created_by VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS voucher_usage (
		id BIGSERIAL PRIMARY KEY,
		voucher_id BIGINT NOT NULL REFERENCES vouchers(id),
		user_id VARCHAR(255) NOT NULL,
		order_id BIGINT NOT NULL REFERENCES orders(id),
		discount_amount NUMERIC(15,2) NOT NULL,
		used_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (voucher_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		id BIGSERIAL PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id BIGSERIAL PRIMARY KEY,
		cart_id BIGINT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (cart_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_reviews (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		user_id VARCHAR(255) NOT NULL,
		rating SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (order_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_order_tracking_order ON order_tracking(order_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_voucher_usage_voucher ON voucher_usage(voucher_id, used_at DESC)`,
}

// Migrate applies the storefront schema.
func Migrate(ctx context.Context, db Execer) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
