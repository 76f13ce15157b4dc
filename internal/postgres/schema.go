package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema dipakai saat startup dan oleh integration test; idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		sku         TEXT UNIQUE NOT NULL,
		name        TEXT NOT NULL,
		stock       INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		reserved    INT NOT NULL DEFAULT 0 CHECK (reserved >= 0),
		price_cents INT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (reserved <= stock)
	)`,
	`CREATE TABLE IF NOT EXISTS counters (
		name  TEXT PRIMARY KEY,
		value BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id             TEXT PRIMARY KEY,
		order_number   BIGINT UNIQUE NOT NULL,
		client_id      TEXT NOT NULL,
		supplier_id    TEXT NOT NULL,
		client_email   TEXT NOT NULL DEFAULT '',
		supplier_email TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		total_cents    INT NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id         TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id       TEXT NOT NULL REFERENCES products(id),
		qty              INT NOT NULL CHECK (qty >= 1),
		price_cents      INT NOT NULL,
		line_total_cents INT NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_notes (
		id         BIGSERIAL PRIMARY KEY,
		order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		actor_id   TEXT NOT NULL,
		message    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_client ON orders(client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_supplier ON orders(supplier_id)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
