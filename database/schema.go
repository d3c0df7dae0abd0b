package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT,
		account_type TEXT NOT NULL DEFAULT 'user',
		plan TEXT NOT NULL DEFAULT 'free',
		password_hash TEXT,
		role TEXT NOT NULL DEFAULT 'user',
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS auth_sessions (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		provider TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS auth_sessions_user_id_idx ON auth_sessions(user_id)`,
	`CREATE TABLE IF NOT EXISTS businesses (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		category TEXT,
		contact_email TEXT,
		phone TEXT,
		address TEXT,
		city TEXT,
		state TEXT,
		zip_code TEXT,
		cnpj TEXT,
		inscricao_estadual TEXT,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS businesses_owner_id_idx ON businesses(owner_id)`,
	`CREATE TABLE IF NOT EXISTS markets (
		id TEXT PRIMARY KEY,
		business_id TEXT REFERENCES businesses(id),
		name TEXT NOT NULL,
		category_slug TEXT,
		address_line TEXT,
		city TEXT,
		state TEXT,
		zip_code TEXT,
		phone TEXT,
		email TEXT,
		cnpj TEXT,
		inscricao_estadual TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS markets_business_id_idx ON markets(business_id)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		unit TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS products_name_idx ON products(name)`,
	`CREATE TABLE IF NOT EXISTS prices (
		id BIGSERIAL PRIMARY KEY,
		market_id TEXT NOT NULL REFERENCES markets(id),
		product_id TEXT NOT NULL REFERENCES products(id),
		price DOUBLE PRECISION NOT NULL,
		CONSTRAINT uq_price_market_product UNIQUE (market_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'user',
		price DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		kind TEXT,
		user_id TEXT REFERENCES users(id),
		business_id TEXT REFERENCES businesses(id),
		plan TEXT,
		plan_id TEXT REFERENCES plans(id),
		status TEXT NOT NULL DEFAULT 'pending',
		payment_ref TEXT UNIQUE,
		amount DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS subscriptions_user_id_idx ON subscriptions(user_id)`,
	`CREATE TABLE IF NOT EXISTS market_events (
		id BIGSERIAL PRIMARY KEY,
		market_id TEXT NOT NULL REFERENCES markets(id) ON DELETE CASCADE,
		product_id TEXT,
		kind TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS market_events_market_created_idx ON market_events(market_id, created_at)`,
}

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
