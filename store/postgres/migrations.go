package postgres

import (
	"context"
	"fmt"
)

// migrations are idempotent DDL statements applied in order.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS escrow_config (
		singleton      BOOLEAN PRIMARY KEY DEFAULT TRUE,
		admin          TEXT NOT NULL,
		fee_bps        BIGINT NOT NULL,
		initialized_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT escrow_config_singleton CHECK (singleton)
	)`,

	`CREATE TABLE IF NOT EXISTS escrow_providers (
		address    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS escrow_plans (
		id           BIGINT PRIMARY KEY,
		provider     TEXT NOT NULL,
		price        BIGINT NOT NULL,
		interval_ns  BIGINT NOT NULL,
		metadata     TEXT NOT NULL DEFAULT '',
		ip_asset     TEXT NOT NULL DEFAULT '',
		metadata_uri TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS escrow_subscriptions (
		id           BIGINT PRIMARY KEY,
		plan_id      BIGINT NOT NULL,
		subscriber   TEXT NOT NULL,
		last_payment TIMESTAMPTZ NOT NULL,
		active       BOOLEAN NOT NULL,
		content_ip   TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS escrow_subscriptions_subscriber_idx
		ON escrow_subscriptions (subscriber)`,

	`CREATE TABLE IF NOT EXISTS escrow_balances (
		address TEXT PRIMARY KEY,
		balance BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS escrow_royalties (
		ip_asset TEXT PRIMARY KEY,
		balance  BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS escrow_licenses (
		holder TEXT PRIMARY KEY
	)`,

	`CREATE TABLE IF NOT EXISTS escrow_counters (
		name  TEXT PRIMARY KEY,
		value BIGINT NOT NULL
	)`,

	// Counters start at 1: the stored value is the next identifier.
	`INSERT INTO escrow_counters (name, value) VALUES ('plan', 1), ('subscription', 1)
		ON CONFLICT (name) DO NOTHING`,
}

// Migrate creates the schema and seeds the identifier counters.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}
