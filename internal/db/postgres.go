package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New opens a postgres connection and verifies it.
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	// Connection pool settings
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Migrate creates the ledger schema when it does not exist yet.
func (db *DB) Migrate() error {
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            SERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		balance       NUMERIC(18,2) NOT NULL DEFAULT 0,
		account_level TEXT NOT NULL DEFAULT 'DEFAULT',
		status        TEXT NOT NULL DEFAULT 'ACTIVE',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		id             SERIAL PRIMARY KEY,
		user_id        INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		asset_type     TEXT NOT NULL,
		asset_symbol   TEXT NOT NULL,
		asset_name     TEXT NOT NULL,
		quantity       NUMERIC(28,8) NOT NULL,
		purchase_price NUMERIC(18,8) NOT NULL,
		current_value  NUMERIC(18,2) NOT NULL,
		profit_loss    NUMERIC(18,2) NOT NULL DEFAULT 0,
		assigned_value NUMERIC(18,2) NOT NULL,
		sold_quantity  NUMERIC(28,8) NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_updated   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (quantity >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_holdings_user ON holdings(user_id)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id          SERIAL PRIMARY KEY,
		user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type        TEXT NOT NULL,
		amount      NUMERIC(18,2) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		meta        JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS portfolio_withdrawals (
		id                 SERIAL PRIMARY KEY,
		reference          UUID NOT NULL UNIQUE,
		user_id            INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		holding_id         INTEGER NOT NULL REFERENCES holdings(id),
		asset_type         TEXT NOT NULL,
		asset_symbol       TEXT NOT NULL,
		asset_name         TEXT NOT NULL,
		quantity_sold      NUMERIC(28,8) NOT NULL,
		sale_price         NUMERIC(18,8) NOT NULL,
		total_amount       NUMERIC(18,2) NOT NULL,
		sale_type          TEXT NOT NULL,
		original_quantity  NUMERIC(28,8) NOT NULL,
		remaining_quantity NUMERIC(28,8) NOT NULL,
		status             TEXT NOT NULL DEFAULT 'COMPLETED',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_user ON portfolio_withdrawals(user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS growth_runs (
		id             SERIAL PRIMARY KEY,
		token          TEXT NOT NULL UNIQUE,
		rate           NUMERIC(8,6) NOT NULL,
		users_credited INTEGER NOT NULL DEFAULT 0,
		total_growth   NUMERIC(18,2) NOT NULL DEFAULT 0,
		applied_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
