package db

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// SetupTestDB connects to the test database, migrating the schema.
// Tests that need durable storage are skipped when no database is
// reachable so the arithmetic suites still run everywhere.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		envOr("TEST_DB_HOST", "localhost"),
		envOr("TEST_DB_PORT", "5432"),
		envOr("TEST_DB_USER", "vertex"),
		envOr("TEST_DB_PASSWORD", "vertex"),
		envOr("TEST_DB_NAME", "vertex_capital_test"),
	)

	database, err := New(connStr)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return database
}

// CleanupTestDB removes all test data
func CleanupTestDB(t *testing.T, database *DB) {
	t.Helper()

	tables := []string{"portfolio_withdrawals", "transactions", "holdings", "growth_runs", "users"}
	for _, table := range tables {
		if _, err := database.Conn().Exec("DELETE FROM " + table); err != nil {
			t.Logf("warning: failed to cleanup table %s: %v", table, err)
		}
	}
}

// CreateTestUser creates a user with the given starting balance and
// returns its id.
func CreateTestUser(t *testing.T, database *DB, name string, balance decimal.Decimal) int {
	t.Helper()

	// Make the email unique so parallel runs never collide
	email := fmt.Sprintf("%s_%d@test.local", name, time.Now().UnixNano())

	var userID int
	err := database.Conn().QueryRow(
		"INSERT INTO users (name, email, balance) VALUES ($1, $2, $3) RETURNING id",
		name, email, balance,
	).Scan(&userID)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return userID
}

func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
