package ledger

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/db"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

// ErrUserNotFound is returned when a user id does not exist.
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles user database operations
type UserRepository struct {
	db  *db.DB
	log zerolog.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(database *db.DB, log zerolog.Logger) *UserRepository {
	return &UserRepository{
		db:  database,
		log: log.With().Str("repo", "user").Logger(),
	}
}

const userColumns = "id, name, email, balance, account_level, status, created_at"

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Balance, &u.AccountLevel, &u.Status, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// Create inserts a new user inside tx and returns it. Callers that seed
// a starting balance must record its ledger entry in the same tx; the
// store's CreateUser does both.
func (r *UserRepository) Create(tx *sql.Tx, name, email string, balance decimal.Decimal) (*models.User, error) {
	row := tx.QueryRow(`
		INSERT INTO users (name, email, balance)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		name, email, models.RoundUSD(balance),
	)
	return scanUser(row)
}

// Get returns a user by id.
func (r *UserRepository) Get(userID int) (*models.User, error) {
	row := r.db.Conn().QueryRow("SELECT "+userColumns+" FROM users WHERE id = $1", userID)
	return scanUser(row)
}

// GetActive returns all non-suspended users.
func (r *UserRepository) GetActive() ([]models.User, error) {
	rows, err := r.db.Conn().Query(
		"SELECT " + userColumns + " FROM users WHERE status = 'ACTIVE' ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Balance, &u.AccountLevel, &u.Status, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetForUpdate reads a user's balance inside tx, locking the row until
// the transaction ends.
func (r *UserRepository) GetForUpdate(tx *sql.Tx, userID int) (*models.User, error) {
	row := tx.QueryRow("SELECT "+userColumns+" FROM users WHERE id = $1 FOR UPDATE", userID)
	return scanUser(row)
}

// SetBalance writes a user's balance inside tx. The caller must hold the
// row lock from GetForUpdate.
func (r *UserRepository) SetBalance(tx *sql.Tx, userID int, balance decimal.Decimal) error {
	res, err := tx.Exec("UPDATE users SET balance = $1 WHERE id = $2",
		models.RoundUSD(balance), userID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user; holdings, transactions, and withdrawal receipts
// cascade.
func (r *UserRepository) Delete(userID int) error {
	res, err := r.db.Conn().Exec("DELETE FROM users WHERE id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	r.log.Info().Int("user_id", userID).Msg("User deleted")
	return nil
}
