package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/db"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

// TransactionRepository handles the append-only ledger entries.
type TransactionRepository struct {
	db  *db.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(database *db.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  database,
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// Insert appends a ledger entry inside tx. Entries are never updated or
// deleted afterwards.
func (r *TransactionRepository) Insert(tx *sql.Tx, userID int, txType string, amount decimal.Decimal, description string, meta map[string]any) (int, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("failed to encode meta: %w", err)
	}

	var id int
	err = tx.QueryRow(`
		INSERT INTO transactions (user_id, type, amount, description, meta)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		userID, txType, models.RoundUSD(amount), description, metaJSON,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to record transaction: %w", err)
	}
	return id, nil
}

// GetByUser returns a user's ledger entries, newest first.
func (r *TransactionRepository) GetByUser(userID, limit int) ([]models.Transaction, error) {
	return r.queryMany(`
		SELECT id, user_id, type, amount, description, meta, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		userID, limit)
}

// GetByUserAndType returns a user's ledger entries of one type, newest first.
func (r *TransactionRepository) GetByUserAndType(userID int, txType string, limit int) ([]models.Transaction, error) {
	return r.queryMany(`
		SELECT id, user_id, type, amount, description, meta, created_at
		FROM transactions
		WHERE user_id = $1 AND type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`,
		userID, txType, limit)
}

// SumByUser returns the signed sum of all ledger amounts for a user.
func (r *TransactionRepository) SumByUser(userID int) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.Conn().QueryRow(
		"SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1",
		userID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

func (r *TransactionRepository) queryMany(query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var entries []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var metaJSON []byte
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Description, &metaJSON, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &t.Meta); err != nil {
				r.log.Warn().Err(err).Int("tx_id", t.ID).Msg("Unreadable transaction meta")
			}
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}
