package ledger

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/connectcapital4-hash/vertexcapital/internal/db"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

// WithdrawalRepository handles sell receipt rows.
type WithdrawalRepository struct {
	db  *db.DB
	log zerolog.Logger
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(database *db.DB, log zerolog.Logger) *WithdrawalRepository {
	return &WithdrawalRepository{
		db:  database,
		log: log.With().Str("repo", "withdrawal").Logger(),
	}
}

const withdrawalColumns = `id, reference, user_id, holding_id, asset_type,
	asset_symbol, asset_name, quantity_sold, sale_price, total_amount,
	sale_type, original_quantity, remaining_quantity, status, created_at, updated_at`

// Insert writes a receipt inside tx and returns it with its id.
func (r *WithdrawalRepository) Insert(tx *sql.Tx, w *models.PortfolioWithdrawal) (*models.PortfolioWithdrawal, error) {
	row := tx.QueryRow(`
		INSERT INTO portfolio_withdrawals
			(reference, user_id, holding_id, asset_type, asset_symbol, asset_name,
			 quantity_sold, sale_price, total_amount, sale_type,
			 original_quantity, remaining_quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+withdrawalColumns,
		w.Reference, w.UserID, w.HoldingID, w.AssetType, w.AssetSymbol, w.AssetName,
		w.QuantitySold, w.SalePrice, w.TotalAmount, w.SaleType,
		w.OriginalQuantity, w.RemainingQuantity, w.Status,
	)
	return scanWithdrawal(row)
}

// GetByUser returns a user's receipts, newest first.
func (r *WithdrawalRepository) GetByUser(userID, limit int) ([]models.PortfolioWithdrawal, error) {
	rows, err := r.db.Conn().Query(`
		SELECT `+withdrawalColumns+`
		FROM portfolio_withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	var receipts []models.PortfolioWithdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, *w)
	}
	return receipts, rows.Err()
}

func scanWithdrawal(row rowScanner) (*models.PortfolioWithdrawal, error) {
	var w models.PortfolioWithdrawal
	err := row.Scan(
		&w.ID, &w.Reference, &w.UserID, &w.HoldingID, &w.AssetType,
		&w.AssetSymbol, &w.AssetName, &w.QuantitySold, &w.SalePrice,
		&w.TotalAmount, &w.SaleType, &w.OriginalQuantity,
		&w.RemainingQuantity, &w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
	}
	return &w, nil
}
