package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/db"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

// ErrHoldingNotFound is returned when a holding id does not exist.
var ErrHoldingNotFound = errors.New("holding not found")

// HoldingRepository handles holding database operations
type HoldingRepository struct {
	db  *db.DB
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(database *db.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  database,
		log: log.With().Str("repo", "holding").Logger(),
	}
}

const holdingColumns = `id, user_id, asset_type, asset_symbol, asset_name,
	quantity, purchase_price, current_value, profit_loss, assigned_value,
	sold_quantity, created_at, last_updated`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(row rowScanner) (*models.Holding, error) {
	var h models.Holding
	err := row.Scan(
		&h.ID, &h.UserID, &h.AssetType, &h.AssetSymbol, &h.AssetName,
		&h.Quantity, &h.PurchasePrice, &h.CurrentValue, &h.ProfitLoss,
		&h.AssignedValue, &h.SoldQuantity, &h.CreatedAt, &h.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, ErrHoldingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}
	return &h, nil
}

// Insert creates a holding inside tx and returns it with its id.
func (r *HoldingRepository) Insert(tx *sql.Tx, h *models.Holding) (*models.Holding, error) {
	row := tx.QueryRow(`
		INSERT INTO holdings
			(user_id, asset_type, asset_symbol, asset_name, quantity,
			 purchase_price, current_value, profit_loss, assigned_value, sold_quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)
		RETURNING `+holdingColumns,
		h.UserID, h.AssetType, h.AssetSymbol, h.AssetName, h.Quantity,
		h.PurchasePrice, h.CurrentValue, h.ProfitLoss, h.AssignedValue,
	)
	return scanHolding(row)
}

// Get returns a holding by id.
func (r *HoldingRepository) Get(holdingID int) (*models.Holding, error) {
	row := r.db.Conn().QueryRow(
		"SELECT "+holdingColumns+" FROM holdings WHERE id = $1", holdingID)
	return scanHolding(row)
}

// GetForUpdate reads a holding inside tx, locking the row until the
// transaction ends. Concurrent sells of the same lot serialize here.
func (r *HoldingRepository) GetForUpdate(tx *sql.Tx, holdingID int) (*models.Holding, error) {
	row := tx.QueryRow(
		"SELECT "+holdingColumns+" FROM holdings WHERE id = $1 FOR UPDATE", holdingID)
	return scanHolding(row)
}

// GetByUser returns all of a user's holdings, open lots first.
func (r *HoldingRepository) GetByUser(userID int) ([]models.Holding, error) {
	return r.queryMany(
		"SELECT "+holdingColumns+" FROM holdings WHERE user_id = $1 ORDER BY quantity > 0 DESC, asset_symbol",
		userID)
}

// GetOpenByUser returns a user's holdings with quantity > 0.
func (r *HoldingRepository) GetOpenByUser(userID int) ([]models.Holding, error) {
	return r.queryMany(
		"SELECT "+holdingColumns+" FROM holdings WHERE user_id = $1 AND quantity > 0 ORDER BY asset_symbol",
		userID)
}

// GetAllOpen returns every holding with quantity > 0 across all users.
func (r *HoldingRepository) GetAllOpen() ([]models.Holding, error) {
	return r.queryMany(
		"SELECT " + holdingColumns + " FROM holdings WHERE quantity > 0 ORDER BY user_id, id")
}

func (r *HoldingRepository) queryMany(query string, args ...any) ([]models.Holding, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *h)
	}
	return holdings, rows.Err()
}

// ApplySale updates the mutable lot fields after a sell, inside tx. The
// caller must hold the row lock from GetForUpdate.
func (r *HoldingRepository) ApplySale(tx *sql.Tx, holdingID int, quantity, currentValue, profitLoss, soldQuantity decimal.Decimal) error {
	res, err := tx.Exec(`
		UPDATE holdings
		SET quantity = $1, current_value = $2, profit_loss = $3,
		    sold_quantity = $4, last_updated = NOW()
		WHERE id = $5`,
		quantity, currentValue, profitLoss, soldQuantity, holdingID,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrHoldingNotFound
	}
	return nil
}

// SetValuation writes the cached projection fields. Only the valuation
// service calls this; every other code path reads them.
func (r *HoldingRepository) SetValuation(tx *sql.Tx, holdingID int, currentValue, profitLoss decimal.Decimal, asOf time.Time) error {
	var err error
	if tx != nil {
		_, err = tx.Exec(
			"UPDATE holdings SET current_value = $1, profit_loss = $2, last_updated = $3 WHERE id = $4",
			currentValue, profitLoss, asOf, holdingID)
	} else {
		_, err = r.db.Conn().Exec(
			"UPDATE holdings SET current_value = $1, profit_loss = $2, last_updated = $3 WHERE id = $4",
			currentValue, profitLoss, asOf, holdingID)
	}
	if err != nil {
		return fmt.Errorf("failed to update valuation: %w", err)
	}
	return nil
}
