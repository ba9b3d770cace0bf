package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/ledger"
	"github.com/connectcapital4-hash/vertexcapital/internal/market"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
	"github.com/connectcapital4-hash/vertexcapital/internal/notify"
)

// AssignmentEngine moves value from a user's liquid balance into a new
// asset lot at the current market price.
type AssignmentEngine struct {
	store       *ledger.Store
	prices      market.PriceGateway
	locks       *models.AccountLockManager
	notifier    notify.Gateway
	lockTimeout time.Duration
	log         zerolog.Logger
}

// NewAssignmentEngine creates an assignment engine.
func NewAssignmentEngine(store *ledger.Store, prices market.PriceGateway, locks *models.AccountLockManager, notifier notify.Gateway, lockTimeout time.Duration, log zerolog.Logger) *AssignmentEngine {
	return &AssignmentEngine{
		store:       store,
		prices:      prices,
		locks:       locks,
		notifier:    notifier,
		lockTimeout: lockTimeout,
		log:         log.With().Str("component", "assignment").Logger(),
	}
}

// Assign debits assignedValue from the user's balance and creates a
// holding priced at the live market rate. Holding insert, balance debit
// and ledger entry commit or roll back together.
func (e *AssignmentEngine) Assign(ctx context.Context, req models.AssignRequest) (*models.Holding, error) {
	assetType := strings.ToUpper(strings.TrimSpace(req.AssetType))
	if assetType != models.AssetTypeStock && assetType != models.AssetTypeCrypto {
		return nil, ErrInvalidAsset
	}
	if !req.AssignedValue.IsPositive() {
		return nil, ErrInvalidAmount
	}
	assignedValue := models.RoundUSD(req.AssignedValue)

	// Price first: a gateway failure must abort before anything is locked.
	price, err := e.prices.GetUnitPrice(ctx, assetType, req.AssetSymbol)
	if err != nil {
		return nil, err
	}

	quantity := models.RoundQty(assignedValue.DivRound(price, models.QtyPlaces+4))
	if !quantity.IsPositive() {
		return nil, ErrNegligibleSale
	}

	if !e.locks.LockUser(ctx, req.UserID, e.lockTimeout) {
		return nil, ErrConcurrentModification
	}
	defer e.locks.UnlockUser(req.UserID)

	tx, err := e.store.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := e.store.Users.GetForUpdate(tx, req.UserID)
	if err != nil {
		return nil, err
	}

	if user.Balance.LessThan(assignedValue) {
		return nil, ErrInsufficientBalance
	}

	holding, err := e.store.Holdings.Insert(tx, &models.Holding{
		UserID:        req.UserID,
		AssetType:     assetType,
		AssetSymbol:   strings.ToUpper(strings.TrimSpace(req.AssetSymbol)),
		AssetName:     req.AssetName,
		Quantity:      quantity,
		PurchasePrice: price,
		CurrentValue:  assignedValue,
		ProfitLoss:    decimal.Zero,
		AssignedValue: assignedValue,
	})
	if err != nil {
		return nil, err
	}

	newBalance := user.Balance.Sub(assignedValue)
	if err := e.store.Users.SetBalance(tx, req.UserID, newBalance); err != nil {
		return nil, err
	}

	_, err = e.store.Tx.Insert(tx, req.UserID, models.TxAssetAssignment,
		assignedValue.Neg(),
		fmt.Sprintf("Asset assignment: %s (%s)", req.AssetName, assetType),
		map[string]any{
			"holdingId":     holding.ID,
			"assetSymbol":   holding.AssetSymbol,
			"assetType":     assetType,
			"quantity":      quantity,
			"purchasePrice": price,
			"prevBalance":   user.Balance,
			"newBalance":    newBalance,
		})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit assignment: %w", err)
	}

	e.log.Info().
		Int("user_id", req.UserID).
		Int("holding_id", holding.ID).
		Str("symbol", holding.AssetSymbol).
		Str("assigned_value", assignedValue.String()).
		Str("quantity", quantity.String()).
		Msg("Asset assigned")

	e.notifier.Notify(notify.EventAssetAssigned, map[string]any{
		"userId":      req.UserID,
		"holdingId":   holding.ID,
		"assetSymbol": holding.AssetSymbol,
		"amount":      assignedValue,
	})

	return holding, nil
}
