package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/ledger"
	"github.com/connectcapital4-hash/vertexcapital/internal/market"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
	"github.com/connectcapital4-hash/vertexcapital/internal/notify"
)

var oneHundred = decimal.NewFromInt(100)

// WithdrawalReceipt is the result of one sell against a holding.
type WithdrawalReceipt struct {
	Withdrawal        *models.PortfolioWithdrawal `json:"withdrawal"`
	SaleValue         decimal.Decimal             `json:"sale_value"`
	QuantitySold      decimal.Decimal             `json:"quantity_sold"`
	RemainingQuantity decimal.Decimal             `json:"remaining_quantity"`
	NewBalance        decimal.Decimal             `json:"new_balance"`
}

// SaleBreakdown is the pure arithmetic of a partial sell: what gets
// sold, what remains, and how the cost basis carries forward.
type SaleBreakdown struct {
	QuantityToSell      decimal.Decimal
	SaleValue           decimal.Decimal
	RemainingQuantity   decimal.Decimal
	RemainingInvestment decimal.Decimal
	NewCurrentValue     decimal.Decimal
	NewProfitLoss       decimal.Decimal
}

// ComputeSale resolves a sell request against a holding at the given
// unit price. Validation and arithmetic only; no storage access.
func ComputeSale(h *models.Holding, saleType string, amount, unitPrice decimal.Decimal) (*SaleBreakdown, error) {
	if h.Closed() {
		return nil, ErrHoldingClosed
	}

	var quantityToSell decimal.Decimal
	switch saleType {
	case models.SaleTypeQuantity:
		if !amount.IsPositive() {
			return nil, ErrInvalidAmount
		}
		if amount.GreaterThan(h.Quantity) {
			return nil, ErrInsufficientQuantity
		}
		quantityToSell = models.RoundQty(amount)
	case models.SaleTypePercentage:
		if !amount.IsPositive() || amount.GreaterThan(oneHundred) {
			return nil, ErrInvalidPercent
		}
		quantityToSell = models.RoundQty(h.Quantity.Mul(amount).Div(oneHundred))
	default:
		return nil, ErrInvalidSaleType
	}

	// A tiny percentage of a tiny lot can round to nothing. Reject it
	// instead of minting a zero-quantity receipt.
	if !quantityToSell.IsPositive() {
		return nil, ErrNegligibleSale
	}

	saleValue := models.RoundUSD(quantityToSell.Mul(unitPrice))

	remainingQuantity := h.Quantity.Sub(quantityToSell)
	if remainingQuantity.IsNegative() {
		// Rounding artifact on a full sell; clamp to a closed lot.
		remainingQuantity = decimal.Zero
	}

	// Carry the cost basis forward proportionally rather than from
	// purchasePrice alone, so repeated partial sells stay consistent
	// with the receipts they produced.
	totalInvestment := h.Quantity.Mul(h.PurchasePrice)
	remainingInvestment := decimal.Zero
	if h.Quantity.IsPositive() {
		remainingInvestment = models.RoundUSD(
			remainingQuantity.Mul(totalInvestment).DivRound(h.Quantity, models.QtyPlaces))
	}
	newCurrentValue := models.RoundUSD(remainingQuantity.Mul(unitPrice))

	return &SaleBreakdown{
		QuantityToSell:      quantityToSell,
		SaleValue:           saleValue,
		RemainingQuantity:   remainingQuantity,
		RemainingInvestment: remainingInvestment,
		NewCurrentValue:     newCurrentValue,
		NewProfitLoss:       newCurrentValue.Sub(remainingInvestment),
	}, nil
}

// WithdrawalEngine sells part or all of a holding back into the user's
// liquid balance.
type WithdrawalEngine struct {
	store       *ledger.Store
	prices      market.PriceGateway
	locks       *models.AccountLockManager
	notifier    notify.Gateway
	lockTimeout time.Duration
	log         zerolog.Logger
}

// NewWithdrawalEngine creates a withdrawal engine.
func NewWithdrawalEngine(store *ledger.Store, prices market.PriceGateway, locks *models.AccountLockManager, notifier notify.Gateway, lockTimeout time.Duration, log zerolog.Logger) *WithdrawalEngine {
	return &WithdrawalEngine{
		store:       store,
		prices:      prices,
		locks:       locks,
		notifier:    notifier,
		lockTimeout: lockTimeout,
		log:         log.With().Str("component", "withdrawal").Logger(),
	}
}

// Withdraw executes a sell. Holding update, balance credit, receipt and
// ledger entry commit as one unit; any failure rolls everything back.
func (e *WithdrawalEngine) Withdraw(ctx context.Context, req models.WithdrawRequest) (*WithdrawalReceipt, error) {
	// Validation that needs no storage access happens up front, with the
	// same classification ComputeSale applies.
	switch req.SaleType {
	case models.SaleTypeQuantity:
		if !req.Amount.IsPositive() {
			return nil, ErrInvalidAmount
		}
	case models.SaleTypePercentage:
		if !req.Amount.IsPositive() || req.Amount.GreaterThan(oneHundred) {
			return nil, ErrInvalidPercent
		}
	default:
		return nil, ErrInvalidSaleType
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

	// Lock the holding row first, then the user row. Consistent ordering
	// across the engines keeps concurrent operations deadlock-free.
	holding, err := e.store.Holdings.GetForUpdate(tx, req.HoldingID)
	if err != nil {
		return nil, err
	}
	if holding.UserID != req.UserID {
		return nil, ErrHoldingAccessDenied
	}

	user, err := e.store.Users.GetForUpdate(tx, req.UserID)
	if err != nil {
		return nil, err
	}

	// The sale is priced at the moment of execution. No price, no sale.
	price, err := e.prices.GetUnitPrice(ctx, holding.AssetType, holding.AssetSymbol)
	if err != nil {
		return nil, err
	}

	sale, err := ComputeSale(holding, req.SaleType, req.Amount, price)
	if err != nil {
		return nil, err
	}

	newSoldQuantity := holding.SoldQuantity.Add(sale.QuantityToSell)
	if err := e.store.Holdings.ApplySale(tx, holding.ID,
		sale.RemainingQuantity, sale.NewCurrentValue, sale.NewProfitLoss, newSoldQuantity); err != nil {
		return nil, err
	}

	newBalance := user.Balance.Add(sale.SaleValue)
	if err := e.store.Users.SetBalance(tx, req.UserID, newBalance); err != nil {
		return nil, err
	}

	receipt, err := e.store.Withdrawals.Insert(tx, &models.PortfolioWithdrawal{
		Reference:         uuid.NewString(),
		UserID:            req.UserID,
		HoldingID:         holding.ID,
		AssetType:         holding.AssetType,
		AssetSymbol:       holding.AssetSymbol,
		AssetName:         holding.AssetName,
		QuantitySold:      sale.QuantityToSell,
		SalePrice:         price,
		TotalAmount:       sale.SaleValue,
		SaleType:          req.SaleType,
		OriginalQuantity:  holding.Quantity,
		RemainingQuantity: sale.RemainingQuantity,
		Status:            models.WithdrawalCompleted,
	})
	if err != nil {
		return nil, err
	}

	_, err = e.store.Tx.Insert(tx, req.UserID, models.TxPortfolioWithdrawal,
		sale.SaleValue,
		fmt.Sprintf("Sold %s %s from portfolio", sale.QuantityToSell, holding.AssetSymbol),
		map[string]any{
			"holdingId":    holding.ID,
			"withdrawalId": receipt.ID,
			"reference":    receipt.Reference,
			"assetSymbol":  holding.AssetSymbol,
			"assetType":    holding.AssetType,
			"quantitySold": sale.QuantityToSell,
			"salePrice":    price,
			"saleType":     req.SaleType,
			"prevBalance":  user.Balance,
			"newBalance":   newBalance,
		})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal: %w", err)
	}

	e.log.Info().
		Int("user_id", req.UserID).
		Int("holding_id", holding.ID).
		Str("symbol", holding.AssetSymbol).
		Str("quantity_sold", sale.QuantityToSell.String()).
		Str("sale_value", sale.SaleValue.String()).
		Str("remaining", sale.RemainingQuantity.String()).
		Msg("Holding sold")

	e.notifier.Notify(notify.EventAssetSold, map[string]any{
		"userId":      req.UserID,
		"holdingId":   holding.ID,
		"assetSymbol": holding.AssetSymbol,
		"amount":      sale.SaleValue,
	})

	return &WithdrawalReceipt{
		Withdrawal:        receipt,
		SaleValue:         sale.SaleValue,
		QuantitySold:      sale.QuantityToSell,
		RemainingQuantity: sale.RemainingQuantity,
		NewBalance:        newBalance,
	}, nil
}
