package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset types
const (
	AssetTypeStock  = "STOCK"
	AssetTypeCrypto = "CRYPTO"
)

// Sale types
const (
	SaleTypeQuantity   = "QUANTITY"
	SaleTypePercentage = "PERCENTAGE"
)

// Transaction types
const (
	TxCredit              = "CREDIT"
	TxProfit              = "PROFIT"
	TxDebit               = "DEBIT"
	TxWithdraw            = "WITHDRAW"
	TxAssetAssignment     = "ASSET_ASSIGNMENT"
	TxPortfolioGrowth     = "PORTFOLIO_GROWTH"
	TxPortfolioWithdrawal = "PORTFOLIO_WITHDRAWAL"
)

// Withdrawal receipt statuses
const (
	WithdrawalPending   = "PENDING"
	WithdrawalCompleted = "COMPLETED"
	WithdrawalFailed    = "FAILED"
)

// Account levels
const (
	LevelDefault   = "DEFAULT"
	LevelStandard  = "STANDARD"
	LevelPremium   = "PREMIUM"
	LevelLifetime  = "LIFETIME"
	LevelSuspended = "SUSPENDED"
)

// User represents an account holding a liquid USD balance.
// The balance is mutated only by the engines, never by handlers.
type User struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Balance      decimal.Decimal `json:"balance"`
	AccountLevel string          `json:"account_level"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Holding is a single asset lot owned by a user.
// PurchasePrice and AssignedValue are fixed at assignment time.
// CurrentValue and ProfitLoss are cached projections owned by the
// valuation service; quantity only decreases through the withdrawal engine.
type Holding struct {
	ID            int             `json:"id"`
	UserID        int             `json:"user_id"`
	AssetType     string          `json:"asset_type"`
	AssetSymbol   string          `json:"asset_symbol"`
	AssetName     string          `json:"asset_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	ProfitLoss    decimal.Decimal `json:"profit_loss"`
	AssignedValue decimal.Decimal `json:"assigned_value"`
	SoldQuantity  decimal.Decimal `json:"sold_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// Closed reports whether the lot has been fully sold. Closed holdings
// stay on record for audit and are skipped by valuation and growth.
func (h *Holding) Closed() bool {
	return !h.Quantity.IsPositive()
}

// Transaction is an append-only ledger entry. The amount is signed:
// positive credits the balance, negative debits it.
type Transaction struct {
	ID          int             `json:"id"`
	UserID      int             `json:"user_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Meta        map[string]any  `json:"meta,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PortfolioWithdrawal is the immutable receipt of one sell against a holding.
type PortfolioWithdrawal struct {
	ID                int             `json:"id"`
	Reference         string          `json:"reference"`
	UserID            int             `json:"user_id"`
	HoldingID         int             `json:"holding_id"`
	AssetType         string          `json:"asset_type"`
	AssetSymbol       string          `json:"asset_symbol"`
	AssetName         string          `json:"asset_name"`
	QuantitySold      decimal.Decimal `json:"quantity_sold"`
	SalePrice         decimal.Decimal `json:"sale_price"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	SaleType          string          `json:"sale_type"`
	OriginalQuantity  decimal.Decimal `json:"original_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// GrowthRun records one applied accrual period so a retried invocation
// with the same token is rejected instead of double-crediting.
type GrowthRun struct {
	ID            int             `json:"id"`
	Token         string          `json:"token"`
	Rate          decimal.Decimal `json:"rate"`
	UsersCredited int             `json:"users_credited"`
	TotalGrowth   decimal.Decimal `json:"total_growth"`
	AppliedAt     time.Time       `json:"applied_at"`
}

// AssignRequest - admin request to allocate part of a user's balance
// into an asset at the current market price.
type AssignRequest struct {
	UserID        int             `json:"user_id" binding:"required"`
	AssetType     string          `json:"asset_type" binding:"required"`
	AssetSymbol   string          `json:"asset_symbol" binding:"required"`
	AssetName     string          `json:"asset_name" binding:"required"`
	AssignedValue decimal.Decimal `json:"assigned_value" binding:"required"`
}

// WithdrawRequest - sell an absolute quantity or a percentage of a holding.
type WithdrawRequest struct {
	UserID    int             `json:"user_id" binding:"required"`
	HoldingID int             `json:"holding_id" binding:"required"`
	SaleType  string          `json:"sale_type" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

// CreditRequest - admin credit of a user's liquid balance.
type CreditRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

// GrowthRequest - manual trigger of the accrual engine for one period.
type GrowthRequest struct {
	Token string `json:"token"`
}

// AvailableHolding is the read-model row returned for sellable lots.
type AvailableHolding struct {
	ID                int             `json:"id"`
	AssetName         string          `json:"asset_name"`
	AssetSymbol       string          `json:"asset_symbol"`
	AssetType         string          `json:"asset_type"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	SoldQuantity      decimal.Decimal `json:"sold_quantity"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
}

// PortfolioResponse - a user's open lots plus liquid balance.
type PortfolioResponse struct {
	Holdings    []AvailableHolding `json:"holdings"`
	CashBalance decimal.Decimal    `json:"cash_balance"`
	TotalValue  decimal.Decimal    `json:"total_value"`
}
