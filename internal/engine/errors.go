package engine

import "errors"

// Validation errors - rejected before any storage access.
var (
	ErrInvalidSaleType = errors.New("invalid sale type")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidPercent  = errors.New("percentage must be between 0 and 100")
	ErrInvalidAsset    = errors.New("invalid asset type")
)

// State-conflict errors - rejected after a consistency check, nothing mutated.
var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInsufficientQuantity = errors.New("insufficient quantity to sell")
	ErrNegligibleSale       = errors.New("sale amount rounds to zero quantity")
	ErrHoldingAccessDenied  = errors.New("holding does not belong to user")
	ErrHoldingClosed        = errors.New("no available quantity in holding")
)

// Concurrency errors - the operation was aborted cleanly; callers retry
// with backoff.
var ErrConcurrentModification = errors.New("concurrent modification, retry")
