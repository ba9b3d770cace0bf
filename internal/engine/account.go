package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/ledger"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
	"github.com/connectcapital4-hash/vertexcapital/internal/notify"
)

// AccountService covers the admin-side balance operations that feed the
// ledger its deposits. Like the engines, it never leaves a balance write
// without its matching transaction row.
type AccountService struct {
	store       *ledger.Store
	locks       *models.AccountLockManager
	notifier    notify.Gateway
	lockTimeout time.Duration
	log         zerolog.Logger
}

// NewAccountService creates an account service.
func NewAccountService(store *ledger.Store, locks *models.AccountLockManager, notifier notify.Gateway, lockTimeout time.Duration, log zerolog.Logger) *AccountService {
	return &AccountService{
		store:       store,
		locks:       locks,
		notifier:    notifier,
		lockTimeout: lockTimeout,
		log:         log.With().Str("component", "account").Logger(),
	}
}

// Credit adds to a user's liquid balance with a CREDIT ledger entry.
func (s *AccountService) Credit(ctx context.Context, userID int, amount decimal.Decimal, description string) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount = models.RoundUSD(amount)
	if description == "" {
		description = "Balance credited"
	}

	if !s.locks.LockUser(ctx, userID, s.lockTimeout) {
		return nil, ErrConcurrentModification
	}
	defer s.locks.UnlockUser(userID)

	tx, err := s.store.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := s.store.Users.GetForUpdate(tx, userID)
	if err != nil {
		return nil, err
	}

	newBalance := user.Balance.Add(amount)
	if err := s.store.Users.SetBalance(tx, userID, newBalance); err != nil {
		return nil, err
	}

	_, err = s.store.Tx.Insert(tx, userID, models.TxCredit, amount, description,
		map[string]any{
			"previousBalance": user.Balance,
			"newBalance":      newBalance,
		})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit credit: %w", err)
	}

	user.Balance = newBalance

	s.log.Info().
		Int("user_id", userID).
		Str("amount", amount.String()).
		Msg("Balance credited")

	s.notifier.Notify(notify.EventBalanceCredited, map[string]any{
		"userId":     userID,
		"amount":     amount,
		"newBalance": newBalance,
	})

	return user, nil
}
