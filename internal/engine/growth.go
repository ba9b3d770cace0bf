package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/ledger"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
	"github.com/connectcapital4-hash/vertexcapital/internal/notify"
)

// GrowthRates selects the accrual rate per account level, falling back
// to the base rate for levels without an override. Suspended accounts
// never accrue.
type GrowthRates struct {
	Base    decimal.Decimal
	ByLevel map[string]decimal.Decimal
}

// For returns the rate for an account level.
func (r GrowthRates) For(level string) decimal.Decimal {
	if rate, ok := r.ByLevel[strings.ToUpper(level)]; ok {
		return rate
	}
	return r.Base
}

// GrowthSummary reports one accrual run.
type GrowthSummary struct {
	Token         string                  `json:"token"`
	UsersCredited int                     `json:"users_credited"`
	TotalGrowth   decimal.Decimal         `json:"total_growth"`
	PerUser       map[int]decimal.Decimal `json:"per_user"`
	Skipped       int                     `json:"skipped"`
}

// GrowthEngine credits simulated yield to user balances, proportional to
// the summed current value of their open holdings. Growth is a
// balance-level credit only: holdings are never revalued here, so the
// cost basis seen by later sells stays untouched.
type GrowthEngine struct {
	store       *ledger.Store
	locks       *models.AccountLockManager
	notifier    notify.Gateway
	rates       GrowthRates
	lockTimeout time.Duration
	log         zerolog.Logger
}

// NewGrowthEngine creates a growth accrual engine.
func NewGrowthEngine(store *ledger.Store, locks *models.AccountLockManager, notifier notify.Gateway, rates GrowthRates, lockTimeout time.Duration, log zerolog.Logger) *GrowthEngine {
	return &GrowthEngine{
		store:       store,
		locks:       locks,
		notifier:    notifier,
		rates:       rates,
		lockTimeout: lockTimeout,
		log:         log.With().Str("component", "growth").Logger(),
	}
}

// DailyToken derives the period token for a scheduled daily run.
func DailyToken(t time.Time) string {
	return "daily-" + t.UTC().Format("2006-01-02")
}

// Apply runs one accrual period. The token identifies the period: a
// token that has already been applied is rejected before any balance is
// touched, so scheduler retries and overlapping manual triggers cannot
// double-credit. Per-user failures are logged and skipped; one user's
// bad row does not block the rest of the fan-out.
func (e *GrowthEngine) Apply(ctx context.Context, token string) (*GrowthSummary, error) {
	if token == "" {
		token = DailyToken(time.Now())
	}

	runID, err := e.store.GrowthRuns.Claim(token, e.rates.Base)
	if err != nil {
		return nil, err
	}

	users, err := e.store.Users.GetActive()
	if err != nil {
		// Nothing credited yet; free the token for a retry.
		if relErr := e.store.GrowthRuns.Release(runID); relErr != nil {
			e.log.Error().Err(relErr).Str("token", token).Msg("Failed to release growth run")
		}
		return nil, err
	}

	levels := make(map[int]string, len(users))
	for _, u := range users {
		if u.AccountLevel != models.LevelSuspended {
			levels[u.ID] = u.AccountLevel
		}
	}

	holdings, err := e.store.Holdings.GetAllOpen()
	if err != nil {
		if relErr := e.store.GrowthRuns.Release(runID); relErr != nil {
			e.log.Error().Err(relErr).Str("token", token).Msg("Failed to release growth run")
		}
		return nil, err
	}

	// Accumulate growth per user. Holdings are read-only in this pass.
	accrued := make(map[int]decimal.Decimal)
	for _, h := range holdings {
		level, ok := levels[h.UserID]
		if !ok {
			continue
		}
		growth := h.CurrentValue.Mul(e.rates.For(level))
		accrued[h.UserID] = accrued[h.UserID].Add(growth)
	}

	summary := &GrowthSummary{
		Token:   token,
		PerUser: make(map[int]decimal.Decimal),
	}

	for userID, growth := range accrued {
		growth = models.RoundUSD(growth)
		if !growth.IsPositive() {
			summary.Skipped++
			continue
		}

		if err := e.creditUser(ctx, userID, growth, token); err != nil {
			e.log.Error().Err(err).Int("user_id", userID).Str("token", token).
				Msg("Growth credit failed for user")
			summary.Skipped++
			continue
		}

		summary.UsersCredited++
		summary.TotalGrowth = summary.TotalGrowth.Add(growth)
		summary.PerUser[userID] = growth
	}

	if err := e.store.GrowthRuns.Finish(runID, summary.UsersCredited, summary.TotalGrowth); err != nil {
		e.log.Error().Err(err).Str("token", token).Msg("Failed to record growth run totals")
	}

	e.log.Info().
		Str("token", token).
		Int("users_credited", summary.UsersCredited).
		Str("total_growth", summary.TotalGrowth.String()).
		Int("skipped", summary.Skipped).
		Msg("Growth accrual completed")

	return summary, nil
}

// creditUser applies one user's growth: balance write and ledger entry
// in the same transaction, serialized against that user's other
// operations.
func (e *GrowthEngine) creditUser(ctx context.Context, userID int, growth decimal.Decimal, token string) error {
	if !e.locks.LockUser(ctx, userID, e.lockTimeout) {
		return ErrConcurrentModification
	}
	defer e.locks.UnlockUser(userID)

	tx, err := e.store.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := e.store.Users.GetForUpdate(tx, userID)
	if err != nil {
		return err
	}

	newBalance := user.Balance.Add(growth)
	if err := e.store.Users.SetBalance(tx, userID, newBalance); err != nil {
		return err
	}

	_, err = e.store.Tx.Insert(tx, userID, models.TxPortfolioGrowth,
		growth,
		"Portfolio growth applied",
		map[string]any{
			"periodToken":     token,
			"previousBalance": user.Balance,
			"newBalance":      newBalance,
			"rate":            e.rates.For(user.AccountLevel),
		})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit growth credit: %w", err)
	}

	e.notifier.Notify(notify.EventGrowthApplied, map[string]any{
		"userId": userID,
		"amount": growth,
		"token":  token,
	})

	return nil
}
