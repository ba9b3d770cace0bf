package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectcapital4-hash/vertexcapital/internal/db"
	"github.com/connectcapital4-hash/vertexcapital/internal/ledger"
	"github.com/connectcapital4-hash/vertexcapital/internal/market"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
	"github.com/connectcapital4-hash/vertexcapital/internal/notify"
)

type testStack struct {
	db         *db.DB
	store      *ledger.Store
	prices     *market.StaticGateway
	assignment *AssignmentEngine
	withdrawal *WithdrawalEngine
	accounts   *AccountService
	growth     *GrowthEngine
	valuation  *ValuationService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	database := db.SetupTestDB(t)
	t.Cleanup(func() {
		db.CleanupTestDB(t, database)
		database.Close()
	})

	log := zerolog.Nop()
	store := ledger.NewStore(database, log)
	prices := market.NewStaticGateway(map[string]decimal.Decimal{
		"AAPL": dec("50"),
		"BTC":  dec("60000"),
	})
	locks := models.NewAccountLockManager()
	notifier := notify.NopGateway{}
	lockTimeout := 5 * time.Second

	return &testStack{
		db:         database,
		store:      store,
		prices:     prices,
		assignment: NewAssignmentEngine(store, prices, locks, notifier, lockTimeout, log),
		withdrawal: NewWithdrawalEngine(store, prices, locks, notifier, lockTimeout, log),
		accounts:   NewAccountService(store, locks, notifier, lockTimeout, log),
		growth:     NewGrowthEngine(store, locks, notifier, GrowthRates{Base: dec("0.10")}, lockTimeout, log),
		valuation:  NewValuationService(store, prices, log),
	}
}

func TestAssignDebitsBalanceAndRecordsLedger(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	userID := db.CreateTestUser(t, s.db, "assign_user", dec("1000"))

	holding, err := s.assignment.Assign(ctx, models.AssignRequest{
		UserID:        userID,
		AssetType:     models.AssetTypeStock,
		AssetSymbol:   "AAPL",
		AssetName:     "Apple Inc",
		AssignedValue: dec("500"),
	})
	require.NoError(t, err)

	assert.True(t, holding.Quantity.Equal(dec("10")), "quantity: %s", holding.Quantity)
	assert.True(t, holding.PurchasePrice.Equal(dec("50")))
	assert.True(t, holding.CurrentValue.Equal(dec("500")))
	assert.True(t, holding.AssignedValue.Equal(dec("500")))

	user, err := s.store.Users.Get(userID)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(dec("500")), "balance: %s", user.Balance)

	entries, err := s.store.Tx.GetByUserAndType(userID, models.TxAssetAssignment, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Amount.Equal(dec("-500")), "ledger amount: %s", entries[0].Amount)
}

func TestAssignInsufficientBalance(t *testing.T) {
	s := newTestStack(t)
	userID := db.CreateTestUser(t, s.db, "poor_user", dec("100"))

	_, err := s.assignment.Assign(context.Background(), models.AssignRequest{
		UserID:        userID,
		AssetType:     models.AssetTypeStock,
		AssetSymbol:   "AAPL",
		AssetName:     "Apple Inc",
		AssignedValue: dec("500"),
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Nothing was mutated.
	holdings, err := s.store.Holdings.GetByUser(userID)
	require.NoError(t, err)
	assert.Empty(t, holdings)

	user, err := s.store.Users.Get(userID)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(dec("100")))
}

func TestAssignAbortsWhenPriceUnavailable(t *testing.T) {
	s := newTestStack(t)
	userID := db.CreateTestUser(t, s.db, "no_price_user", dec("1000"))

	failing := NewAssignmentEngine(s.store, market.FailingGateway{},
		models.NewAccountLockManager(), notify.NopGateway{}, time.Second, zerolog.Nop())

	_, err := failing.Assign(context.Background(), models.AssignRequest{
		UserID:        userID,
		AssetType:     models.AssetTypeCrypto,
		AssetSymbol:   "BTC",
		AssetName:     "Bitcoin",
		AssignedValue: dec("500"),
	})
	assert.ErrorIs(t, err, market.ErrPriceUnavailable)

	user, err := s.store.Users.Get(userID)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(dec("1000")))

	holdings, err := s.store.Holdings.GetByUser(userID)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestWithdrawRoundTrip(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	userID := db.CreateTestUser(t, s.db, "roundtrip_user", decimal.Zero)

	_, err := s.accounts.Credit(ctx, userID, dec("1000"), "initial deposit")
	require.NoError(t, err)

	holding, err := s.assignment.Assign(ctx, models.AssignRequest{
		UserID:        userID,
		AssetType:     models.AssetTypeStock,
		AssetSymbol:   "AAPL",
		AssetName:     "Apple Inc",
		AssignedValue: dec("500"),
	})
	require.NoError(t, err)

	receipt, err := s.withdrawal.Withdraw(ctx, models.WithdrawRequest{
		UserID:    userID,
		HoldingID: holding.ID,
		SaleType:  models.SaleTypePercentage,
		Amount:    dec("100"),
	})
	require.NoError(t, err)

	// Sold at the same price it was assigned at: the full $500 comes back.
	assert.True(t, receipt.SaleValue.Equal(dec("500")), "sale value: %s", receipt.SaleValue)
	assert.True(t, receipt.RemainingQuantity.IsZero())
	assert.True(t, receipt.NewBalance.Equal(dec("1000")), "new balance: %s", receipt.NewBalance)
	assert.Equal(t, models.WithdrawalCompleted, receipt.Withdrawal.Status)
	assert.NotEmpty(t, receipt.Withdrawal.Reference)

	closed, err := s.store.Holdings.Get(holding.ID)
	require.NoError(t, err)
	assert.True(t, closed.Closed())
	assert.True(t, closed.SoldQuantity.Equal(dec("10")))

	report, err := s.store.ReconcileUser(userID)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "drift: %s", report.Drift)
}

func TestConcurrentSellsCannotOverdrawHolding(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	userID := db.CreateTestUser(t, s.db, "race_user", dec("1000"))

	holding, err := s.assignment.Assign(ctx, models.AssignRequest{
		UserID:        userID,
		AssetType:     models.AssetTypeStock,
		AssetSymbol:   "AAPL",
		AssetName:     "Apple Inc",
		AssignedValue: dec("500"), // 10 units at $50
	})
	require.NoError(t, err)

	// Two sells of 6 units against a 10-unit lot: exactly one can win.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.withdrawal.Withdraw(ctx, models.WithdrawRequest{
				UserID:    userID,
				HoldingID: holding.ID,
				SaleType:  models.SaleTypeQuantity,
				Amount:    dec("6"),
			})
		}(i)
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientQuantity)
			failed++
		}
	}
	assert.Equal(t, 1, failed, "exactly one of the two sells must be rejected")

	after, err := s.store.Holdings.Get(holding.ID)
	require.NoError(t, err)
	assert.True(t, after.Quantity.Equal(dec("4")), "remaining quantity: %s", after.Quantity)

	user, err := s.store.Users.Get(userID)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(dec("800")), "balance: %s", user.Balance)
}

func TestGrowthAppliesOncePerToken(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	userID := db.CreateTestUser(t, s.db, "growth_user", decimal.Zero)

	_, err := s.accounts.Credit(ctx, userID, dec("1000"), "initial deposit")
	require.NoError(t, err)

	_, err = s.assignment.Assign(ctx, models.AssignRequest{
		UserID:        userID,
		AssetType:     models.AssetTypeStock,
		AssetSymbol:   "AAPL",
		AssetName:     "Apple Inc",
		AssignedValue: dec("1000"),
	})
	require.NoError(t, err)

	summary, err := s.growth.Apply(ctx, "period-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UsersCredited)
	assert.True(t, summary.TotalGrowth.Equal(dec("100")), "total growth: %s", summary.TotalGrowth)
	assert.True(t, summary.PerUser[userID].Equal(dec("100")))

	// Replaying the same period is rejected before any balance is touched.
	_, err = s.growth.Apply(ctx, "period-1")
	assert.ErrorIs(t, err, ledger.ErrRunAlreadyApplied)

	user, err := s.store.Users.Get(userID)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(dec("100")), "balance after replay: %s", user.Balance)

	// A new period accrues again on the unchanged holding value.
	summary, err = s.growth.Apply(ctx, "period-2")
	require.NoError(t, err)
	assert.True(t, summary.TotalGrowth.Equal(dec("100")))

	report, err := s.store.ReconcileUser(userID)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "drift: %s", report.Drift)
}

func TestGrowthSkipsSuspendedAccounts(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	userID := db.CreateTestUser(t, s.db, "suspended_user", dec("1000"))

	_, err := s.assignment.Assign(ctx, models.AssignRequest{
		UserID:        userID,
		AssetType:     models.AssetTypeStock,
		AssetSymbol:   "AAPL",
		AssetName:     "Apple Inc",
		AssignedValue: dec("1000"),
	})
	require.NoError(t, err)

	_, err = s.db.Conn().Exec("UPDATE users SET account_level = $1 WHERE id = $2",
		models.LevelSuspended, userID)
	require.NoError(t, err)

	summary, err := s.growth.Apply(ctx, "suspended-period")
	require.NoError(t, err)
	assert.NotContains(t, summary.PerUser, userID)

	user, err := s.store.Users.Get(userID)
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero(), "suspended balance must not accrue: %s", user.Balance)
}

func TestValuationRefreshUser(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	userID := db.CreateTestUser(t, s.db, "valuation_user", dec("1000"))

	holding, err := s.assignment.Assign(ctx, models.AssignRequest{
		UserID:        userID,
		AssetType:     models.AssetTypeStock,
		AssetSymbol:   "AAPL",
		AssetName:     "Apple Inc",
		AssignedValue: dec("500"), // 10 units at $50
	})
	require.NoError(t, err)

	s.prices.SetPrice("AAPL", dec("60"))

	holdings, err := s.valuation.RefreshUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.True(t, holdings[0].CurrentValue.Equal(dec("600")), "current value: %s", holdings[0].CurrentValue)
	assert.True(t, holdings[0].ProfitLoss.Equal(dec("100")), "profit/loss: %s", holdings[0].ProfitLoss)

	// The refreshed valuation is persisted.
	stored, err := s.store.Holdings.Get(holding.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentValue.Equal(dec("600")))
	assert.True(t, stored.ProfitLoss.Equal(dec("100")))
}

func TestCreditRecordsLedgerEntry(t *testing.T) {
	s := newTestStack(t)
	userID := db.CreateTestUser(t, s.db, "credit_user", decimal.Zero)

	user, err := s.accounts.Credit(context.Background(), userID, dec("250.50"), "promo credit")
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(dec("250.50")))

	entries, err := s.store.Tx.GetByUserAndType(userID, models.TxCredit, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Amount.Equal(dec("250.50")))
	assert.Equal(t, "promo credit", entries[0].Description)

	_, err = s.accounts.Credit(context.Background(), userID, decimal.Zero, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
