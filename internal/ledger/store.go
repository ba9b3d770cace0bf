package ledger

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/db"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

// Store bundles the ledger repositories behind one handle. Engines open
// a single sql.Tx per operation and pass it down so every row they touch
// commits or rolls back as a unit.
type Store struct {
	db *db.DB

	Users       *UserRepository
	Holdings    *HoldingRepository
	Tx          *TransactionRepository
	Withdrawals *WithdrawalRepository
	GrowthRuns  *GrowthRunRepository
}

// NewStore creates the ledger store.
func NewStore(database *db.DB, log zerolog.Logger) *Store {
	return &Store{
		db:          database,
		Users:       NewUserRepository(database, log),
		Holdings:    NewHoldingRepository(database, log),
		Tx:          NewTransactionRepository(database, log),
		Withdrawals: NewWithdrawalRepository(database, log),
		GrowthRuns:  NewGrowthRunRepository(database, log),
	}
}

// Begin starts a new ledger transaction.
func (s *Store) Begin() (*sql.Tx, error) {
	return s.db.Begin()
}

// CreateUser inserts a user. A nonzero starting balance is written with
// its matching CREDIT entry in the same transaction, so the account
// reconciles from its first read.
func (s *Store) CreateUser(name, email string, balance decimal.Decimal) (*models.User, error) {
	tx, err := s.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := s.Users.Create(tx, name, email, balance)
	if err != nil {
		return nil, err
	}

	if user.Balance.IsPositive() {
		_, err = s.Tx.Insert(tx, user.ID, models.TxCredit, user.Balance, "Initial balance",
			map[string]any{
				"previousBalance": decimal.Zero,
				"newBalance":      user.Balance,
			})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user: %w", err)
	}
	return user, nil
}
