package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReconciliationReport compares a user's stored balance against the
// replayed sum of their ledger entries. Users start at a zero balance,
// so the two must match exactly when the engines have done their job.
type ReconciliationReport struct {
	UserID        int             `json:"user_id"`
	StoredBalance decimal.Decimal `json:"stored_balance"`
	LedgerSum     decimal.Decimal `json:"ledger_sum"`
	Drift         decimal.Decimal `json:"drift"`
	Consistent    bool            `json:"consistent"`
	EntryCount    int             `json:"entry_count"`
}

// ReconcileUser replays all transactions for a user and checks the
// running total against the stored balance.
func (s *Store) ReconcileUser(userID int) (*ReconciliationReport, error) {
	user, err := s.Users.Get(userID)
	if err != nil {
		return nil, err
	}

	entries, err := s.Tx.GetByUser(userID, 1_000_000)
	if err != nil {
		return nil, fmt.Errorf("failed to replay ledger: %w", err)
	}

	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}

	drift := user.Balance.Sub(sum)
	return &ReconciliationReport{
		UserID:        userID,
		StoredBalance: user.Balance,
		LedgerSum:     sum,
		Drift:         drift,
		Consistent:    drift.IsZero(),
		EntryCount:    len(entries),
	}, nil
}
