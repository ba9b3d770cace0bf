package ledger

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/db"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

// ErrRunAlreadyApplied is returned when a growth period token has
// already been consumed.
var ErrRunAlreadyApplied = errors.New("growth already applied for this period")

// GrowthRunRepository records applied accrual periods.
type GrowthRunRepository struct {
	db  *db.DB
	log zerolog.Logger
}

// NewGrowthRunRepository creates a new growth run repository
func NewGrowthRunRepository(database *db.DB, log zerolog.Logger) *GrowthRunRepository {
	return &GrowthRunRepository{
		db:  database,
		log: log.With().Str("repo", "growth_run").Logger(),
	}
}

// Claim registers a period token before any crediting starts. The unique
// constraint makes a concurrent or retried run with the same token fail
// here, before it can touch a balance.
func (r *GrowthRunRepository) Claim(token string, rate decimal.Decimal) (int, error) {
	var id int
	err := r.db.Conn().QueryRow(`
		INSERT INTO growth_runs (token, rate)
		VALUES ($1, $2)
		RETURNING id`,
		token, rate,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		// 23505 = unique_violation
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return 0, ErrRunAlreadyApplied
		}
		return 0, fmt.Errorf("failed to claim growth run: %w", err)
	}
	return id, nil
}

// Finish records the run totals after the fan-out completes.
func (r *GrowthRunRepository) Finish(runID, usersCredited int, totalGrowth decimal.Decimal) error {
	_, err := r.db.Conn().Exec(`
		UPDATE growth_runs
		SET users_credited = $1, total_growth = $2
		WHERE id = $3`,
		usersCredited, models.RoundUSD(totalGrowth), runID)
	if err != nil {
		return fmt.Errorf("failed to finish growth run: %w", err)
	}
	return nil
}

// Release deletes a claimed run whose fan-out never started, freeing the
// token for a retry.
func (r *GrowthRunRepository) Release(runID int) error {
	_, err := r.db.Conn().Exec("DELETE FROM growth_runs WHERE id = $1", runID)
	if err != nil {
		return fmt.Errorf("failed to release growth run: %w", err)
	}
	return nil
}

// Latest returns the most recent runs.
func (r *GrowthRunRepository) Latest(limit int) ([]models.GrowthRun, error) {
	rows, err := r.db.Conn().Query(`
		SELECT id, token, rate, users_credited, total_growth, applied_at
		FROM growth_runs
		ORDER BY applied_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query growth runs: %w", err)
	}
	defer rows.Close()

	var runs []models.GrowthRun
	for rows.Next() {
		var g models.GrowthRun
		if err := rows.Scan(&g.ID, &g.Token, &g.Rate, &g.UsersCredited, &g.TotalGrowth, &g.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan growth run: %w", err)
		}
		runs = append(runs, g)
	}
	return runs, rows.Err()
}
