package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/connectcapital4-hash/vertexcapital/internal/engine"
	"github.com/connectcapital4-hash/vertexcapital/internal/ledger"
)

// GrowthJob triggers one accrual period per scheduled run. The period
// token is derived from the calendar day, so a restarted scheduler that
// fires again on the same day is rejected by the engine instead of
// crediting twice.
type GrowthJob struct {
	growth  *engine.GrowthEngine
	timeout time.Duration
}

// NewGrowthJob creates the scheduled growth accrual job.
func NewGrowthJob(growth *engine.GrowthEngine, timeout time.Duration) *GrowthJob {
	return &GrowthJob{growth: growth, timeout: timeout}
}

// Name implements Job.
func (j *GrowthJob) Name() string { return "growth_accrual" }

// Run implements Job.
func (j *GrowthJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.growth.Apply(ctx, engine.DailyToken(time.Now()))
	if errors.Is(err, ledger.ErrRunAlreadyApplied) {
		// Already applied today, nothing to do.
		return nil
	}
	return err
}
