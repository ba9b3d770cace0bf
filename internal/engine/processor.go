package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

// ErrProcessorStopped is returned for operations still queued, or newly
// submitted, after Stop. The operation never started; callers may retry
// against a live instance.
var ErrProcessorStopped = errors.New("processor stopped")

// opResult carries one operation's outcome back to the submitter.
type opResult struct {
	value any
	err   error
}

// op is a queued ledger operation.
type op struct {
	ctx      context.Context
	name     string
	run      func(ctx context.Context) (any, error)
	resultCh chan opResult
}

// Processor funnels assignment and withdrawal requests through a fixed
// worker pool so request spikes queue instead of piling onto the
// database. Per-user ordering still comes from the lock manager and the
// row locks; the pool only bounds parallelism.
type Processor struct {
	workers    int
	queue      chan op
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.RWMutex // guards stopped against late submits
	stopped    bool
	assignment *AssignmentEngine
	withdrawal *WithdrawalEngine
	log        zerolog.Logger
}

// NewProcessor creates a processor with the given worker count.
func NewProcessor(workers int, assignment *AssignmentEngine, withdrawal *WithdrawalEngine, log zerolog.Logger) *Processor {
	return &Processor{
		workers:    workers,
		queue:      make(chan op, 100),
		stopCh:     make(chan struct{}),
		assignment: assignment,
		withdrawal: withdrawal,
		log:        log.With().Str("component", "processor").Logger(),
	}
}

// Start starts the worker pool
func (p *Processor) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Info().Int("workers", p.workers).Msg("Processor started")
}

// Stop gracefully stops all workers, then fails any operation still
// sitting in the queue so its submitter is not left waiting out its
// request context.
func (p *Processor) Stop() {
	close(p.stopCh)
	p.wg.Wait()

	p.mu.Lock()
	p.stopped = true
	var drained int
	for {
		select {
		case job := <-p.queue:
			job.resultCh <- opResult{err: ErrProcessorStopped}
			drained++
		default:
			p.mu.Unlock()
			p.log.Info().Int("drained", drained).Msg("Processor stopped")
			return
		}
	}
}

func (p *Processor) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case job := <-p.queue:
			p.log.Debug().Int("worker", id).Str("op", job.name).Msg("Processing operation")
			value, err := job.run(job.ctx)
			job.resultCh <- opResult{value: value, err: err}
		}
	}
}

func (p *Processor) submit(ctx context.Context, name string, run func(ctx context.Context) (any, error)) (any, error) {
	resultCh := make(chan opResult, 1)

	// Enqueue under the read lock: once Stop has drained the queue, no
	// new op can slip in behind it unseen.
	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return nil, ErrProcessorStopped
	}
	select {
	case p.queue <- op{ctx: ctx, name: name, run: run, resultCh: resultCh}:
		p.mu.RUnlock()
	case <-p.stopCh:
		p.mu.RUnlock()
		return nil, ErrProcessorStopped
	case <-ctx.Done():
		p.mu.RUnlock()
		return nil, ctx.Err()
	}

	select {
	case res := <-resultCh:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubmitAssign queues an asset assignment and waits for its result.
func (p *Processor) SubmitAssign(ctx context.Context, req models.AssignRequest) (*models.Holding, error) {
	value, err := p.submit(ctx, "assign", func(ctx context.Context) (any, error) {
		return p.assignment.Assign(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return value.(*models.Holding), nil
}

// SubmitWithdraw queues a sell and waits for its result.
func (p *Processor) SubmitWithdraw(ctx context.Context, req models.WithdrawRequest) (*WithdrawalReceipt, error) {
	value, err := p.submit(ctx, "withdraw", func(ctx context.Context) (any, error) {
		return p.withdrawal.Withdraw(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return value.(*WithdrawalReceipt), nil
}
