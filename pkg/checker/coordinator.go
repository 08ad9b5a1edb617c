package checker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"proxycrawl/internal/logger"
	"proxycrawl/pkg/scraper"
)

const defaultWorkers = 20

// TaskError is an unexpected fault inside one validation task. It aborts the
// whole run.
type TaskError struct {
	Candidate scraper.Candidate
	Err       error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("validation task for %s: %v", e.Candidate, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Accumulator is the append-only set of candidates that passed validation,
// in completion order.
type Accumulator struct {
	mu    sync.Mutex
	items []scraper.Candidate
}

func NewAccumulator() *Accumulator {
	return &Accumulator{items: make([]scraper.Candidate, 0)}
}

func (a *Accumulator) Add(c scraper.Candidate) {
	a.mu.Lock()
	a.items = append(a.items, c)
	a.mu.Unlock()
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Snapshot returns a copy of the collected candidates
func (a *Accumulator) Snapshot() []scraper.Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]scraper.Candidate, len(a.items))
	copy(out, a.items)
	return out
}

// Coordinator fans candidates out to a fixed number of workers
type Coordinator struct {
	validator Validator
	workers   int
	delay     DelayPolicy
	sleep     func(ctx context.Context, d time.Duration)
	logger    *logger.Logger
}

func NewCoordinator(validator Validator, workers int, delay DelayPolicy) *Coordinator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if delay == nil {
		delay = NoDelay{}
	}

	return &Coordinator{
		validator: validator,
		workers:   workers,
		delay:     delay,
		sleep:     Sleep,
		logger:    logger.New("pool"),
	}
}

func (c *Coordinator) Workers() int {
	return c.workers
}

// Run validates every candidate and returns the survivors in completion
// order. It returns only after all dispatched tasks finished. On a task fault
// or a cancelled ctx no result set is returned.
func (c *Coordinator) Run(ctx context.Context, candidates []scraper.Candidate) ([]scraper.Candidate, error) {
	acc := NewAccumulator()
	if err := c.RunInto(ctx, candidates, acc); err != nil {
		return nil, err
	}
	return acc.Snapshot(), nil
}

// RunInto is Run with a caller supplied accumulator
func (c *Coordinator) RunInto(ctx context.Context, candidates []scraper.Candidate, acc *Accumulator) error {
	if len(candidates) == 0 {
		return ctx.Err()
	}

	id := logger.GenerateID()
	c.logger.Info(id, "Validating %d candidates with %d workers", len(candidates), c.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, candidate := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return c.runTask(gctx, id, candidate, acc)
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.Error(id, "Validation aborted: %v", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Info(id, "Validation finished: %d of %d candidates working", acc.Len(), len(candidates))
	return nil
}

func (c *Coordinator) runTask(ctx context.Context, id string, candidate scraper.Candidate, acc *Accumulator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{Candidate: candidate, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if ctx.Err() != nil {
		return nil
	}

	outcome, verr := c.validator.Validate(ctx, candidate)
	if verr != nil {
		return &TaskError{Candidate: candidate, Err: verr}
	}

	if outcome != Working {
		c.logger.Info(id, "Invalid IP Proxy Address: %s", candidate)
		return nil
	}

	acc.Add(candidate)
	c.logger.Info(id, "Valid IP Proxy Address: %s", candidate)

	c.sleep(ctx, c.delay.Next())
	return nil
}
