package preview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBudget bounds the lifetime of a background task.
const DefaultBudget = 3 * time.Minute

// Runner runs detached background tasks.
// Callers fire and forget; Wait lets the host drain running tasks.
type Runner struct {
	budget time.Duration
	wg     sync.WaitGroup
	log    zerolog.Logger
}

func NewRunner(budget time.Duration, logger zerolog.Logger) *Runner {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Runner{budget: budget, log: logger}
}

// Go runs task in a new goroutine.
// The task keeps the values of parent but not its cancellation, and is
// cancelled once the budget elapses.
func (r *Runner) Go(parent context.Context, task func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.budget)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				r.log.WithLevel(zerolog.PanicLevel).Interface("error", p).Msg("Panic in background task")
			}
		}()
		if err := task(ctx); err != nil {
			r.log.Error().Err(err).Msg("Background task failed")
		}
	}()
}

// Wait blocks until all tasks are done or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
