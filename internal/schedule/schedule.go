// Package schedule runs the fixed worker pool that drives training: a set
// of goroutines, each consuming one observation from every enabled source
// per iteration, racing against a shared atomic token counter that gates
// both termination and the linear learning-rate decay. A supervisor
// goroutine polls the counter every 100ms to report progress.
package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Scheduler coordinates worker goroutines over a shared token budget.
// ExpectTokens*Epoch is the total token budget; workers stop pulling new
// work once TokenCount reaches it. LR0 is the starting learning rate; the
// effective rate decays linearly with progress, recomputed from the shared
// counter on every call so all workers observe a consistent, monotonically
// non-increasing schedule.
type Scheduler struct {
	tokenCount atomic.Int64
	loss       atomic.Int64 // loss*1e6, fixed-point so it can be stored atomically

	ExpectTokens int64
	Epoch        int
	LR0          float64
}

// New builds a Scheduler for the given per-epoch token expectation.
func New(expectTokens int64, epoch int, lr0 float64) *Scheduler {
	return &Scheduler{ExpectTokens: expectTokens, Epoch: epoch, LR0: lr0}
}

// budget is the total token count training runs for.
func (s *Scheduler) budget() int64 {
	return s.ExpectTokens * int64(s.Epoch)
}

// AddTokens advances the shared counter; workers call this after
// accumulating a batch of local progress (SPEC_FULL.md §5: updated in
// batches, not per-token, to keep the atomic off the hot path).
func (s *Scheduler) AddTokens(n int64) {
	s.tokenCount.Add(n)
}

// TokenCount reports the shared counter's current value.
func (s *Scheduler) TokenCount() int64 {
	return s.tokenCount.Load()
}

// Progress is TokenCount/budget, clamped to [0, 1].
func (s *Scheduler) Progress() float64 {
	b := s.budget()
	if b <= 0 {
		return 1
	}
	p := float64(s.tokenCount.Load()) / float64(b)
	if p > 1 {
		p = 1
	}
	return p
}

// LR returns the linearly decayed learning rate for the current progress.
func (s *Scheduler) LR() float64 {
	lr := s.LR0 * (1 - s.Progress())
	if lr < 0 {
		lr = 0
	}
	return lr
}

// Done reports whether the shared counter has reached the token budget.
func (s *Scheduler) Done() bool {
	return s.tokenCount.Load() >= s.budget()
}

// SetLoss publishes a rolling loss value for the supervisor to report.
func (s *Scheduler) SetLoss(loss float64) {
	s.loss.Store(int64(loss * 1e6))
}

// Loss reads back the last published loss.
func (s *Scheduler) Loss() float64 {
	return float64(s.loss.Load()) / 1e6
}

// Run launches `threads` worker goroutines via an errgroup, each running
// work(threadID, s), plus a supervisor goroutine that calls onProgress(s)
// every 100ms until every worker has returned. The first worker error
// cancels ctx for the rest (errgroup's standard behavior); Run returns that
// error, if any.
func Run(ctx context.Context, s *Scheduler, threads int, work func(ctx context.Context, threadID int, s *Scheduler) error, onProgress func(s *Scheduler)) error {
	g, gctx := errgroup.WithContext(ctx)

	for t := 0; t < threads; t++ {
		threadID := t
		g.Go(func() error {
			return work(gctx, threadID, s)
		})

	}

	if onProgress != nil {
		g.Go(func() error {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					onProgress(s)
					if s.Done() {
						return nil
					}
				}
			}
		})
	}

	return g.Wait()
}
