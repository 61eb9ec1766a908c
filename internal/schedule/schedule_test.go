package schedule

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRDecaysLinearlyWithProgress(t *testing.T) {
	s := New(100, 1, 1.0)
	assert.InDelta(t, 1.0, s.LR(), 1e-9)
	s.AddTokens(50)
	assert.InDelta(t, 0.5, s.LR(), 1e-9)
	s.AddTokens(50)
	assert.InDelta(t, 0.0, s.LR(), 1e-9)
}

func TestDoneAtBudget(t *testing.T) {
	s := New(10, 2, 0.1)
	assert.False(t, s.Done())
	s.AddTokens(19)
	assert.False(t, s.Done())
	s.AddTokens(1)
	assert.True(t, s.Done())
}

func TestRunStopsWhenBudgetReached(t *testing.T) {
	s := New(1000, 1, 0.1)
	var calls atomic.Int64

	work := func(ctx context.Context, threadID int, s *Scheduler) error {
		for !s.Done() {
			s.AddTokens(100)
			calls.Add(1)
		}
		return nil
	}

	err := Run(context.Background(), s, 4, work, nil)
	require.NoError(t, err)
	assert.True(t, s.Done())
	assert.Greater(t, calls.Load(), int64(0))
}

func TestRunPropagatesWorkerError(t *testing.T) {
	s := New(10, 1, 0.1)
	boom := assertErr("boom")

	work := func(ctx context.Context, threadID int, s *Scheduler) error {
		return boom
	}
	err := Run(context.Background(), s, 2, work, nil)
	require.Error(t, err)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
