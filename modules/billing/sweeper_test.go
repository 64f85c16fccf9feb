package billing_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/modules/billing"
)

func TestSweeperRun(t *testing.T) {
	t.Parallel()

	t.Run("sweeps immediately and on every tick", func(t *testing.T) {
		t.Parallel()

		var sweeps atomic.Int32
		svc := new(MockService)
		svc.On("ExpireStale", mock.Anything, mock.AnythingOfType("time.Time")).
			Run(func(mock.Arguments) { sweeps.Add(1) }).
			Return(2, nil)

		sweeper := billing.NewSweeper(svc, 20*time.Millisecond, nil)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- sweeper.Run(ctx) }()

		require.Eventually(t, func() bool { return sweeps.Load() >= 3 },
			time.Second, 5*time.Millisecond, "expected at least an initial sweep plus two ticks")

		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			require.Fail(t, "sweeper did not stop on cancel")
		}
	})

	t.Run("sweep failure does not stop the loop", func(t *testing.T) {
		t.Parallel()

		var sweeps atomic.Int32
		svc := new(MockService)
		svc.On("ExpireStale", mock.Anything, mock.AnythingOfType("time.Time")).
			Run(func(mock.Arguments) { sweeps.Add(1) }).
			Return(0, errors.New("provider down"))

		sweeper := billing.NewSweeper(svc, 20*time.Millisecond, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() { _ = sweeper.Run(ctx) }()

		require.Eventually(t, func() bool { return sweeps.Load() >= 2 },
			time.Second, 5*time.Millisecond, "sweep should retry on the next tick after a failure")
	})

	t.Run("constructor panics on bad arguments", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { billing.NewSweeper(nil, time.Minute, nil) })
		assert.Panics(t, func() { billing.NewSweeper(new(MockService), 0, nil) })
	})
}
