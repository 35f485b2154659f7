package scheduler

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// TestDrive_TicksOnSchedule fires once per matching minute until canceled.
func TestDrive_TicksOnSchedule(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		var ticks []time.Time

		done := make(chan error, 1)

		go func() {
			done <- drive(ctx, "* * * * *", time.UTC, func(context.Context) {
				ticks = append(ticks, time.Now())
			})
		}()

		time.Sleep(3*time.Minute + 30*time.Second)
		cancel()

		require.NoError(t, <-done)
		require.Len(t, ticks, 3)

		for _, ts := range ticks {
			require.Zero(t, ts.Second())
		}
	})
}

// TestDrive_InvalidExpression reports the cron error.
func TestDrive_InvalidExpression(t *testing.T) {
	t.Parallel()

	err := drive(context.Background(), "not a cron", time.UTC, func(context.Context) {})
	require.Error(t, err)
}
