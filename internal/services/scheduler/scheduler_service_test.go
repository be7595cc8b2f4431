package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestRunNow(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var calls atomic.Int32
	err := svc.RunNow(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	taskErr := errors.New("failed")
	err = svc.RunNow(context.Background(), func(ctx context.Context) error { return taskErr })
	assert.ErrorIs(t, err, taskErr)
}

func TestRunNow_DoesNotOverlap(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- svc.RunNow(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	err := svc.RunNow(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	require.NoError(t, <-done)
}

func TestStartStop(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	assert.False(t, svc.IsRunning())
	assert.True(t, svc.NextRun().IsZero())

	task := func(ctx context.Context) error { return nil }
	require.NoError(t, svc.Start(context.Background(), "*/5 * * * *", task))
	assert.True(t, svc.IsRunning())

	next := svc.NextRun()
	assert.True(t, next.After(time.Now()))
	assert.True(t, next.Before(time.Now().Add(5*time.Minute+time.Second)))

	assert.Error(t, svc.Start(context.Background(), "*/5 * * * *", task), "second start must fail")

	svc.Stop()
	assert.False(t, svc.IsRunning())
	svc.Stop()
}

func TestStart_InvalidSchedule(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	err := svc.Start(context.Background(), "not a schedule", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
	assert.False(t, svc.IsRunning())
}
