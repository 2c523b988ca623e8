package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) Sweep(ctx context.Context) error {
	s.calls.Add(1)
	return s.err
}

func TestStartRunsFirstSweepImmediately(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(sweeper, nil, time.Hour, zap.NewNop())

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestTickerTriggersRepeatedSweeps(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(sweeper, nil, 20*time.Millisecond, zap.NewNop())

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestStopHaltsTheLoop(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(sweeper, nil, 10*time.Millisecond, zap.NewNop())

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	after := sweeper.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, sweeper.calls.Load())
}

func TestStartTwiceIsNoOp(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(sweeper, nil, time.Hour, zap.NewNop())

	s.Start(context.Background())
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), sweeper.calls.Load())
}

func TestRunNowReturnsSweepError(t *testing.T) {
	wantErr := errors.New("db down")
	sweeper := &countingSweeper{err: wantErr}
	s := New(sweeper, nil, time.Hour, zap.NewNop())

	err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, int32(1), sweeper.calls.Load())
}

type fakeLock struct {
	held     bool
	releases atomic.Int32
}

func (l *fakeLock) TryAcquire(ctx context.Context) bool { return !l.held }
func (l *fakeLock) Release(ctx context.Context)         { l.releases.Add(1) }

func TestRunNowReportsSkipWhenLockHeld(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(sweeper, &fakeLock{held: true}, time.Hour, zap.NewNop())

	err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrSweepSkipped)
	assert.Equal(t, int32(0), sweeper.calls.Load())
}

func TestRunNowSweepsWhenLockFree(t *testing.T) {
	sweeper := &countingSweeper{}
	lock := &fakeLock{}
	s := New(sweeper, lock, time.Hour, zap.NewNop())

	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, int32(1), sweeper.calls.Load())
	assert.Equal(t, int32(1), lock.releases.Load())
}

func TestSweepErrorDoesNotStopTheLoop(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("transient")}
	s := New(sweeper, nil, 15*time.Millisecond, zap.NewNop())

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}
