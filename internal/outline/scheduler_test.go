package outline

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_CoalescesBurst(t *testing.T) {
	loop := newTestLoop(t)
	var fired atomic.Int32
	s := NewScheduler(testDelay, loop, func() { fired.Add(1) })

	for i := 0; i < 10; i++ {
		s.Notify()
		time.Sleep(testDelay / 5)
	}

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, int32(1), fired.Load())
}

func TestScheduler_SeparateBursts(t *testing.T) {
	loop := newTestLoop(t)
	var fired atomic.Int32
	s := NewScheduler(testDelay, loop, func() { fired.Add(1) })

	s.Notify()
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	s.Notify()
	require.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, time.Millisecond)
}

func TestScheduler_Stop(t *testing.T) {
	loop := newTestLoop(t)
	var fired atomic.Int32
	s := NewScheduler(testDelay, loop, func() { fired.Add(1) })

	s.Notify()
	s.Stop()
	s.Notify()
	s.Flush()

	time.Sleep(3 * testDelay)
	assert.Zero(t, fired.Load())
	assert.True(t, s.Stopped())
}

func TestScheduler_FlushCancelsPendingTimer(t *testing.T) {
	loop := newTestLoop(t)
	var fired atomic.Int32
	s := NewScheduler(testDelay, loop, func() { fired.Add(1) })

	s.Notify()
	s.Flush()

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, int32(1), fired.Load())
}

func TestScheduler_NotifyAfterExpiryWins(t *testing.T) {
	loop := newTestLoop(t)
	var fired atomic.Int32
	s := NewScheduler(testDelay, loop, func() { fired.Add(1) })

	// Hold the loop so the first firing is queued behind a Notify.
	release := make(chan struct{})
	require.NoError(t, loop.Post(func() { <-release }))

	s.Notify()
	time.Sleep(3 * testDelay)
	s.Notify()
	close(release)

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, int32(1), fired.Load())
}

func TestScheduler_DefaultDelay(t *testing.T) {
	s := NewScheduler(0, PosterFunc(func(func()) error { return nil }), func() {})
	assert.NotNil(t, s)
	assert.Equal(t, 2500*time.Millisecond, DefaultDelay)
}

func TestScheduler_ConcurrentNotifyAlwaysFires(t *testing.T) {
	loop := newTestLoop(t)
	var fired atomic.Int32
	s := NewScheduler(testDelay, loop, func() { fired.Add(1) })

	for round := 0; round < 20; round++ {
		before := fired.Load()
		var wg sync.WaitGroup
		start := make(chan struct{})
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for i := 0; i < 5; i++ {
					s.Notify()
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Eventually(t, func() bool { return fired.Load() > before }, time.Second, time.Millisecond,
			"round %d", round)
		time.Sleep(2 * testDelay)
	}
}

func TestScheduler_LogsRejectedFiring(t *testing.T) {
	errClosed := errors.New("closed")
	logged := make(chan error, 1)
	s := NewScheduler(testDelay,
		PosterFunc(func(func()) error { return errClosed }),
		func() { t.Error("fired through a rejecting poster") },
		WithSchedulerLogger(LoggerFunc(func(err error, _ string) { logged <- err })),
	)

	s.Flush()

	select {
	case err := <-logged:
		assert.ErrorIs(t, err, errClosed)
	case <-time.After(time.Second):
		t.Fatal("rejected firing was not logged")
	}
}
