package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPool(t *testing.T) (*Pool, *manualClock) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	clock := &manualClock{now: time.Unix(1000, 0)}
	pool := NewPool(ctx, 2, clock)
	t.Cleanup(func() {
		cancel()
		pool.Wait()
	})

	return pool, clock
}

func TestPollReportsCompletionOnce(t *testing.T) {
	pool, clock := newTestPool(t)
	slot := &Slot[int]{}
	release := make(chan struct{})
	var calls atomic.Int32
	query := func() (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	update := Poll(pool, slot, time.Second, query)
	assert.Equal(t, Pending, update.Status)
	assert.Equal(t, Pending, Poll(pool, slot, time.Second, query).Status, "in flight")

	close(release)
	require.Eventually(t, func() bool { return !slot.Running() }, time.Second, time.Millisecond)

	update = Poll(pool, slot, time.Second, query)
	require.Equal(t, Ok, update.Status)
	assert.Equal(t, 42, update.Value)

	for i := 0; i < 5; i++ {
		assert.Equal(t, Pending, Poll(pool, slot, time.Second, query).Status, "cooldown")
	}
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(time.Second)
	assert.Equal(t, Pending, Poll(pool, slot, time.Second, query).Status)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
}

func TestPollReportsError(t *testing.T) {
	pool, _ := newTestPool(t)
	slot := &Slot[bool]{}
	errBoom := errors.New("boom")
	query := func() (bool, error) { return false, errBoom }

	Poll(pool, slot, 0, query)
	require.Eventually(t, func() bool { return !slot.Running() }, time.Second, time.Millisecond)

	update := Poll(pool, slot, 0, query)
	assert.Equal(t, Err, update.Status)
	assert.ErrorIs(t, update.Err, errBoom)
}

func TestPollZeroCooldownRequeries(t *testing.T) {
	pool, _ := newTestPool(t)
	slot := &Slot[int]{}
	var calls atomic.Int32
	query := func() (int, error) { return int(calls.Add(1)), nil }

	Poll(pool, slot, 0, query)
	require.Eventually(t, func() bool { return !slot.Running() }, time.Second, time.Millisecond)
	require.Equal(t, Ok, Poll(pool, slot, 0, query).Status)

	Poll(pool, slot, 0, query)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
}

func TestResetDiscardsInFlightResult(t *testing.T) {
	pool, _ := newTestPool(t)
	slot := &Slot[int]{}
	release := make(chan struct{})
	done := make(chan struct{})
	query := func() (int, error) {
		defer close(done)
		<-release
		return 7, nil
	}

	Poll(pool, slot, 0, query)
	slot.Reset()
	close(release)
	<-done

	assert.False(t, slot.Running())
	next := Poll(pool, slot, 0, func() (int, error) { return 1, nil })
	assert.Equal(t, Pending, next.Status, "a new query is queued instead of delivering the stale one")
}
