// Package task bridges slow perception queries into the tick loop. A query runs on a bounded
// worker pool and its result is picked up by a later poll, never synchronously.
package task

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// Pool bounds how many queries run at the same time. Queries waiting for a worker are dropped
// once the pool context is cancelled.
type Pool struct {
	ctx   context.Context
	sem   *semaphore.Weighted
	clock Clock
	wg    sync.WaitGroup
}

func NewPool(ctx context.Context, workers int64, clock Clock) *Pool {
	if workers < 1 {
		workers = 1
	}
	if clock == nil {
		clock = SystemClock
	}

	return &Pool{
		ctx:   ctx,
		sem:   semaphore.NewWeighted(workers),
		clock: clock,
	}
}

func (p *Pool) Clock() Clock {
	return p.clock
}

func (p *Pool) spawn(run func(), abort func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			abort()
			return
		}
		defer p.sem.Release(1)
		run()
	}()
}

// Wait blocks until every spawned query returned or was dropped.
func (p *Pool) Wait() {
	p.wg.Wait()
}

type Status int

const (
	Pending Status = iota
	Ok
	Err
)

func (s Status) String() string {
	switch s {
	case Ok:
		return "ok"
	case Err:
		return "err"
	default:
		return "pending"
	}
}

type Update[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Slot holds at most one in-flight query and its cooldown. The zero value is ready to use.
type Slot[T any] struct {
	mu          sync.Mutex
	generation  uint64
	running     bool
	ready       bool
	value       T
	err         error
	cooling     bool
	completedAt time.Time
}

// Reset abandons any in-flight query and forgets the cooldown. A result that lands after the
// reset is discarded.
func (s *Slot[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	s.generation++
	s.running = false
	s.ready = false
	s.value = zero
	s.err = nil
	s.cooling = false
}

// Running reports whether a query is in flight.
func (s *Slot[T]) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Poll drives the slot one step. It reports a finished query exactly once, then keeps reporting
// Pending until cooldown has elapsed since that report, at which point fn is queued again.
func Poll[T any](pool *Pool, slot *Slot[T], cooldown time.Duration, fn func() (T, error)) Update[T] {
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.running {
		return Update[T]{Status: Pending}
	}

	now := pool.clock.Now()
	if slot.ready {
		update := Update[T]{Status: Ok, Value: slot.value}
		if slot.err != nil {
			update = Update[T]{Status: Err, Err: slot.err}
		}

		var zero T
		slot.ready = false
		slot.value = zero
		slot.err = nil
		slot.cooling = true
		slot.completedAt = now

		return update
	}

	if slot.cooling && now.Sub(slot.completedAt) < cooldown {
		return Update[T]{Status: Pending}
	}
	slot.cooling = false

	generation := slot.generation
	slot.running = true
	pool.spawn(func() {
		value, err := fn()

		slot.mu.Lock()
		defer slot.mu.Unlock()
		if slot.generation != generation {
			return
		}
		slot.running = false
		slot.ready = true
		slot.value = value
		slot.err = err
	}, func() {
		slot.mu.Lock()
		defer slot.mu.Unlock()
		if slot.generation == generation {
			slot.running = false
		}
	})

	return Update[T]{Status: Pending}
}
