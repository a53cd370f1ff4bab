package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunsImmediatelyAndOnInterval(t *testing.T) {
	var runs int32
	ctx, cancel := context.WithCancel(context.Background())
	s := New(10*time.Millisecond, nil, Job{Name: "count", Run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}})
	s.Start(ctx)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()
}

func TestFailingJobDoesNotStopOthers(t *testing.T) {
	var second int32
	ctx, cancel := context.WithCancel(context.Background())
	s := New(time.Hour, nil,
		Job{Name: "boom", Run: func(context.Context) error { return errors.New("boom") }},
		Job{Name: "ok", Run: func(context.Context) error {
			atomic.AddInt32(&second, 1)
			return nil
		}},
	)
	s.Start(ctx)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&second) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()
}

type heldLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *heldLocker) TryLock(_ context.Context, name string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, nil
	}
	l.held[name] = true
	return func() {
		l.mu.Lock()
		delete(l.held, name)
		l.mu.Unlock()
	}, nil
}

func TestSkipsJobWhenLockHeldElsewhere(t *testing.T) {
	var runs int32
	locker := &heldLocker{held: map[string]bool{"cleanup": true}}
	s := New(time.Hour, locker, Job{Name: "cleanup", Run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}})
	s.tick(context.Background())
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))

	delete(locker.held, "cleanup")
	s.tick(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	assert.True(t, locker.held["cleanup"])

	s.tick(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

type ttlLocker struct {
	heldLocker
	ttls []time.Duration
}

func (l *ttlLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	l.ttls = append(l.ttls, ttl)
	return l.heldLocker.TryLock(ctx, name, ttl)
}

func TestLockOutlivesSuccessfulRunOnly(t *testing.T) {
	locker := &ttlLocker{heldLocker: heldLocker{held: map[string]bool{}}}
	fail := true
	s := New(time.Hour, locker, Job{Name: "reconcile", Run: func(context.Context) error {
		if fail {
			return errors.New("store down")
		}
		return nil
	}})

	s.tick(context.Background())
	assert.False(t, locker.held["reconcile"], "failed run frees the lock for a retry")

	fail = false
	s.tick(context.Background())
	assert.True(t, locker.held["reconcile"], "successful run keeps the lock until it expires")

	for _, ttl := range locker.ttls {
		assert.Less(t, ttl, time.Hour)
		assert.Greater(t, ttl, 50*time.Minute)
	}
}
