// Package scheduler runs maintenance jobs once at start-up and then on a
// fixed interval until its context is cancelled.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Locker lets several replicas share one schedule. A nil release means the
// lock is held elsewhere. Locks expire on their own after ttl.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), err error)
}

type Scheduler struct {
	interval time.Duration
	jobs     []Job
	locker   Locker
	wg       sync.WaitGroup
}

func New(interval time.Duration, locker Locker, jobs ...Job) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{interval: interval, jobs: jobs, locker: locker}
}

// Start launches the loop and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("[Scheduler] started, interval %s, %d job(s)", s.interval, len(s.jobs))
		s.tick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[Scheduler] stopped")
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Wait blocks until the loop has exited.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) tick(ctx context.Context) {
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		s.run(ctx, job)
	}
}

// lockTTL is how long a successful run keeps the job's lock. It stays a little
// under the interval so the holder's own next tick can take it again.
func (s *Scheduler) lockTTL() time.Duration {
	return s.interval - s.interval/10
}

// run executes job at most once per interval across replicas. The lock is
// left to expire after a successful run and released early only on failure,
// so another replica may retry.
func (s *Scheduler) run(ctx context.Context, job Job) {
	var release func()
	if s.locker != nil {
		var err error
		release, err = s.locker.TryLock(ctx, job.Name, s.lockTTL())
		if err != nil {
			log.Printf("[Scheduler] %s: lock: %v", job.Name, err)
			return
		}
		if release == nil {
			return
		}
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Printf("[Scheduler] %s failed after %s: %v", job.Name, time.Since(start), err)
		if release != nil {
			release()
		}
	}
}
