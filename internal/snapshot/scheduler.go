package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Scheduler runs the task on a fixed interval in a background goroutine.
// Failures are logged and the next tick retries; nothing propagates to the
// host process.
type Scheduler struct {
	task       *Task
	interval   time.Duration
	runOnStart bool
	locker     Locker
	timeout    time.Duration
}

type SchedulerOptions struct {
	Interval   time.Duration
	RunOnStart bool
	Locker     Locker
	// Timeout bounds one refresh; defaults to the interval.
	Timeout time.Duration
}

func NewScheduler(task *Task, opts SchedulerOptions) *Scheduler {
	if opts.Locker == nil {
		opts.Locker = NoopLocker{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = opts.Interval
	}
	return &Scheduler{
		task:       task,
		interval:   opts.Interval,
		runOnStart: opts.RunOnStart,
		locker:     opts.Locker,
		timeout:    opts.Timeout,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("[snapshot] scheduler started interval=%s", s.interval)

	if s.runOnStart {
		s.tick(ctx, TriggerStartup)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[snapshot] scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx, TriggerScheduled)
		}
	}
}

// tick runs one refresh and reports what happened; it never panics.
func (s *Scheduler) tick(ctx context.Context, trigger Trigger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Printf("[snapshot] refresh panicked trigger=%s: %v", trigger, r)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	unlock, err := s.locker.TryLock(runCtx, s.timeout)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			log.Printf("[snapshot] skipping %s refresh: %v", trigger, err)
		} else {
			log.Printf("[snapshot] lock error trigger=%s: %v", trigger, err)
		}
		return err
	}
	defer unlock()

	// scheduled runs are not audited; only operator-triggered ones are
	_, err = s.task.Run(runCtx, trigger, "")
	return err
}
