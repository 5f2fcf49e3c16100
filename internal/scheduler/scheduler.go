// Package scheduler implements the Heartbeat Scheduler: a tick-driven loop
// that fires registered cron tasks serially, throttles them by survival
// tier, and emits coalesced wake signals for the Turn Engine to drain.
// Grounded on the teacher's scheduler.Runner (checkAndRun → claim due →
// execute → mark run), generalized from a single plan-poller to a
// multi-task registry with tier gating and degradation tracking.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/store"
)

// TaskHandler executes one scheduled task. shouldWake and message mirror
// §4.4's {shouldWake, message?} task result.
type TaskHandler func(ctx context.Context) (shouldWake bool, message string, err error)

// Task is a registered scheduler entry.
type Task struct {
	Name            string
	Cron            CronSpec
	Handler         TaskHandler
	CriticalAllowed bool
}

const defaultWakeQueueCapacity = 32

// Scheduler runs registered tasks on their cron schedules, independent of
// the Turn Engine, and hands off wake signals through a bounded queue.
type Scheduler struct {
	db    *store.DB
	tasks map[string]*Task

	tierFn           func() core.Tier
	lowComputeFactor int

	mu sync.Mutex

	wakeMu    sync.Mutex
	wakeQueue []core.WakeSignal
	wakeCap   int

	clock func() time.Time
}

// New constructs a Scheduler. tierFn is consulted fresh on every tick so the
// Scheduler always throttles against the Survival Controller's latest tier.
func New(db *store.DB, tierFn func() core.Tier, lowComputeFactor int) *Scheduler {
	if lowComputeFactor <= 0 {
		lowComputeFactor = 4
	}
	return &Scheduler{
		db:               db,
		tasks:            map[string]*Task{},
		tierFn:           tierFn,
		lowComputeFactor: lowComputeFactor,
		wakeCap:          defaultWakeQueueCapacity,
		clock:            time.Now,
	}
}

// Register adds a task definition and, if it has no persisted schedule yet,
// seeds its first next_fire at the current time, so it runs on the next tick.
func (s *Scheduler) Register(ctx context.Context, t Task) error {
	s.mu.Lock()
	s.tasks[t.Name] = &t
	s.mu.Unlock()

	existing, err := s.db.AllSchedulerTasks(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: load existing tasks: %w", err)
	}
	for _, row := range existing {
		if row.Name == t.Name {
			return nil
		}
	}

	return s.db.UpsertSchedulerTask(ctx, t.Name, t.Cron.String(), true, t.CriticalAllowed, s.clock())
}

// Tick runs every due task, serially, in name order. Safe to call
// concurrently with itself (a mutex serializes overlapping ticks), though
// in normal operation the caller drives it from a single loop.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	due, err := s.db.DueSchedulerTasks(ctx, now)
	if err != nil {
		return fmt.Errorf("scheduler: load due tasks: %w", err)
	}

	tier := s.tierFn()

	for _, row := range due {
		task, ok := s.tasks[row.Name]
		if !ok {
			continue // registered in a prior run of the binary, not this one
		}

		if !taskRunsAtTier(tier, task.Name, task.CriticalAllowed) {
			if err := s.db.RecordTaskSuccess(ctx, task.Name, task.Cron.Next(now), now); err != nil {
				return fmt.Errorf("scheduler: advance gated task %s: %w", task.Name, err)
			}
			continue
		}

		shouldWake, message, runErr := s.runTask(ctx, task)
		next := s.nextFireWithThrottle(task, now, tier, row.Degraded)

		if runErr != nil {
			if err := s.db.RecordTaskFailure(ctx, task.Name, next, now, runErr.Error()); err != nil {
				return fmt.Errorf("scheduler: record failure for %s: %w", task.Name, err)
			}
			continue
		}

		if err := s.db.RecordTaskSuccess(ctx, task.Name, next, now); err != nil {
			return fmt.Errorf("scheduler: record success for %s: %w", task.Name, err)
		}
		if shouldWake {
			s.enqueueWake(task.Name, message, now)
		}
	}

	return nil
}

// runTask invokes a handler, converting a panic into an error so one
// misbehaving task handler cannot crash the scheduling loop.
func (s *Scheduler) runTask(ctx context.Context, task *Task) (shouldWake bool, message string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: task %s panicked: %v", task.Name, r)
		}
	}()
	return task.Handler(ctx)
}

// nextFireWithThrottle computes the next run time, applying the low_compute
// interval multiplier and, independently, a doubling for a degraded task —
// the two stack, since they address different conditions (funding vs a
// flaky handler).
func (s *Scheduler) nextFireWithThrottle(task *Task, now time.Time, tier core.Tier, degradedBefore bool) time.Time {
	normalNext := task.Cron.Next(now)
	factor := time.Duration(1)
	if tier == core.TierLowCompute {
		factor *= time.Duration(s.lowComputeFactor)
	}
	if degradedBefore {
		factor *= 2
	}
	if factor == 1 {
		return normalNext
	}
	return now.Add(normalNext.Sub(now) * factor)
}

// taskRunsAtTier applies §4.4's tier throttling: dead runs only
// heartbeat_ping; critical runs heartbeat_ping and tasks marked
// criticalAllowed; high,
// normal, and low_compute run everything (low_compute only stretches the
// interval, handled separately).
func taskRunsAtTier(tier core.Tier, name string, criticalAllowed bool) bool {
	switch tier {
	case core.TierDead:
		return name == "heartbeat_ping"
	case core.TierCritical:
		return criticalAllowed || name == "heartbeat_ping"
	default:
		return true
	}
}

// enqueueWake appends a wake signal, coalescing with the previous entry if
// it carries the same reason — a chatty task should not pile up duplicate
// wakes the Turn Engine will just drain back-to-back. The handler's own
// human-readable message (e.g. "tier dropped to low_compute") becomes the
// signal's Reason when it supplied one, per the Glossary's wake-signal
// definition; taskName is only the fallback for handlers that return "".
func (s *Scheduler) enqueueWake(taskName, message string, now time.Time) {
	s.wakeMu.Lock()
	defer s.wakeMu.Unlock()

	reason := message
	if reason == "" {
		reason = taskName
	}

	if n := len(s.wakeQueue); n > 0 && s.wakeQueue[n-1].Reason == reason {
		return
	}
	if len(s.wakeQueue) >= s.wakeCap {
		s.wakeQueue = s.wakeQueue[1:] // drop oldest rather than block the scheduler
	}
	s.wakeQueue = append(s.wakeQueue, core.WakeSignal{ID: fmt.Sprintf("%s-%d", taskName, now.UnixNano()), Reason: reason, At: now})
}

// DrainWake removes and returns the oldest pending wake signal, if any.
func (s *Scheduler) DrainWake() (core.WakeSignal, bool) {
	s.wakeMu.Lock()
	defer s.wakeMu.Unlock()

	if len(s.wakeQueue) == 0 {
		return core.WakeSignal{}, false
	}
	sig := s.wakeQueue[0]
	s.wakeQueue = s.wakeQueue[1:]
	return sig, true
}

// PendingWakeCount reports the queue depth, for health/diagnostics.
func (s *Scheduler) PendingWakeCount() int {
	s.wakeMu.Lock()
	defer s.wakeMu.Unlock()
	return len(s.wakeQueue)
}
