package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Deepreo/gorev/core"
	"github.com/Deepreo/gorev/errors"
	"github.com/google/uuid"
)

var (
	ErrNilAction           = errors.New("scheduled task requires an action")
	ErrNonPositiveInterval = errors.New("scheduled task interval must be positive")
)

// InMemoryScheduler runs one goroutine per registered task: wait the interval,
// invoke the action, isolate its failure, repeat until the task's scope is
// cancelled. The root scope is created on Start and cancelling it cascades to
// every task scope; cancelling a single task leaves the rest running.
type InMemoryScheduler struct {
	mu          sync.Mutex
	running     bool
	root        *scope
	reg         *registry
	reporter    core.Reporter
	middlewares []core.SchedulerMiddleware
}

func NewInMemoryScheduler(reporter core.Reporter) *InMemoryScheduler {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &InMemoryScheduler{
		reg:      newRegistry(),
		reporter: reporter,
	}
}

// Start is idempotent. It only creates the root scope; existing recorded tasks
// do not begin loops retroactively, loops start as a consequence of
// ScheduleTask calls.
func (s *InMemoryScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.root = newRootScope()
	s.running = true
}

// Stop cancels the root scope (cascading to every task scope), clears the
// registry and marks the scheduler stopped. The cancellation primitives are
// released before Stop returns; in-flight action invocations are signalled but
// not awaited.
func (s *InMemoryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.root.Cancel()
	s.reg.clear()
	s.root = nil
	s.running = false
}

func (s *InMemoryScheduler) Use(middleware ...core.SchedulerMiddleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, middleware...)
}

func (s *InMemoryScheduler) applyMiddlewares(fn core.ActionFunc) core.ActionFunc {
	chain := fn
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		chain = s.middlewares[i](chain)
	}
	return chain
}

// ScheduleTask registers the task and, when the scheduler runs and the task is
// enabled, starts its runner loop. Re-scheduling an existing id cancels the
// previous loop before the new one starts; at most one live loop exists per
// id. The call itself never blocks on task execution.
func (s *InMemoryScheduler) ScheduleTask(task core.ScheduledTask) error {
	if task.Action == nil {
		return errors.ValidationError(ErrNilAction).WithCode("SCHED_NIL_ACTION")
	}
	if task.Interval <= 0 {
		return errors.ValidationError(ErrNonPositiveInterval).
			WithCode("SCHED_BAD_INTERVAL").
			WithMetadata("interval", task.Interval.String())
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || !task.Enabled {
		// Recorded so status queries see it; no loop until a later
		// ScheduleTask call finds the scheduler running and the task enabled.
		s.reg.insertOrReplace(task.ID, &entry{task: task})
		return nil
	}

	e := &entry{
		task:  task,
		scope: newChildScope(s.root),
		done:  make(chan struct{}),
	}
	action := s.applyMiddlewares(task.Action)
	s.reg.insertOrReplace(task.ID, e)
	go s.runLoop(e, action)
	return nil
}

// runLoop is the per-task execution loop. Failures of the action are reported
// and never terminate the loop; only cancellation does. There is no backoff,
// the loop always waits the full interval before the next attempt.
func (s *InMemoryScheduler) runLoop(e *entry, action core.ActionFunc) {
	defer close(e.done)

	timer := time.NewTimer(e.task.Interval)
	defer timer.Stop()

	for {
		select {
		case <-e.scope.Done():
			return
		case <-timer.C:
		}

		// Re-check after the wait: the entry may have been replaced or
		// removed while we slept and the cancel signal races the timer.
		cur := s.reg.get(e.task.ID)
		if e.scope.Cancelled() || cur != e || !cur.task.Enabled {
			return
		}

		ctx := core.WithTask(e.scope.Context(), e.task)
		if err := action(ctx); err != nil {
			if errors.IsCancellation(err) && e.scope.Cancelled() {
				// Expected abort from shutdown, not a failure.
				return
			}
			s.reporter.Report(ctx, fmt.Sprintf("task %s (%s) failed", e.task.ID, e.task.Name), err)
		}

		timer.Reset(e.task.Interval)
	}
}

// CancelTask removes the task and cancels its loop. No-op for unknown ids.
func (s *InMemoryScheduler) CancelTask(id string) {
	s.reg.remove(id)
}

func (s *InMemoryScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *InMemoryScheduler) TaskCount() int {
	return s.reg.count()
}

func (s *InMemoryScheduler) TaskIDs() []string {
	return s.reg.snapshotIDs()
}

type nopReporter struct{}

func (nopReporter) Report(ctx context.Context, message string, err error) {}
