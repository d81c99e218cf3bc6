package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/Deepreo/gorev/core"
	"github.com/Deepreo/gorev/errors"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// gocronEntry pairs a gocron job with the task's cancellation scope so that
// Stop and CancelTask can signal an in-flight action, not only deschedule it.
type gocronEntry struct {
	jobID uuid.UUID
	scope *scope
}

// GocronScheduler is the managed-clock variant of core.Scheduler, built on
// gocron instead of per-task runner goroutines. Semantics match
// InMemoryScheduler: insert-or-replace per id, record-without-running for
// disabled tasks or a stopped scheduler, failures isolated via the Reporter,
// and the same scope tree delivering cancellation to action contexts.
type GocronScheduler struct {
	scheduler   gocron.Scheduler
	root        *scope
	jobs        map[string]*gocronEntry
	parked      map[string]core.ScheduledTask
	middlewares []core.SchedulerMiddleware
	reporter    core.Reporter
	running     bool
	mu          sync.RWMutex
}

func NewGocronScheduler(reporter core.Reporter) (*GocronScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &GocronScheduler{
		scheduler: s,
		jobs:      make(map[string]*gocronEntry),
		parked:    make(map[string]core.ScheduledTask),
		reporter:  reporter,
	}, nil
}

func (s *GocronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.root = newRootScope()
	s.scheduler.Start()
	s.running = true
}

// Stop cancels the root scope first so in-flight actions observe the shutdown
// signal, then removes every job. In-flight invocations are signalled, not
// awaited.
func (s *GocronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.root.Cancel()
	for id, e := range s.jobs {
		if err := s.scheduler.RemoveJob(e.jobID); err != nil {
			s.reporter.Report(context.Background(), fmt.Sprintf("failed to remove job %s on stop", id), err)
		}
		delete(s.jobs, id)
	}
	s.parked = make(map[string]core.ScheduledTask)
	if err := s.scheduler.StopJobs(); err != nil {
		s.reporter.Report(context.Background(), "failed to stop gocron jobs", err)
	}
	s.root = nil
	s.running = false
}

func (s *GocronScheduler) Use(middleware ...core.SchedulerMiddleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, middleware...)
}

func (s *GocronScheduler) applyMiddlewares(fn core.ActionFunc) core.ActionFunc {
	chain := fn
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		chain = s.middlewares[i](chain)
	}
	return chain
}

func (s *GocronScheduler) ScheduleTask(task core.ScheduledTask) error {
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

	// Replace any previous registration under the same id first, signalling
	// its in-flight invocation before the job is descheduled.
	if prev, exists := s.jobs[task.ID]; exists {
		prev.scope.Cancel()
		if err := s.scheduler.RemoveJob(prev.jobID); err != nil {
			return errors.InfraError(fmt.Errorf("failed to replace job %s: %w", task.ID, err))
		}
		delete(s.jobs, task.ID)
	}
	delete(s.parked, task.ID)

	if !s.running || !task.Enabled {
		s.parked[task.ID] = task
		return nil
	}

	sc := newChildScope(s.root)
	wrappedFn := s.applyMiddlewares(task.Action)
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(task.Interval),
		gocron.NewTask(func() {
			if sc.Cancelled() {
				return
			}
			ctx := core.WithTask(sc.Context(), task)
			if err := wrappedFn(ctx); err != nil {
				if errors.IsCancellation(err) && sc.Cancelled() {
					// Expected abort from shutdown, not a failure.
					return
				}
				s.reporter.Report(ctx, fmt.Sprintf("task %s (%s) failed", task.ID, task.Name), err)
			}
		}),
	)
	if err != nil {
		sc.Cancel()
		return errors.InfraError(err)
	}

	s.jobs[task.ID] = &gocronEntry{jobID: job.ID(), scope: sc}
	return nil
}

func (s *GocronScheduler) CancelTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, exists := s.jobs[id]; exists {
		e.scope.Cancel()
		if err := s.scheduler.RemoveJob(e.jobID); err != nil {
			s.reporter.Report(context.Background(), fmt.Sprintf("failed to remove job %s", id), err)
		}
		delete(s.jobs, id)
	}
	delete(s.parked, id)
}

func (s *GocronScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *GocronScheduler) TaskCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs) + len(s.parked)
}

func (s *GocronScheduler) TaskIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.jobs)+len(s.parked))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	for id := range s.parked {
		ids = append(ids, id)
	}
	return ids
}
