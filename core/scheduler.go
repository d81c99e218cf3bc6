package core

import (
	"context"
	"time"
)

// ActionFunc is the unit of work bound to a scheduled task. The context carries
// the task's cancellation signal; long-running actions should observe it.
type ActionFunc func(ctx context.Context) error

// SchedulerMiddleware wraps an ActionFunc to add cross-cutting concerns.
type SchedulerMiddleware func(next ActionFunc) ActionFunc

// ScheduledTask, zamanlayıcıya kaydedilen periyodik bir işi tanımlar.
// ID boş bırakılırsa kayıt sırasında üretilir ve görevin ömrü boyunca değişmez.
type ScheduledTask struct {
	// ID is the unique identity of the task. Re-scheduling with the same ID
	// replaces the previous registration.
	ID string
	// Name is a human readable label for diagnostics only; it is not unique.
	Name string
	// Action is invoked once per interval. Required.
	Action ActionFunc
	// Interval is the fixed wait between successive invocations. Must be > 0.
	Interval time.Duration
	// Enabled gates execution. A disabled task is recorded but never runs.
	Enabled bool
}

// Scheduler defines the interface for registering periodic background tasks.
//
// Start and Stop are idempotent. ScheduleTask and CancelTask are valid in both
// states, but a task only produces live execution while the scheduler runs and
// the task is enabled. Failures inside actions never propagate to the caller
// or to other tasks; they are handed to the Reporter.
type Scheduler interface {
	Start()
	Stop()
	ScheduleTask(task ScheduledTask) error
	CancelTask(id string)
	IsRunning() bool
	TaskCount() int
	TaskIDs() []string
	Use(middleware ...SchedulerMiddleware)
}

type taskContextKey struct{}

// WithTask, görev bilgisini context'e ekler. Runner her çağrıdan önce bunu
// kullanır; middleware'ler görev kimliğine buradan erişir.
func WithTask(ctx context.Context, task ScheduledTask) context.Context {
	return context.WithValue(ctx, taskContextKey{}, task)
}

// TaskFromContext returns the task bound to an action invocation, if any.
func TaskFromContext(ctx context.Context) (ScheduledTask, bool) {
	task, ok := ctx.Value(taskContextKey{}).(ScheduledTask)
	return task, ok
}
