package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Deepreo/gorev/core"
	gorevErrors "github.com/Deepreo/gorev/errors"
	"github.com/Deepreo/gorev/modules/scheduler"
	"github.com/stretchr/testify/assert"
)

// captureReporter records reported failures for assertions.
type captureReporter struct {
	mu       sync.Mutex
	messages []string
	errs     []error
}

func (r *captureReporter) Report(ctx context.Context, message string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	r.errs = append(r.errs, err)
}

func (r *captureReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func TestInMemoryScheduler_Heartbeat(t *testing.T) {
	s := scheduler.NewInMemoryScheduler(nil)
	s.Start()
	defer s.Stop()

	var invocations atomic.Int64
	err := s.ScheduleTask(core.ScheduledTask{
		ID:       "heartbeat",
		Name:     "heartbeat",
		Interval: 100 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			invocations.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)

	time.Sleep(1050 * time.Millisecond)
	got := invocations.Load()
	assert.GreaterOrEqual(t, got, int64(9), "expected at least 9 invocations within a second")
}

func TestInMemoryScheduler_NilAction(t *testing.T) {
	s := scheduler.NewInMemoryScheduler(nil)
	s.Start()
	defer s.Stop()

	err := s.ScheduleTask(core.ScheduledTask{ID: "broken", Interval: time.Second, Enabled: true})
	assert.Error(t, err)

	var extendErr *gorevErrors.ExtendError
	assert.True(t, gorevErrors.As(err, &extendErr))
	assert.True(t, gorevErrors.IsValidationError(extendErr))
	assert.Equal(t, 0, s.TaskCount(), "invalid task must not be recorded")
}

func TestInMemoryScheduler_NonPositiveInterval(t *testing.T) {
	s := scheduler.NewInMemoryScheduler(nil)

	err := s.ScheduleTask(core.ScheduledTask{
		ID:      "bad-interval",
		Enabled: true,
		Action:  func(ctx context.Context) error { return nil },
	})
	assert.Error(t, err)

	var extendErr *gorevErrors.ExtendError
	assert.True(t, gorevErrors.As(err, &extendErr))
	assert.True(t, gorevErrors.IsValidationError(extendErr))
}

func TestInMemoryScheduler_ReplaceTask(t *testing.T) {
	s := scheduler.NewInMemoryScheduler(nil)
	s.Start()
	defer s.Stop()

	var oldRuns, newRuns atomic.Int64
	err := s.ScheduleTask(core.ScheduledTask{
		ID:       "worker",
		Interval: 50 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			oldRuns.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)

	time.Sleep(180 * time.Millisecond)
	assert.Greater(t, oldRuns.Load(), int64(0))

	// Re-scheduling the same id must cancel the previous loop first.
	err = s.ScheduleTask(core.ScheduledTask{
		ID:       "worker",
		Interval: 50 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			newRuns.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, s.TaskCount())

	frozen := oldRuns.Load()
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, frozen, oldRuns.Load(), "old loop must not run after replacement")
	assert.Greater(t, newRuns.Load(), int64(0), "new loop must run")
}

func TestInMemoryScheduler_CancelTask(t *testing.T) {
	s := scheduler.NewInMemoryScheduler(nil)
	s.Start()
	defer s.Stop()

	var runs atomic.Int64
	err := s.ScheduleTask(core.ScheduledTask{
		ID:       "cancel-me",
		Interval: 50 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)

	time.Sleep(180 * time.Millisecond)
	s.CancelTask("cancel-me")
	assert.Equal(t, 0, s.TaskCount())

	frozen := runs.Load()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, frozen, runs.Load(), "no invocations after cancellation")

	// Unknown ids are a silent no-op.
	s.CancelTask("never-existed")
}

func TestInMemoryScheduler_ScheduleWhileStopped(t *testing.T) {
	s := scheduler.NewInMemoryScheduler(nil)

	var runs atomic.Int64
	err := s.ScheduleTask(core.ScheduledTask{
		ID:       "early-bird",
		Interval: 30 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, s.TaskCount(), "task is recorded even while stopped")

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int64(0), runs.Load(), "no invocation before Start")

	// Start does not retroactively start loops; registration does.
	s.Start()
	defer s.Stop()
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int64(0), runs.Load(), "Start alone must not start the loop")

	err = s.ScheduleTask(core.ScheduledTask{
		ID:       "early-bird",
		Interval: 30 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)
	time.Sleep(120 * time.Millisecond)
	assert.Greater(t, runs.Load(), int64(0), "re-registration on a running scheduler starts the loop")
}

func TestInMemoryScheduler_DisabledTask(t *testing.T) {
	s := scheduler.NewInMemoryScheduler(nil)
	s.Start()
	defer s.Stop()

	var runs atomic.Int64
	err := s.ScheduleTask(core.ScheduledTask{
		ID:       "sleeper",
		Interval: 30 * time.Millisecond,
		Enabled:  false,
		Action: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, s.TaskCount())

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(0), runs.Load(), "disabled task must never run")
}

func TestInMemoryScheduler_FailureIsolation(t *testing.T) {
	reporter := &captureReporter{}
	s := scheduler.NewInMemoryScheduler(reporter)
	s.Start()
	defer s.Stop()

	var failingRuns, healthyRuns atomic.Int64
	err := s.ScheduleTask(core.ScheduledTask{
		ID:       "flaky",
		Name:     "always-fails",
		Interval: 40 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			failingRuns.Add(1)
			return errors.New("boom")
		},
	})
	assert.NoError(t, err)

	err = s.ScheduleTask(core.ScheduledTask{
		ID:       "steady",
		Interval: 40 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			healthyRuns.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)

	time.Sleep(300 * time.Millisecond)

	assert.GreaterOrEqual(t, failingRuns.Load(), int64(3), "failing task keeps being invoked")
	assert.GreaterOrEqual(t, healthyRuns.Load(), int64(3), "healthy task unaffected by sibling failures")
	assert.Equal(t, 2, s.TaskCount(), "failures must not evict tasks")
	assert.GreaterOrEqual(t, reporter.count(), 3, "every failure is reported")
}

func TestInMemoryScheduler_StopClearsTasks(t *testing.T) {
	s := scheduler.NewInMemoryScheduler(nil)
	s.Start()

	var runs atomic.Int64
	err := s.ScheduleTask(core.ScheduledTask{
		ID:       "doomed",
		Interval: 30 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Equal(t, 0, s.TaskCount(), "Stop clears the registry")

	frozen := runs.Load()
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, frozen, runs.Load(), "no invocations after Stop")

	// Both lifecycle calls are idempotent.
	s.Stop()
	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())
	s.Stop()
}

func TestInMemoryScheduler_Middleware(t *testing.T) {
	s := scheduler.NewInMemoryScheduler(nil)
	s.Start()
	defer s.Stop()

	var middlewareCalled atomic.Bool
	s.Use(func(next core.ActionFunc) core.ActionFunc {
		return func(ctx context.Context) error {
			middlewareCalled.Store(true)
			return next(ctx)
		}
	})

	done := make(chan struct{})
	var once sync.Once
	err := s.ScheduleTask(core.ScheduledTask{
		ID:       "wrapped",
		Interval: 50 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			once.Do(func() { close(done) })
			return nil
		},
	})
	assert.NoError(t, err)

	select {
	case <-done:
		assert.True(t, middlewareCalled.Load(), "middleware should have been called")
	case <-time.After(time.Second):
		t.Fatal("task did not run in time")
	}
}

func TestInMemoryScheduler_CancellationNotReported(t *testing.T) {
	reporter := &captureReporter{}
	s := scheduler.NewInMemoryScheduler(reporter)
	s.Start()

	started := make(chan struct{})
	var startOnce sync.Once
	err := s.ScheduleTask(core.ScheduledTask{
		ID:       "blocker",
		Interval: 20 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			startOnce.Do(func() { close(started) })
			<-ctx.Done()
			return ctx.Err()
		},
	})
	assert.NoError(t, err)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("action did not start in time")
	}

	// Stop fires mid-invocation; the ctx.Err() the action returns is an
	// expected abort and must never reach the reporter.
	s.Stop()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, reporter.count(), "cancellation-triggered abort must not be reported")
}

func TestInMemoryScheduler_GeneratedID(t *testing.T) {
	s := scheduler.NewInMemoryScheduler(nil)
	s.Start()
	defer s.Stop()

	err := s.ScheduleTask(core.ScheduledTask{
		Interval: time.Minute,
		Enabled:  true,
		Action:   func(ctx context.Context) error { return nil },
	})
	assert.NoError(t, err)

	ids := s.TaskIDs()
	assert.Len(t, ids, 1)
	assert.NotEmpty(t, ids[0], "an id is generated when not supplied")
}

func TestInMemoryScheduler_TaskContext(t *testing.T) {
	s := scheduler.NewInMemoryScheduler(nil)
	s.Start()
	defer s.Stop()

	got := make(chan core.ScheduledTask, 1)
	var once sync.Once
	err := s.ScheduleTask(core.ScheduledTask{
		ID:       "ctx-task",
		Name:     "context check",
		Interval: 40 * time.Millisecond,
		Enabled:  true,
		Action: func(ctx context.Context) error {
			if task, ok := core.TaskFromContext(ctx); ok {
				once.Do(func() { got <- task })
			}
			return nil
		},
	})
	assert.NoError(t, err)

	select {
	case task := <-got:
		assert.Equal(t, "ctx-task", task.ID)
		assert.Equal(t, "context check", task.Name)
	case <-time.After(time.Second):
		t.Fatal("task context was not populated")
	}
}
