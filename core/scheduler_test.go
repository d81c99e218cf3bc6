package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/Deepreo/gorev/core"
)

// mockScheduler implements core.Scheduler for testing purposes
type mockScheduler struct {
	tasks   map[string]core.ScheduledTask
	running bool
}

func (s *mockScheduler) Start() { s.running = true }

func (s *mockScheduler) Stop() {
	s.running = false
	s.tasks = make(map[string]core.ScheduledTask)
}

func (s *mockScheduler) ScheduleTask(task core.ScheduledTask) error {
	if s.tasks == nil {
		s.tasks = make(map[string]core.ScheduledTask)
	}
	s.tasks[task.ID] = task
	return nil
}

func (s *mockScheduler) CancelTask(id string) {
	delete(s.tasks, id)
}

func (s *mockScheduler) IsRunning() bool { return s.running }

func (s *mockScheduler) TaskCount() int { return len(s.tasks) }

func (s *mockScheduler) TaskIDs() []string {
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	return ids
}

func (s *mockScheduler) Use(middleware ...core.SchedulerMiddleware) {}

func TestSchedulerInterface(t *testing.T) {
	// Verify that mockScheduler implements core.Scheduler
	var _ core.Scheduler = (*mockScheduler)(nil)

	t.Run("ScheduleTask", func(t *testing.T) {
		scheduler := &mockScheduler{}
		err := scheduler.ScheduleTask(core.ScheduledTask{
			ID:       "test-task",
			Interval: time.Minute,
			Enabled:  true,
			Action: func(ctx context.Context) error {
				return nil
			},
		})

		if err != nil {
			t.Errorf("ScheduleTask failed: %v", err)
		}

		if _, ok := scheduler.tasks["test-task"]; !ok {
			t.Error("Task was not registered")
		}
	})

	t.Run("Middleware Definition", func(t *testing.T) {
		// Verify Middleware type definition
		var _ core.SchedulerMiddleware = func(next core.ActionFunc) core.ActionFunc {
			return func(ctx context.Context) error {
				return next(ctx)
			}
		}
	})
}

func TestTaskContext(t *testing.T) {
	task := core.ScheduledTask{ID: "id-1", Name: "heartbeat"}
	ctx := core.WithTask(context.Background(), task)

	got, ok := core.TaskFromContext(ctx)
	if !ok {
		t.Fatal("Task was not found in context")
	}
	if got.ID != task.ID || got.Name != task.Name {
		t.Errorf("Expected task %v, got %v", task, got)
	}

	if _, ok := core.TaskFromContext(context.Background()); ok {
		t.Error("Unexpected task in empty context")
	}
}
