package gorev_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	gorev "github.com/Deepreo/gorev"
	"github.com/Deepreo/gorev/core"
	"github.com/Deepreo/gorev/modules/process"
	"github.com/Deepreo/gorev/modules/queue"
	"github.com/Deepreo/gorev/modules/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplication_New(t *testing.T) {
	q := queue.NewInMemoryQueue(nil)
	sched := scheduler.NewInMemoryScheduler(nil)

	_, err := gorev.New(nil, nil, nil, q, nil, nil)
	assert.Error(t, err, "scheduler is required")

	_, err = gorev.New(nil, nil, sched, nil, nil, nil)
	assert.Error(t, err, "queue is required")

	app, err := gorev.New(nil, nil, sched, q, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, app)

	err = app.RegisterDrainTask(time.Second)
	assert.Error(t, err, "drain task needs a processor")
}

func TestApplication_DrainTask(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(nil)
	require.NoError(t, q.Initialize(ctx))

	var processed atomic.Int64
	reg := process.NewRegistry()
	require.NoError(t, reg.Register("sync", func(ctx context.Context, op core.PendingOperation) error {
		processed.Add(1)
		return nil
	}))

	sched := scheduler.NewInMemoryScheduler(nil)
	app, err := gorev.New(nil, nil, sched, q, reg, nil)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ctx, &core.PendingOperation{OperationType: "sync"}))
	require.NoError(t, q.Enqueue(ctx, &core.PendingOperation{OperationType: "sync"}))

	sched.Start()
	require.NoError(t, app.RegisterDrainTask(30*time.Millisecond))
	assert.Contains(t, sched.TaskIDs(), gorev.DrainTaskID)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int64(2), processed.Load())

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, app.Shutdown(ctx))
	assert.False(t, sched.IsRunning())
}
