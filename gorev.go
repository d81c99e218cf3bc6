package gorev

import (
	"context"
	"log/slog"
	"time"

	"github.com/Deepreo/gorev/core"
	"github.com/Deepreo/gorev/errors"
	"github.com/google/uuid"
)

// DrainTaskID is the identity of the built-in periodic task that drains the
// pending operation queue.
const DrainTaskID = "pending-operations:drain"

// Application, zamanlayıcı, kuyruk ve opsiyonel HTTP yüzeyini bir araya getiren
// kompozisyon köküdür. Bağımlılıklar dışarıdan verilir; nil olanlar atlanır.
type Application struct {
	server    core.Server
	eventBus  core.EventBus
	scheduler core.Scheduler
	queue     core.PendingQueue
	processor core.OperationProcessor
	logger    *slog.Logger
}

func New(server core.Server, eventBus core.EventBus, scheduler core.Scheduler, queue core.PendingQueue, processor core.OperationProcessor, logger *slog.Logger) (*Application, error) {
	if scheduler == nil {
		return nil, errors.ValidationError(errors.New("scheduler is required")).WithCode("APP_NIL_SCHEDULER")
	}
	if queue == nil {
		return nil, errors.ValidationError(errors.New("pending queue is required")).WithCode("APP_NIL_QUEUE")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Application{
		server:    server,
		eventBus:  eventBus,
		scheduler: scheduler,
		queue:     queue,
		processor: processor,
		logger:    logger,
	}, nil
}

// RegisterDrainTask schedules the periodic queue drain. Requires a processor.
func (app *Application) RegisterDrainTask(interval time.Duration) error {
	if app.processor == nil {
		return errors.ValidationError(errors.New("operation processor is required for the drain task")).WithCode("APP_NIL_PROCESSOR")
	}
	return app.scheduler.ScheduleTask(core.ScheduledTask{
		ID:       DrainTaskID,
		Name:     "pending operations drain",
		Interval: interval,
		Enabled:  true,
		Action:   app.drain,
	})
}

func (app *Application) drain(ctx context.Context) error {
	processed, err := app.queue.ProcessAll(ctx, app.processor)
	if err != nil {
		return errors.ActionError(err).WithCode("APP_DRAIN_FAILED")
	}
	remaining, lerr := app.queue.Len(ctx)
	if lerr != nil {
		remaining = -1
	}
	app.logger.Debug("pending operations drained",
		slog.Int("processed", processed),
		slog.Int("remaining", remaining),
	)
	if app.eventBus != nil {
		event := core.QueueDrainedEvent{
			ID:        uuid.NewString(),
			Processed: processed,
			Remaining: remaining,
			At:        time.Now().UTC(),
		}
		if perr := app.eventBus.Publish(ctx, event); perr != nil {
			app.logger.Error("failed to publish queue drained event", slog.Any("err", perr))
		}
	}
	return nil
}

// Run initializes the queue, starts the event bus and the scheduler, and then
// serves HTTP until the server stops. Without a server it blocks on ctx.
func (app *Application) Run(ctx context.Context) error {
	if err := app.queue.Initialize(ctx); err != nil {
		return errors.InfraError(err).WithCode("APP_QUEUE_INIT_FAILED")
	}

	// Start Event Bus
	if app.eventBus != nil {
		go func() {
			if err := app.eventBus.Run(ctx); err != nil {
				app.logger.Error("Event bus failed", slog.Any("err", err))
			}
		}()
	}

	app.scheduler.Start()

	if app.server == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return app.server.Run()
}

// Shutdown stops the scheduler and the HTTP surface. Queued operations are
// left in place so they survive into the next run.
func (app *Application) Shutdown(ctx context.Context) error {
	app.scheduler.Stop()
	if app.server != nil {
		return app.server.Shutdown(ctx)
	}
	return nil
}
