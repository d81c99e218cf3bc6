package servers

import (
	"context"
	"fmt"
	"time"

	"github.com/Deepreo/gorev/core"
	"github.com/Deepreo/gorev/errors"
)

// Status endpoint'leri, çalışan bir uygulamanın zamanlayıcı ve kuyruk durumunu
// dışarıdan gözlemlemek ve operasyon kuyruğuna iş bırakmak için kullanılır.

type SchedulerStatusRequest struct{}

func (r SchedulerStatusRequest) Validate() error { return nil }

type SchedulerStatusResponse struct {
	Running   bool     `json:"running"`
	TaskCount int      `json:"task_count"`
	TaskIDs   []string `json:"task_ids"`
}

type schedulerStatusHandler struct {
	scheduler core.Scheduler
}

func (h *schedulerStatusHandler) Handle(ctx context.Context, req SchedulerStatusRequest) (SchedulerStatusResponse, error) {
	return SchedulerStatusResponse{
		Running:   h.scheduler.IsRunning(),
		TaskCount: h.scheduler.TaskCount(),
		TaskIDs:   h.scheduler.TaskIDs(),
	}, nil
}

type ListTasksRequest struct{}

func (r ListTasksRequest) Validate() error { return nil }

type ListTasksResponse struct {
	Count   int      `json:"count"`
	TaskIDs []string `json:"task_ids"`
}

type listTasksHandler struct {
	scheduler core.Scheduler
}

func (h *listTasksHandler) Handle(ctx context.Context, req ListTasksRequest) (ListTasksResponse, error) {
	ids := h.scheduler.TaskIDs()
	return ListTasksResponse{Count: len(ids), TaskIDs: ids}, nil
}

type ListOperationsRequest struct{}

func (r ListOperationsRequest) Validate() error { return nil }

type ListOperationsResponse struct {
	Count      int                     `json:"count"`
	Operations []core.PendingOperation `json:"operations"`
}

type listOperationsHandler struct {
	queue core.PendingQueue
}

func (h *listOperationsHandler) Handle(ctx context.Context, req ListOperationsRequest) (ListOperationsResponse, error) {
	ops, err := h.queue.GetAll(ctx)
	if err != nil {
		return ListOperationsResponse{}, errors.InfraError(err).WithCode("QUEUE_LIST_FAILED")
	}
	return ListOperationsResponse{Count: len(ops), Operations: ops}, nil
}

type EnqueueOperationRequest struct {
	OperationType string `json:"operation_type"`
	Payload       []byte `json:"payload"`
	MaxRetries    int    `json:"max_retries"`
}

func (r EnqueueOperationRequest) Validate() error {
	if r.OperationType == "" {
		return fmt.Errorf("operation_type is required")
	}
	if r.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0")
	}
	return nil
}

type EnqueueOperationResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type enqueueOperationHandler struct {
	queue core.PendingQueue
}

func (h *enqueueOperationHandler) Handle(ctx context.Context, req EnqueueOperationRequest) (EnqueueOperationResponse, error) {
	op := &core.PendingOperation{
		OperationType: req.OperationType,
		Payload:       req.Payload,
		MaxRetries:    req.MaxRetries,
	}
	if err := h.queue.Enqueue(ctx, op); err != nil {
		return EnqueueOperationResponse{}, err
	}
	return EnqueueOperationResponse{ID: op.ID, CreatedAt: op.CreatedAt}, nil
}

type DrainRequest struct{}

func (r DrainRequest) Validate() error { return nil }

type DrainResponse struct {
	Processed int `json:"processed"`
	Remaining int `json:"remaining"`
}

type drainHandler struct {
	queue     core.PendingQueue
	processor core.OperationProcessor
}

func (h *drainHandler) Handle(ctx context.Context, req DrainRequest) (DrainResponse, error) {
	processed, err := h.queue.ProcessAll(ctx, h.processor)
	if err != nil {
		return DrainResponse{}, err
	}
	remaining, err := h.queue.Len(ctx)
	if err != nil {
		return DrainResponse{}, errors.InfraError(err).WithCode("QUEUE_LEN_FAILED")
	}
	return DrainResponse{Processed: processed, Remaining: remaining}, nil
}

// RegisterStatusEndpoints binds the operational surface onto a server.
func RegisterStatusEndpoints(server core.Server, scheduler core.Scheduler, queue core.PendingQueue, processor core.OperationProcessor) {
	core.RegisterEndpoint[SchedulerStatusRequest, SchedulerStatusResponse](server, "GET", "/scheduler/status", &schedulerStatusHandler{scheduler: scheduler})
	core.RegisterEndpoint[ListTasksRequest, ListTasksResponse](server, "GET", "/scheduler/tasks", &listTasksHandler{scheduler: scheduler})
	core.RegisterEndpoint[ListOperationsRequest, ListOperationsResponse](server, "GET", "/queue/operations", &listOperationsHandler{queue: queue})
	core.RegisterEndpoint[EnqueueOperationRequest, EnqueueOperationResponse](server, "POST", "/queue/operations", &enqueueOperationHandler{queue: queue})
	core.RegisterEndpoint[DrainRequest, DrainResponse](server, "POST", "/queue/process", &drainHandler{queue: queue, processor: processor})
}
