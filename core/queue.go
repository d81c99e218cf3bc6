package core

import (
	"context"
	"time"
)

// PendingOperation is a unit of deferred work held by a PendingQueue until a
// processor consumes it or its retry budget runs out.
type PendingOperation struct {
	// ID is the unique identity of the operation; generated on enqueue when empty.
	ID string `json:"id"`
	// OperationType tags the kind of work. Interpreted by the processor, not
	// by the queue.
	OperationType string `json:"operation_type"`
	// Payload is opaque data carried with the operation.
	Payload []byte `json:"payload,omitempty"`
	// CreatedAt is set on enqueue and never changes, also across retries.
	CreatedAt time.Time `json:"created_at"`
	// RetryCount starts at 0 and is incremented on each failed attempt.
	RetryCount int `json:"retry_count"`
	// MaxRetries is the retry budget. Once RetryCount reaches it, the
	// operation is discarded instead of re-enqueued.
	MaxRetries int `json:"max_retries"`
}

// OperationProcessor is the external collaborator that consumes dequeued
// operations during ProcessAll.
type OperationProcessor interface {
	Process(ctx context.Context, op PendingOperation) error
}

// ProcessorFunc adapts a plain function to the OperationProcessor interface.
type ProcessorFunc func(ctx context.Context, op PendingOperation) error

func (f ProcessorFunc) Process(ctx context.Context, op PendingOperation) error {
	return f(ctx, op)
}

// PendingQueue, ertelenmiş operasyonlar için FIFO sıralı ve eşzamanlı erişime
// dayanıklı bir kuyruğu tanımlar. Sıra garantisi: yeniden kuyruğa alınan
// (retry edilen) bir operasyon her zaman kuyruğun sonuna gider.
//
// Dequeue and Peek never block; an empty queue yields (nil, nil).
type PendingQueue interface {
	// Initialize prepares the backing store. Idempotent.
	Initialize(ctx context.Context) error
	// Shutdown clears all queued operations. Idempotent. Enqueue after
	// Shutdown is accepted.
	Shutdown(ctx context.Context) error
	// Enqueue appends to the tail, filling ID and CreatedAt when unset.
	Enqueue(ctx context.Context, op *PendingOperation) error
	// Dequeue removes and returns the head, or (nil, nil) when empty.
	Dequeue(ctx context.Context) (*PendingOperation, error)
	// Peek returns the head without removing it, or (nil, nil) when empty.
	Peek(ctx context.Context) (*PendingOperation, error)
	// GetAll returns a head-to-tail snapshot of the queued operations.
	GetAll(ctx context.Context) ([]PendingOperation, error)
	// Len returns the current number of queued operations.
	Len(ctx context.Context) (int, error)
	// ProcessAll drains exactly the operations present when the call begins
	// and hands each to the processor. A failed operation below its retry
	// budget is re-enqueued at the tail with RetryCount incremented; one at
	// the budget is discarded. Operations enqueued during the drain wait for
	// the next call. Returns the number of operations handed to the processor.
	ProcessAll(ctx context.Context, processor OperationProcessor) (int, error)
}
