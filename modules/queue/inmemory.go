package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Deepreo/gorev/core"
	"github.com/Deepreo/gorev/errors"
	"github.com/google/uuid"
)

var (
	ErrNilOperation = errors.New("pending operation is required")
	ErrNilProcessor = errors.New("operation processor is required")
)

// InMemoryQueue is the reference core.PendingQueue: a mutex-guarded FIFO slice
// with bounded retry bookkeeping. Safe under arbitrary concurrent enqueuers
// and a draining caller.
type InMemoryQueue struct {
	mu          sync.Mutex
	ops         []core.PendingOperation
	initialized bool
	log         *slog.Logger
}

func NewInMemoryQueue(log *slog.Logger) *InMemoryQueue {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &InMemoryQueue{log: log}
}

func (q *InMemoryQueue) Initialize(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.initialized = true
	return nil
}

// Shutdown clears all queued operations. Enqueue after Shutdown stays valid;
// the flag only makes repeated lifecycle calls harmless.
func (q *InMemoryQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = nil
	q.initialized = false
	return nil
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, op *core.PendingOperation) error {
	if op == nil {
		return errors.ValidationError(ErrNilOperation).WithCode("QUEUE_NIL_OPERATION")
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, *op)
	return nil
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) (*core.PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ops) == 0 {
		return nil, nil
	}
	head := q.ops[0]
	q.ops = q.ops[1:]
	return &head, nil
}

func (q *InMemoryQueue) Peek(ctx context.Context) (*core.PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ops) == 0 {
		return nil, nil
	}
	head := q.ops[0]
	return &head, nil
}

func (q *InMemoryQueue) GetAll(ctx context.Context) ([]core.PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	snapshot := make([]core.PendingOperation, len(q.ops))
	copy(snapshot, q.ops)
	return snapshot, nil
}

func (q *InMemoryQueue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops), nil
}

// ProcessAll drains the operations present when the call begins; the count is
// taken once, so concurrent enqueues (including retries re-enqueued by this
// very loop) wait for the next call.
func (q *InMemoryQueue) ProcessAll(ctx context.Context, processor core.OperationProcessor) (int, error) {
	if processor == nil {
		return 0, errors.ValidationError(ErrNilProcessor).WithCode("QUEUE_NIL_PROCESSOR")
	}

	q.mu.Lock()
	pending := len(q.ops)
	q.mu.Unlock()

	processed := 0
	for i := 0; i < pending; i++ {
		op, err := q.Dequeue(ctx)
		if err != nil {
			return processed, err
		}
		if op == nil {
			break
		}
		processed++
		if perr := processor.Process(ctx, *op); perr != nil {
			q.handleFailure(*op, perr)
		}
	}
	return processed, nil
}

// handleFailure re-enqueues a retryable operation at the tail, keeping its
// identity and CreatedAt, or discards it once the budget is spent.
func (q *InMemoryQueue) handleFailure(op core.PendingOperation, perr error) {
	if op.RetryCount < op.MaxRetries {
		op.RetryCount++
		q.mu.Lock()
		q.ops = append(q.ops, op)
		q.mu.Unlock()
		q.log.Debug("operation re-enqueued for retry",
			slog.String("id", op.ID),
			slog.String("operation_type", op.OperationType),
			slog.Int("retry_count", op.RetryCount),
			slog.Any("err", perr),
		)
		return
	}
	q.log.Warn("operation discarded after exhausting retry budget",
		slog.String("id", op.ID),
		slog.String("operation_type", op.OperationType),
		slog.Int("max_retries", op.MaxRetries),
		slog.Any("err", perr),
	)
}
