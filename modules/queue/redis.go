package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Deepreo/gorev/core"
	"github.com/Deepreo/gorev/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RedisQueue, core.PendingQueue arayüzünün redis list tabanlı
// implementasyonudur. Operasyonlar JSON olarak saklanır; RPUSH/LPOP ikilisi
// FIFO sırasını ve retry'ın kuyruğun sonuna gitmesini garanti eder.
type RedisQueue struct {
	client *redis.Client
	key    string
	log    *slog.Logger
}

func NewRedisQueue(ctx context.Context, cfg *RedisConfig, log *slog.Logger) (*RedisQueue, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &RedisQueue{
		client: client,
		key:    cfg.Prefix + "pending_operations",
		log:    log,
	}, nil
}

func (q *RedisQueue) Initialize(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Shutdown clears all queued operations. The connection stays open so later
// Enqueue calls are still accepted.
func (q *RedisQueue) Shutdown(ctx context.Context) error {
	return q.client.Del(ctx, q.key).Err()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) HealthCheck(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Enqueue(ctx context.Context, op *core.PendingOperation) error {
	if op == nil {
		return errors.ValidationError(ErrNilOperation).WithCode("QUEUE_NIL_OPERATION")
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to encode operation %s: %w", op.ID, err)
	}
	return q.client.RPush(ctx, q.key, payload).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*core.PendingOperation, error) {
	raw, err := q.client.LPop(ctx, q.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop operation: %w", err)
	}
	return decodeOperation(raw)
}

func (q *RedisQueue) Peek(ctx context.Context) (*core.PendingOperation, error) {
	raw, err := q.client.LIndex(ctx, q.key, 0).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue head: %w", err)
	}
	return decodeOperation(raw)
}

func (q *RedisQueue) GetAll(ctx context.Context) ([]core.PendingOperation, error) {
	raws, err := q.client.LRange(ctx, q.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	ops := make([]core.PendingOperation, 0, len(raws))
	for _, raw := range raws {
		op, err := decodeOperation([]byte(raw))
		if err != nil {
			return nil, err
		}
		ops = append(ops, *op)
	}
	return ops, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return int(n), nil
}

func (q *RedisQueue) ProcessAll(ctx context.Context, processor core.OperationProcessor) (int, error) {
	if processor == nil {
		return 0, errors.ValidationError(ErrNilProcessor).WithCode("QUEUE_NIL_PROCESSOR")
	}

	pending, err := q.Len(ctx)
	if err != nil {
		return 0, err
	}

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
			if err := q.handleFailure(ctx, *op, perr); err != nil {
				return processed, err
			}
		}
	}
	return processed, nil
}

func (q *RedisQueue) handleFailure(ctx context.Context, op core.PendingOperation, perr error) error {
	if op.RetryCount < op.MaxRetries {
		op.RetryCount++
		payload, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("failed to encode operation %s for retry: %w", op.ID, err)
		}
		q.log.Debug("operation re-enqueued for retry",
			slog.String("id", op.ID),
			slog.String("operation_type", op.OperationType),
			slog.Int("retry_count", op.RetryCount),
			slog.Any("err", perr),
		)
		return q.client.RPush(ctx, q.key, payload).Err()
	}
	q.log.Warn("operation discarded after exhausting retry budget",
		slog.String("id", op.ID),
		slog.String("operation_type", op.OperationType),
		slog.Int("max_retries", op.MaxRetries),
		slog.Any("err", perr),
	)
	return nil
}

func decodeOperation(raw []byte) (*core.PendingOperation, error) {
	var op core.PendingOperation
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, fmt.Errorf("failed to decode operation: %w", err)
	}
	return &op, nil
}
