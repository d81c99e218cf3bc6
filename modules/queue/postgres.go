package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Deepreo/gorev/core"
	"github.com/Deepreo/gorev/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PostgresQueue persists pending operations in a single table ordered by a
// serial position column, so FIFO order survives process restarts. Dequeue
// uses FOR UPDATE SKIP LOCKED, which keeps concurrent drains from observing
// the same head row.
type PostgresQueue struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresQueue(ctx context.Context, cfg *PostgresConfig, log *slog.Logger) (*PostgresQueue, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &PostgresQueue{pool: pool, log: log}, nil
}

func (q *PostgresQueue) Initialize(ctx context.Context) error {
	_, err := q.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS gorev_pending_operations (
			pos            BIGSERIAL PRIMARY KEY,
			id             TEXT NOT NULL,
			operation_type TEXT NOT NULL,
			payload        BYTEA,
			created_at     TIMESTAMPTZ NOT NULL,
			retry_count    INT NOT NULL DEFAULT 0,
			max_retries    INT NOT NULL DEFAULT 0
		)`)
	if err != nil {
		return fmt.Errorf("failed to create pending operations table: %w", err)
	}
	return nil
}

// Shutdown clears all queued operations; the pool stays usable afterwards.
func (q *PostgresQueue) Shutdown(ctx context.Context) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM gorev_pending_operations`)
	if err != nil {
		return fmt.Errorf("failed to clear pending operations: %w", err)
	}
	return nil
}

func (q *PostgresQueue) Close() {
	q.pool.Close()
}

// HealthCheck returns nil if the database is reachable
func (q *PostgresQueue) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	return q.pool.Ping(ctx)
}

func (q *PostgresQueue) Enqueue(ctx context.Context, op *core.PendingOperation) error {
	if op == nil {
		return errors.ValidationError(ErrNilOperation).WithCode("QUEUE_NIL_OPERATION")
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	_, err := q.pool.Exec(ctx, `
		INSERT INTO gorev_pending_operations (id, operation_type, payload, created_at, retry_count, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		op.ID, op.OperationType, op.Payload, op.CreatedAt, op.RetryCount, op.MaxRetries)
	if err != nil {
		return fmt.Errorf("failed to enqueue operation %s: %w", op.ID, err)
	}
	return nil
}

func (q *PostgresQueue) Dequeue(ctx context.Context) (*core.PendingOperation, error) {
	row := q.pool.QueryRow(ctx, `
		DELETE FROM gorev_pending_operations
		WHERE pos = (
			SELECT pos FROM gorev_pending_operations
			ORDER BY pos
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, operation_type, payload, created_at, retry_count, max_retries`)

	var op core.PendingOperation
	err := row.Scan(&op.ID, &op.OperationType, &op.Payload, &op.CreatedAt, &op.RetryCount, &op.MaxRetries)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue operation: %w", err)
	}
	return &op, nil
}

func (q *PostgresQueue) Peek(ctx context.Context) (*core.PendingOperation, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, operation_type, payload, created_at, retry_count, max_retries
		FROM gorev_pending_operations
		ORDER BY pos
		LIMIT 1`)

	var op core.PendingOperation
	err := row.Scan(&op.ID, &op.OperationType, &op.Payload, &op.CreatedAt, &op.RetryCount, &op.MaxRetries)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue head: %w", err)
	}
	return &op, nil
}

func (q *PostgresQueue) GetAll(ctx context.Context) ([]core.PendingOperation, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, operation_type, payload, created_at, retry_count, max_retries
		FROM gorev_pending_operations
		ORDER BY pos`)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var ops []core.PendingOperation
	for rows.Next() {
		var op core.PendingOperation
		if err := rows.Scan(&op.ID, &op.OperationType, &op.Payload, &op.CreatedAt, &op.RetryCount, &op.MaxRetries); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (q *PostgresQueue) Len(ctx context.Context) (int, error) {
	var n int
	if err := q.pool.QueryRow(ctx, `SELECT count(*) FROM gorev_pending_operations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}
	return n, nil
}

func (q *PostgresQueue) ProcessAll(ctx context.Context, processor core.OperationProcessor) (int, error) {
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

func (q *PostgresQueue) handleFailure(ctx context.Context, op core.PendingOperation, perr error) error {
	if op.RetryCount < op.MaxRetries {
		op.RetryCount++
		q.log.Debug("operation re-enqueued for retry",
			slog.String("id", op.ID),
			slog.String("operation_type", op.OperationType),
			slog.Int("retry_count", op.RetryCount),
			slog.Any("err", perr),
		)
		_, err := q.pool.Exec(ctx, `
			INSERT INTO gorev_pending_operations (id, operation_type, payload, created_at, retry_count, max_retries)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			op.ID, op.OperationType, op.Payload, op.CreatedAt, op.RetryCount, op.MaxRetries)
		if err != nil {
			return fmt.Errorf("failed to re-enqueue operation %s: %w", op.ID, err)
		}
		return nil
	}
	q.log.Warn("operation discarded after exhausting retry budget",
		slog.String("id", op.ID),
		slog.String("operation_type", op.OperationType),
		slog.Int("max_retries", op.MaxRetries),
		slog.Any("err", perr),
	)
	return nil
}
