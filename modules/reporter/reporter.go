package reporter

import (
	"context"
	"log/slog"
	"time"

	"github.com/Deepreo/gorev/core"
	"github.com/google/uuid"
)

// Slog writes every report to a structured logger. Task identity is attached
// when the context carries a scheduled task.
type Slog struct {
	log *slog.Logger
}

func NewSlog(log *slog.Logger) *Slog {
	if log == nil {
		log = slog.Default()
	}
	return &Slog{log: log}
}

func (r *Slog) Report(ctx context.Context, message string, err error) {
	attrs := []any{}
	if task, ok := core.TaskFromContext(ctx); ok {
		attrs = append(attrs,
			slog.String("task_id", task.ID),
			slog.String("task_name", task.Name),
		)
	}
	if err != nil {
		attrs = append(attrs, slog.Any("err", err))
		r.log.ErrorContext(ctx, message, attrs...)
		return
	}
	r.log.InfoContext(ctx, message, attrs...)
}

// Nop discards every report.
type Nop struct{}

func NewNop() Nop { return Nop{} }

func (Nop) Report(ctx context.Context, message string, err error) {}

// EventPublisher, raporları core.ReportEvent olarak event bus'a yayınlar.
// Yayın hatası raporlamayı durdurmamalı; bu yüzden hata yutulur ve sadece
// loglanır.
type EventPublisher struct {
	bus core.EventBus
	log *slog.Logger
}

func NewEventPublisher(bus core.EventBus, log *slog.Logger) *EventPublisher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &EventPublisher{bus: bus, log: log}
}

func (r *EventPublisher) Report(ctx context.Context, message string, err error) {
	event := core.ReportEvent{
		ID:      uuid.NewString(),
		Message: message,
		At:      time.Now().UTC(),
	}
	if task, ok := core.TaskFromContext(ctx); ok {
		event.TaskID = task.ID
		event.TaskName = task.Name
	}
	if err != nil {
		event.Error = err.Error()
	}
	if perr := r.bus.Publish(ctx, event); perr != nil {
		r.log.Error("failed to publish report event", slog.Any("err", perr))
	}
}
