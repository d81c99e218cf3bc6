package core

import "context"

// Reporter is the diagnostic collaborator for task failures and scheduler
// lifecycle messages. The scheduler behaves identically with a no-op
// implementation; nothing is ever escalated beyond reporting.
type Reporter interface {
	Report(ctx context.Context, message string, err error)
}

// ReporterFunc adapts a plain function to the Reporter interface.
type ReporterFunc func(ctx context.Context, message string, err error)

func (f ReporterFunc) Report(ctx context.Context, message string, err error) {
	f(ctx, message, err)
}
