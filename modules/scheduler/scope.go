package scheduler

import "context"

// scope is one node in the cancellation tree. Cancelling the root cancels
// every linked child transitively; cancelling a child leaves its siblings and
// the parent untouched. Once cancelled, a scope stays cancelled.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newRootScope() *scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &scope{ctx: ctx, cancel: cancel}
}

func newChildScope(parent *scope) *scope {
	ctx, cancel := context.WithCancel(parent.ctx)
	return &scope{ctx: ctx, cancel: cancel}
}

// Cancel signals all observers exactly once and releases the link to the
// parent. Idempotent and safe from any goroutine.
func (s *scope) Cancel() {
	s.cancel()
}

func (s *scope) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *scope) Cancelled() bool {
	return s.ctx.Err() != nil
}

// Context exposes the scope as a context.Context so actions can observe the
// cancellation signal.
func (s *scope) Context() context.Context {
	return s.ctx
}
