package internal

import "context"

// AbortHandle cancels an in-flight generation on a conversation. Handles are
// transient: they are never persisted and are nil immediately after load.
// Cancellation is cooperative; the generation task must watch Context and
// stop emitting fragment writes once it is done.
type AbortHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAbortHandle creates a live handle derived from the given parent.
func NewAbortHandle(parent context.Context) *AbortHandle {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &AbortHandle{ctx: ctx, cancel: cancel}
}

// Context is the context the generation task must watch.
func (h *AbortHandle) Context() context.Context {
	return h.ctx
}

// Abort cancels the generation. Safe to call more than once.
func (h *AbortHandle) Abort() {
	h.cancel()
}

// Aborted reports whether the handle has been canceled.
func (h *AbortHandle) Aborted() bool {
	select {
	case <-h.ctx.Done():
		return true
	default:
		return false
	}
}
