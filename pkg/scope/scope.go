// Package scope provides a renewable cancellation root.
//
// A Scope hands out contexts derived from its current generation. Reset swaps
// in a fresh generation and cancels the previous one, so every operation
// started before the reset observes cancellation while operations started
// afterwards run under a clean context.
package scope

import (
	"context"
	"sync/atomic"
)

type generation struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc
}

func newGeneration(id uint64) *generation {
	ctx, cancel := context.WithCancel(context.Background())
	return &generation{id: id, ctx: ctx, cancel: cancel}
}

// Scope is safe for concurrent use. Generations are immutable once published.
type Scope struct {
	current atomic.Pointer[generation]
	closed  atomic.Bool
}

// New returns a Scope with an uncancelled first generation.
func New() *Scope {
	s := &Scope{}
	s.current.Store(newGeneration(1))
	return s
}

// Context returns the context of the current generation.
func (s *Scope) Context() context.Context {
	return s.current.Load().ctx
}

// Generation returns the id of the current generation.
func (s *Scope) Generation() uint64 {
	return s.current.Load().id
}

// Combine derives a context that ends when either ctx or the current
// generation is cancelled. The caller must call the returned CancelFunc.
func (s *Scope) Combine(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	gen := s.current.Load()
	combined, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(gen.ctx, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

// Reset replaces the current generation with a fresh one and cancels the
// old one. It returns the id of the new generation.
func (s *Scope) Reset() uint64 {
	if s.closed.Load() {
		return s.Generation()
	}
	for {
		old := s.current.Load()
		next := newGeneration(old.id + 1)
		if s.current.CompareAndSwap(old, next) {
			old.cancel()
			return next.id
		}
		next.cancel()
	}
}

// Close cancels the current generation without renewing it.
func (s *Scope) Close() {
	s.closed.Store(true)
	s.current.Load().cancel()
}
