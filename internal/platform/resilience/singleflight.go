package resilience

import (
	"context"
	"sync"
)

type singleflightCall struct {
	done chan struct{}
	val  any
	err  error
}

// SingleFlight collapses concurrent calls with the same key into one
// upstream request; everyone waits on the winner's result.
type SingleFlight struct {
	mu    sync.Mutex
	calls map[string]*singleflightCall
}

func NewSingleFlight() *SingleFlight {
	return &SingleFlight{calls: make(map[string]*singleflightCall)}
}

func (s *SingleFlight) Do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	s.mu.Lock()
	if call, ok := s.calls[key]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.val, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &singleflightCall{done: make(chan struct{})}
	s.calls[key] = call
	s.mu.Unlock()

	call.val, call.err = fn()

	s.mu.Lock()
	delete(s.calls, key)
	s.mu.Unlock()
	close(call.done)

	return call.val, call.err
}
