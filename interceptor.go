package fetchkit

import "sync"

// Fulfilled transforms a payload on the success path of an interceptor chain.
type Fulfilled[T any] func(T) (T, error)

// Rejected may recover a failed chain and resume it with a substitute value.
type Rejected[T any] func(error) (T, error)

// Handler is one registered interceptor stage.
type Handler[T any] struct {
	OnFulfilled Fulfilled[T]
	OnRejected  Rejected[T]
}

// Chain is an ordered, mutable collection of interceptor handlers over a
// payload type T. Handlers run strictly in registration order; removal
// tombstones the slot so handles stay stable and are never reused.
// Safe for concurrent use.
type Chain[T any] struct {
	mu       sync.Mutex
	handlers []*Handler[T]
}

// Use registers a handler pair and returns a stable handle for Eject.
// rejected may be nil.
func (c *Chain[T]) Use(fulfilled Fulfilled[T], rejected Rejected[T]) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, &Handler[T]{OnFulfilled: fulfilled, OnRejected: rejected})
	return len(c.handlers) - 1
}

// Eject removes the handler registered under the given handle. Ejecting an
// already-removed or out-of-range handle is a no-op.
func (c *Chain[T]) Eject(handle int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if handle < 0 || handle >= len(c.handlers) {
		return
	}
	c.handlers[handle] = nil
}

// ForEach visits the live handlers in registration order.
func (c *Chain[T]) ForEach(visit func(Handler[T])) {
	for _, h := range c.snapshot() {
		visit(*h)
	}
}

// run threads a value through the chain. A stage's fulfilled function runs
// only while the chain is on its success path; a stage's rejected function,
// when present, may recover an earlier failure and resume the chain.
func (c *Chain[T]) run(v T) (T, error) {
	var err error
	for _, h := range c.snapshot() {
		if err == nil {
			if h.OnFulfilled != nil {
				v, err = h.OnFulfilled(v)
			}
		} else if h.OnRejected != nil {
			v, err = h.OnRejected(err)
		}
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// snapshot copies the live handlers so they can run outside the lock
// (a handler may call Use or Eject).
func (c *Chain[T]) snapshot() []*Handler[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	live := make([]*Handler[T], 0, len(c.handlers))
	for _, h := range c.handlers {
		if h != nil {
			live = append(live, h)
		}
	}
	return live
}
