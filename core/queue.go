package core

import (
	"context"
	"sync"

	"github.com/eapache/queue"
)

// =============================================================================
// BlockingQueue: multi-producer / multi-consumer FIFO with blocking pop
// =============================================================================

// BlockingQueue is a thread-safe FIFO container.
//
// Push never blocks beyond the internal critical section. WaitAndPop suspends
// the calling goroutine until an item is available; the wait predicate is
// re-tested in a loop so spurious wake-ups are harmless.
//
// The zero value is not usable; create queues with NewBlockingQueue.
type BlockingQueue[T any] struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	items    *queue.Queue
}

// NewBlockingQueue creates an empty queue.
func NewBlockingQueue[T any]() *BlockingQueue[T] {
	q := &BlockingQueue[T]{
		items: queue.New(),
	}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends item to the tail and wakes one blocked consumer.
func (q *BlockingQueue[T]) Push(item T) {
	q.mu.Lock()
	q.items.Add(item)
	q.mu.Unlock()
	q.nonEmpty.Signal()
}

// PushAll appends items in order under a single critical section.
func (q *BlockingQueue[T]) PushAll(items []T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	for _, item := range items {
		q.items.Add(item)
	}
	q.mu.Unlock()
	q.nonEmpty.Broadcast()
}

// TryPop removes and returns the head without blocking.
// The second result is false if the queue was empty.
func (q *BlockingQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Length() == 0 {
		var zero T
		return zero, false
	}
	return q.items.Remove().(T), true
}

// WaitAndPop blocks until an item is present, then removes and returns the head.
func (q *BlockingQueue[T]) WaitAndPop() T {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Length() == 0 {
		q.nonEmpty.Wait()
	}
	return q.items.Remove().(T)
}

// WaitAndPopContext is WaitAndPop with cancellation. It returns ctx.Err() if
// the context is done before an item becomes available. An item that is
// already queued is returned even if ctx is done.
func (q *BlockingQueue[T]) WaitAndPopContext(ctx context.Context) (T, error) {
	// sync.Cond has no select support; wake every waiter when ctx ends and
	// let each of them re-check its own context.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.nonEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Length() == 0 {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		q.nonEmpty.Wait()
	}
	return q.items.Remove().(T), nil
}

// PopAll removes every queued item and returns them in FIFO order.
func (q *BlockingQueue[T]) PopAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.items.Length()
	if n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for q.items.Length() > 0 {
		out = append(out, q.items.Remove().(T))
	}
	return out
}

// MoveAllTo removes every item from q and appends them, in order, to the tail
// of dst in one step: both queues are locked for the whole move, so no push
// to either queue can interleave with it. It returns the number of items
// moved. Lock order is q then dst; never move between two queues in both
// directions concurrently.
func (q *BlockingQueue[T]) MoveAllTo(dst *BlockingQueue[T]) int {
	if q == dst {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.items.Length()
	if n == 0 {
		return 0
	}
	dst.mu.Lock()
	for q.items.Length() > 0 {
		dst.items.Add(q.items.Remove())
	}
	dst.mu.Unlock()
	dst.nonEmpty.Broadcast()
	return n
}

// Empty reports whether the queue was empty at the instant of the call.
// The answer may be stale by the time it is used; never treat it as a
// precondition for TryPop or WaitAndPop.
func (q *BlockingQueue[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns a snapshot of the number of queued items.
func (q *BlockingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}
