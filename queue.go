package traymenu

import "sync"

// commandQueue is a FIFO of commands consumed by the UI thread.
//
// post appends and wakes the loop; drain runs on the UI thread and executes
// the commands that were pending when it started. Commands posted while a
// batch runs go to the next batch.
type commandQueue struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    func()
}

func newCommandQueue(wake func()) *commandQueue {
	return &commandQueue{wake: wake}
}

// post enqueues fn. It reports false when the queue has been closed and fn
// was dropped.
func (q *commandQueue) post(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	q.wake()
	return true
}

// take removes and returns the pending batch.
func (q *commandQueue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := q.pending
	q.pending = nil
	return batch
}

// close drops pending commands and makes further posts no-ops.
func (q *commandQueue) close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := len(q.pending)
	q.pending = nil
	q.closed = true
	return dropped
}
