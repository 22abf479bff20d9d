// Package dispatch provides the serial execution context on which the
// download manager's bookkeeping and item mutations run.
package dispatch

import "sync"

// Queue runs submitted functions one at a time, in submission order, on a
// single goroutine.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	closed  bool
	done    chan struct{}
}

// NewQueue starts the queue goroutine
func NewQueue() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.loop()
	return q
}

// Async schedules fn and returns immediately. Work submitted after Close is dropped.
func (q *Queue) Async(fn func()) {
	if fn == nil {
		return
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Sync schedules fn and waits for it to finish. Calling Sync from inside a
// queued function deadlocks. After Close it returns without running fn.
func (q *Queue) Sync(fn func()) {
	if fn == nil {
		return
	}

	ran := make(chan struct{})
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, func() {
		defer close(ran)
		fn()
	})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	// Work queued before Close is always drained, so ran is closed eventually.
	<-ran
}

// Close stops accepting work, runs what is already queued and waits for the
// goroutine to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}

// Len returns the number of functions waiting to run
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, fn := range batch {
			fn()
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-q.wake
	}
}
