package agent

import (
	"context"
	"sync"

	"github.com/hupe1980/goalmesh/core"
)

// goalQueue is a single-consumer FIFO bound to one agent. A dedicated
// worker goroutine drains the channel, invoking the handler once per goal
// and awaiting it before dequeuing the next. This guarantees at most one
// goal executes at a time per agent no matter how many goroutines call add
// concurrently.
type goalQueue struct {
	ch        chan core.Goal
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func newGoalQueue(size int) *goalQueue {
	return &goalQueue{
		ch:   make(chan core.Goal, size),
		done: make(chan struct{}),
	}
}

// add enqueues a goal. Blocks when the buffer is full.
func (q *goalQueue) add(goal core.Goal) {
	select {
	case <-q.done:
	case q.ch <- goal:
	}
}

// start launches the worker. Subsequent calls are no-ops.
func (q *goalQueue) start(ctx context.Context, handler func(core.Goal)) {
	q.startOnce.Do(func() {
		go func() {
			for {
				select {
				case <-q.done:
					return
				case <-ctx.Done():
					return
				case goal := <-q.ch:
					handler(goal)
				}
			}
		}()
	})
}

// stop terminates the worker after the handler currently running settles.
func (q *goalQueue) stop() {
	q.stopOnce.Do(func() { close(q.done) })
}
