// Package poll runs the periodic snapshot refresh as an explicit task with
// a cancellation handle.
package poll

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Task invokes fn immediately on Start and then at every interval tick. A
// tick that arrives while a run is still in flight is skipped.
type Task struct {
	interval time.Duration
	fn       func(ctx context.Context) error

	running int32
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

func NewTask(interval time.Duration, fn func(ctx context.Context) error) *Task {
	return &Task{interval: interval, fn: fn}
}

func (t *Task) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	go t.loop(ctx)
}

// Stop cancels the task and waits for the in-flight run, if any, to return.
func (t *Task) Stop() {
	if t.cancel == nil {
		return
	}
	t.once.Do(t.cancel)
	<-t.done
}

func (t *Task) loop(ctx context.Context) {
	defer close(t.done)
	t.run(ctx)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.run(ctx)
		}
	}
}

func (t *Task) run(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&t.running, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&t.running, 0)
	if err := t.fn(ctx); err != nil && ctx.Err() == nil {
		log.Printf("poll run error: %v", err)
	}
}
