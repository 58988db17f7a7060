// Package looper provides the cooperative scheduler that serializes
// link dispatch and other protocol work on a single goroutine.
package looper

import (
	"context"
	"sync"
)

// Task is a unit of work executed by a Loop.
type Task func()

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Loop executes posted tasks one at a time on the goroutine running
// Run. Anything touching single-threaded protocol state must go
// through Post.
type Loop struct {
	tasks    []Task
	lock     sync.Mutex
	wakeUpCh chan struct{}
}

// New creates a Loop.
func New() *Loop {
	return &Loop{wakeUpCh: make(chan struct{}, 1)}
}

// Post enqueues a task and wakes the loop. Safe from any goroutine.
func (l *Loop) Post(t Task) {
	l.lock.Lock()
	l.tasks = append(l.tasks, t)
	l.lock.Unlock()
	l.TriggerNext()
}

// TriggerNext schedules an iteration to run as soon as possible.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable. It returns when ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wakeUpCh:
			l.runTasks()
		}
	}
}

func (l *Loop) runTasks() {
	for {
		l.lock.Lock()
		tasks := l.tasks
		l.tasks = nil
		l.lock.Unlock()
		if len(tasks) == 0 {
			return
		}
		// Tasks posted while running land in the next batch.
		for _, t := range tasks {
			t()
		}
	}
}
