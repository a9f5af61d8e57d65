package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Deferred work enqueued after a request's transaction commits. Tasks run on
// their own worker goroutines, so a task stuck on a slow collaborator never
// blocks another task or any request. There is no retry: a failed task is
// logged and dropped.

type Task interface {
	Kind() string
}

type TypingClear struct {
	ConversationID int64
	UserID         int64
}

func (TypingClear) Kind() string { return "typing_clear" }

type ModerationRun struct {
	MessageID int64
}

func (ModerationRun) Kind() string { return "moderation_run" }

type Handler func(ctx context.Context, task Task) error

type Queue struct {
	sugar    *zap.SugaredLogger
	ch       chan Task
	handlers map[string]Handler

	mutex   sync.Mutex
	closed  bool
	pending sync.WaitGroup
	workers sync.WaitGroup
}

func NewQueue(sugar *zap.SugaredLogger, buffer int) *Queue {
	return &Queue{
		sugar:    sugar,
		ch:       make(chan Task, buffer),
		handlers: make(map[string]Handler),
	}
}

// Handle registers the handler for one task kind. Must be called before
// Start.
func (q *Queue) Handle(kind string, handler Handler) {
	q.handlers[kind] = handler
}

func (q *Queue) Start(workers int) {
	for range workers {
		q.workers.Add(1)
		go func() {
			defer q.workers.Done()
			for task := range q.ch {
				q.run(task)
			}
		}()
	}
}

func (q *Queue) run(task Task) {
	defer q.pending.Done()

	handler, ok := q.handlers[task.Kind()]
	if !ok {
		q.sugar.Errorf("No handler registered for task kind [%s]", task.Kind())
		return
	}

	err := handler(context.Background(), task)
	if err != nil {
		q.sugar.Errorf("Task [%s] failed, not retrying: %v", task.Kind(), err)
	}
}

// Enqueue schedules a task after the given delay. Call it only once the
// triggering transaction has committed. Enqueueing never blocks the caller:
// if the queue is saturated or already closed the task is dropped with an
// error log.
func (q *Queue) Enqueue(delay time.Duration, task Task) {
	if delay <= 0 {
		q.push(task)
		return
	}

	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.closed {
		q.sugar.Errorf("Dropping task [%s]: queue is closed", task.Kind())
		return
	}
	q.pending.Add(1)

	time.AfterFunc(delay, func() {
		defer q.pending.Done()
		q.push(task)
	})
}

func (q *Queue) push(task Task) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.closed {
		q.sugar.Errorf("Dropping task [%s]: queue is closed", task.Kind())
		return
	}

	q.pending.Add(1)
	select {
	case q.ch <- task:
	default:
		q.pending.Done()
		q.sugar.Errorf("Dropping task [%s]: queue is full", task.Kind())
	}
}

// Drain waits for every already-enqueued task to finish. Used by tests to
// observe the state after deferred work has run.
func (q *Queue) Drain() {
	q.pending.Wait()
}

// Close stops accepting tasks, lets queued ones finish and stops the
// workers.
func (q *Queue) Close() {
	q.mutex.Lock()
	if q.closed {
		q.mutex.Unlock()
		return
	}
	q.closed = true
	q.mutex.Unlock()

	close(q.ch)
	q.workers.Wait()
}
