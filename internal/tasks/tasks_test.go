package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestEnqueueRunsHandler(t *testing.T) {
	queue := NewQueue(zap.NewNop().Sugar(), 16)

	var cleared atomic.Int64
	queue.Handle(TypingClear{}.Kind(), func(ctx context.Context, task Task) error {
		payload := task.(TypingClear)
		cleared.Store(payload.ConversationID)
		return nil
	})
	queue.Start(2)

	queue.Enqueue(0, TypingClear{ConversationID: 42, UserID: 7})
	queue.Drain()
	queue.Close()

	if cleared.Load() != 42 {
		t.Errorf("Expected handler to run with conversation 42, got %d", cleared.Load())
	}
}

func TestFailedTaskIsNotRetried(t *testing.T) {
	queue := NewQueue(zap.NewNop().Sugar(), 16)

	var runs atomic.Int64
	queue.Handle(ModerationRun{}.Kind(), func(ctx context.Context, task Task) error {
		runs.Add(1)
		return errors.New("classifier unreachable")
	})
	queue.Start(1)

	queue.Enqueue(0, ModerationRun{MessageID: 1})
	queue.Drain()
	queue.Close()

	if runs.Load() != 1 {
		t.Errorf("Expected exactly 1 run, got %d", runs.Load())
	}
}

func TestDelayedEnqueue(t *testing.T) {
	queue := NewQueue(zap.NewNop().Sugar(), 16)

	var ran atomic.Bool
	queue.Handle(ModerationRun{}.Kind(), func(ctx context.Context, task Task) error {
		ran.Store(true)
		return nil
	})
	queue.Start(1)

	queue.Enqueue(10*time.Millisecond, ModerationRun{MessageID: 1})
	if ran.Load() {
		t.Error("Task ran before its delay elapsed")
	}

	queue.Drain()
	queue.Close()

	if !ran.Load() {
		t.Error("Delayed task never ran")
	}
}

func TestSlowTaskDoesNotBlockOthers(t *testing.T) {
	queue := NewQueue(zap.NewNop().Sugar(), 16)

	release := make(chan struct{})
	done := make(chan struct{}, 1)
	queue.Handle(ModerationRun{}.Kind(), func(ctx context.Context, task Task) error {
		<-release
		return nil
	})
	queue.Handle(TypingClear{}.Kind(), func(ctx context.Context, task Task) error {
		done <- struct{}{}
		return nil
	})
	queue.Start(2)

	queue.Enqueue(0, ModerationRun{MessageID: 1})
	queue.Enqueue(0, TypingClear{ConversationID: 1, UserID: 1})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Second task serialized behind a stuck first task")
	}

	close(release)
	queue.Drain()
	queue.Close()
}
