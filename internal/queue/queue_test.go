package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func TestTurnEventRoundTrip(t *testing.T) {
	ev := TurnEvent{SessionID: uuid.New(), Kind: "message", Outcome: "ok", DurationMS: 42}
	task, err := NewTurnTask(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type != TaskTypeTurnCompleted {
		t.Errorf("got type %q", task.Type)
	}
	if task.ID == uuid.Nil {
		t.Error("task id should be set")
	}

	got, err := DecodeTurnEvent(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SessionID != ev.SessionID || got.Outcome != "ok" || got.DurationMS != 42 {
		t.Errorf("decoded event mismatch: %+v", got)
	}
}

func TestDecodeTurnEventRejectsOtherTypes(t *testing.T) {
	if _, err := DecodeTurnEvent(Task{Type: "other", Payload: []byte(`{}`)}); err == nil {
		t.Error("expected error for foreign task type")
	}
	if _, err := DecodeTurnEvent(Task{Type: TaskTypeTurnCompleted, Payload: []byte(`{`)}); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestEnqueueWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		attempts  int
		wantErr   bool
		wantCalls int
	}{
		{name: "first try", failures: 0, attempts: 3, wantCalls: 1},
		{name: "recovers", failures: 2, attempts: 3, wantCalls: 3},
		{name: "gives up", failures: 5, attempts: 2, wantErr: true, wantCalls: 2},
		{name: "zero attempts means one", failures: 0, attempts: 0, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := new(MockQueue)
			task := Task{Type: TaskTypeTurnCompleted}
			if tt.failures > 0 {
				q.On("Enqueue", mock.Anything, task).Return(errors.New("nats down")).Times(tt.failures)
			}
			q.On("Enqueue", mock.Anything, task).Return(nil).Maybe()

			err := EnqueueWithRetry(context.Background(), q, task, tt.attempts, time.Millisecond)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			q.AssertNumberOfCalls(t, "Enqueue", tt.wantCalls)
		})
	}
}

func TestEnqueueWithRetryStopsOnCancel(t *testing.T) {
	q := new(MockQueue)
	q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("nats down"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := EnqueueWithRetry(ctx, q, Task{Type: TaskTypeTurnCompleted}, 5, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	q.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestNoopQueue(t *testing.T) {
	q := NewNoop()
	if err := q.Enqueue(context.Background(), Task{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Worker(ctx, TaskTypeTurnCompleted, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
