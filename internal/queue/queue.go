package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"med-assistant/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	TaskTypeTurnCompleted TaskType = "turn.completed"
)

// Task is the envelope published on the queue.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

// TurnEvent describes a finished turn. It never carries user text.
type TurnEvent struct {
	SessionID  uuid.UUID `json:"session_id"`
	Kind       string    `json:"kind"`
	Outcome    string    `json:"outcome"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// NewTurnTask wraps ev in a turn.completed task.
func NewTurnTask(ev TurnEvent) (Task, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return Task{}, err
	}
	return Task{ID: uuid.New(), Type: TaskTypeTurnCompleted, Payload: body, MaxAttempts: 3}, nil
}

// DecodeTurnEvent reads the payload of a turn.completed task.
func DecodeTurnEvent(task Task) (TurnEvent, error) {
	if task.Type != TaskTypeTurnCompleted {
		return TurnEvent{}, fmt.Errorf("unexpected task type %q", task.Type)
	}
	var ev TurnEvent
	if err := json.Unmarshal(task.Payload, &ev); err != nil {
		return TurnEvent{}, fmt.Errorf("decode turn event: %w", err)
	}
	return ev, nil
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, base)):
		}
	}
	return nil
}
