package queue

import "context"

// NewNoop returns a queue that drops every task. Used when QUEUE_PROVIDER=none.
func NewNoop() Queue { return noopQueue{} }

type noopQueue struct{}

func (noopQueue) Enqueue(context.Context, Task) error { return nil }

func (noopQueue) Worker(ctx context.Context, _ TaskType, _ Handler) error {
	<-ctx.Done()
	return nil
}
