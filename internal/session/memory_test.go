package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"med-assistant/internal/conversation"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Log.Len() != 0 {
		t.Fatalf("new session should start empty, got %d turns", sess.Log.Len())
	}

	tr := Bind(store, sess.ID)
	if err := tr.Append(ctx, conversation.NewTurn(conversation.User, "hi"), conversation.NewTurn(conversation.Assistant, "hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Append(ctx, conversation.NewTurn(conversation.User, "again"), conversation.NewTurn(conversation.Assistant, "sure")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	turns := got.Log.Turns()
	want := []string{"hi", "hello", "again", "sure"}
	if len(turns) != len(want) {
		t.Fatalf("expected %d turns, got %d", len(want), len(turns))
	}
	for i, w := range want {
		if turns[i].Text != w {
			t.Errorf("turn %d: got %q, want %q", i, turns[i].Text, w)
		}
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	id := uuid.New()

	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Append(ctx, id, conversation.NewTurn(conversation.User, "x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	sess, _ := store.Create(ctx)
	other, _ := store.Create(ctx)

	// Activity slides the expiry forward.
	clock = clock.Add(50 * time.Second)
	if err := store.Append(ctx, sess.ID, conversation.NewTurn(conversation.User, "still here")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock = clock.Add(20 * time.Second)
	if _, err := store.Get(ctx, sess.ID); err != nil {
		t.Errorf("active session should be alive, got %v", err)
	}
	if n, err := store.Sweep(ctx); err != nil || n != 1 {
		t.Errorf("expected one expired session swept, got %d", n)
	}
	if _, err := store.Get(ctx, other.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle session should have expired, got %v", err)
	}
}

func TestMemoryStoreConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 20)
	for i := range ids {
		sess, _ := store.Create(ctx)
		ids[i] = sess.ID
	}
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = store.Append(ctx, id, conversation.NewTurn(conversation.User, "q"), conversation.NewTurn(conversation.Assistant, "a"))
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		sess, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		turns := sess.Log.Turns()
		if len(turns) != 20 {
			t.Fatalf("expected 20 turns, got %d", len(turns))
		}
		for i, turn := range turns {
			want := conversation.User
			if i%2 == 1 {
				want = conversation.Assistant
			}
			if turn.Speaker != want {
				t.Fatalf("turn %d has speaker %s, want %s", i, turn.Speaker, want)
			}
		}
	}
}
