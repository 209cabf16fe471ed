package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"med-assistant/internal/conversation"
)

// ErrNotFound is returned for unknown, deleted or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is one user's conversation. It exists from Create until Delete or expiry.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Log       *conversation.Log
}

// Store owns the session lifecycle. Every backend drops a session's turns when it ends.
type Store interface {
	Create(ctx context.Context) (Session, error)
	Get(ctx context.Context, id uuid.UUID) (Session, error)
	// Append adds turns atomically and in order, and extends the session's lifetime.
	Append(ctx context.Context, id uuid.UUID, turns ...conversation.Turn) error
	Delete(ctx context.Context, id uuid.UUID) error
	Close() error
}

// Transcript binds a store to one session so callers can append without knowing the backend.
type Transcript struct {
	store Store
	id    uuid.UUID
}

// Bind returns the transcript for session id.
func Bind(store Store, id uuid.UUID) Transcript {
	return Transcript{store: store, id: id}
}

func (t Transcript) Append(ctx context.Context, turns ...conversation.Turn) error {
	return t.store.Append(ctx, t.id, turns...)
}

// ID returns the bound session id.
func (t Transcript) ID() uuid.UUID { return t.id }

// Sweeper is implemented by backends that need expired sessions purged explicitly.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}
