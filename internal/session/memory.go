package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"med-assistant/internal/conversation"
)

type memoryEntry struct {
	createdAt time.Time
	expiresAt time.Time
	turns     []conversation.Turn
}

// MemoryStore keeps sessions in process memory. Sessions die with the process.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[uuid.UUID]*memoryEntry
}

// NewMemoryStore creates an in-process store with a sliding ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*memoryEntry),
	}
}

func (s *MemoryStore) Create(_ context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := uuid.New()
	s.sessions[id] = &memoryEntry{createdAt: now, expiresAt: now.Add(s.ttl)}
	return Session{ID: id, CreatedAt: now, Log: conversation.NewLog(nil)}, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.live(id)
	if err != nil {
		return Session{}, err
	}
	return Session{ID: id, CreatedAt: e.createdAt, Log: conversation.NewLog(e.turns)}, nil
}

func (s *MemoryStore) Append(_ context.Context, id uuid.UUID, turns ...conversation.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.live(id)
	if err != nil {
		return err
	}
	e.turns = append(e.turns, turns...)
	e.expiresAt = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.live(id); err != nil {
		return err
	}
	delete(s.sessions, id)
	return nil
}

// Sweep drops every expired session and reports how many were removed.
func (s *MemoryStore) Sweep(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for id, e := range s.sessions {
		if s.ttl > 0 && !now.Before(e.expiresAt) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }

// live must be called with mu held.
func (s *MemoryStore) live(id uuid.UUID) (*memoryEntry, error) {
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.ttl > 0 && !s.now().Before(e.expiresAt) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	return e, nil
}
