package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"med-assistant/internal/conversation"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context) (Session, error) {
	args := m.Called(ctx)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockStore) Append(ctx context.Context, id uuid.UUID, turns ...conversation.Turn) error {
	args := m.Called(ctx, id, turns)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
