package inference

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEntityExtractor is a mock implementation of EntityExtractor using testify/mock.
type MockEntityExtractor struct {
	mock.Mock
}

func (m *MockEntityExtractor) Extract(ctx context.Context, text string) ([]Entity, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Entity), args.Error(1)
}

// MockCaptioner is a mock implementation of Captioner using testify/mock.
type MockCaptioner struct {
	mock.Mock
}

func (m *MockCaptioner) Caption(ctx context.Context, image []byte, contentType string) (string, error) {
	args := m.Called(ctx, image, contentType)
	return args.String(0), args.Error(1)
}
