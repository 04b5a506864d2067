package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"notepipe/internal/port"
)

// MockCompleter is a mock implementation of port.Completer.
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockCompleter) Model() string {
	args := m.Called()
	return args.String(0)
}
