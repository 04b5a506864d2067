package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"notepipe/internal/domain"
)

// MockFileStore is a mock implementation of port.FileStore.
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) List(ctx context.Context, folder string) ([]domain.SourceFile, error) {
	args := m.Called(ctx, folder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SourceFile), args.Error(1)
}

func (m *MockFileStore) Download(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockFileStore) Read(ctx context.Context, folder, name string) ([]byte, error) {
	args := m.Called(ctx, folder, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockFileStore) Upload(ctx context.Context, folder, name, contentType string, data []byte) error {
	args := m.Called(ctx, folder, name, contentType, data)
	return args.Error(0)
}

func (m *MockFileStore) Move(ctx context.Context, id, folder string) error {
	args := m.Called(ctx, id, folder)
	return args.Error(0)
}

func (m *MockFileStore) Exists(ctx context.Context, folder, name string) (bool, error) {
	args := m.Called(ctx, folder, name)
	return args.Bool(0), args.Error(1)
}
