package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"notepipe/internal/domain"
)

// MockRasterizer is a mock implementation of port.Rasterizer.
type MockRasterizer struct {
	mock.Mock
}

func (m *MockRasterizer) FirstPageImage(ctx context.Context, pdf []byte) (domain.Image, error) {
	args := m.Called(ctx, pdf)
	return args.Get(0).(domain.Image), args.Error(1)
}
