package mocks

import (
	"context"

	"github.com/commercekit/authsvc/domain"
)

// MockLoginThrottle implements domain.LoginThrottle for testing.
type MockLoginThrottle struct {
	AllowFunc func(ctx context.Context, key string) (bool, error)
	ResetFunc func(ctx context.Context, key string) error
}

// NewMockLoginThrottle creates a new MockLoginThrottle that allows
// everything by default.
func NewMockLoginThrottle() *MockLoginThrottle {
	return &MockLoginThrottle{}
}

func (m *MockLoginThrottle) Allow(ctx context.Context, key string) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key)
	}
	return true, nil
}

func (m *MockLoginThrottle) Reset(ctx context.Context, key string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, key)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.LoginThrottle = (*MockLoginThrottle)(nil)
