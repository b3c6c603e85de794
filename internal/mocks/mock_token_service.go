package mocks

import (
	"time"

	"github.com/google/uuid"

	"github.com/commercekit/authsvc/domain"
)

// MockTokenService implements domain.TokenService for testing.
type MockTokenService struct {
	GenerateAccessTokenFunc  func(user *domain.User) (string, error)
	GenerateRefreshTokenFunc func(user *domain.User) (string, error)
	ValidateAccessTokenFunc  func(token string) (*domain.TokenClaims, error)
	ValidateRefreshTokenFunc func(token string) (*domain.TokenClaims, error)
	DecodeFunc               func(token string) (*domain.TokenClaims, bool)
	IsExpiredFunc            func(token string) bool
	ExtractSubjectFunc       func(token string) (uuid.UUID, bool)
	AccessTTLFunc            func() time.Duration
}

// NewMockTokenService creates a new MockTokenService with default behaviors.
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

func (m *MockTokenService) GenerateAccessToken(user *domain.User) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(user)
	}
	return "access-token-" + user.ID.String(), nil
}

func (m *MockTokenService) GenerateRefreshToken(user *domain.User) (string, error) {
	if m.GenerateRefreshTokenFunc != nil {
		return m.GenerateRefreshTokenFunc(user)
	}
	return "refresh-token-" + user.ID.String(), nil
}

func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	return nil, domain.ErrTokenInvalid
}

func (m *MockTokenService) ValidateRefreshToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateRefreshTokenFunc != nil {
		return m.ValidateRefreshTokenFunc(token)
	}
	return nil, domain.ErrTokenInvalid
}

func (m *MockTokenService) Decode(token string) (*domain.TokenClaims, bool) {
	if m.DecodeFunc != nil {
		return m.DecodeFunc(token)
	}
	return nil, false
}

func (m *MockTokenService) IsExpired(token string) bool {
	if m.IsExpiredFunc != nil {
		return m.IsExpiredFunc(token)
	}
	return true
}

func (m *MockTokenService) ExtractSubject(token string) (uuid.UUID, bool) {
	if m.ExtractSubjectFunc != nil {
		return m.ExtractSubjectFunc(token)
	}
	return uuid.Nil, false
}

func (m *MockTokenService) AccessTTL() time.Duration {
	if m.AccessTTLFunc != nil {
		return m.AccessTTLFunc()
	}
	return 15 * time.Minute
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
