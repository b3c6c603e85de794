package mocks

import (
	"context"

	"github.com/google/uuid"

	"github.com/commercekit/authsvc/domain"
)

// MockAuthService implements domain.AuthService for handler testing.
type MockAuthService struct {
	RegisterFunc       func(ctx context.Context, input domain.RegisterInput) (*domain.AuthResult, error)
	LoginFunc          func(ctx context.Context, email, password, origin string) (*domain.AuthResult, error)
	RefreshFunc        func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	ChangePasswordFunc func(ctx context.Context, userID uuid.UUID, current, newPassword, confirm string) error
	GetByIDFunc        func(ctx context.Context, userID uuid.UUID) (*domain.PublicUser, error)
	UpdateProfileFunc  func(ctx context.Context, userID uuid.UUID, patch domain.ProfileUpdate) (*domain.PublicUser, error)
	SoftDeleteFunc     func(ctx context.Context, userID, deletedBy uuid.UUID) error
	ForgotPasswordFunc func(ctx context.Context, email, origin string) error
	ResetPasswordFunc  func(ctx context.Context, token, newPassword, confirm string) error
	VerifyEmailFunc    func(ctx context.Context, token string) error
}

// NewMockAuthService creates a new MockAuthService.
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func (m *MockAuthService) Register(ctx context.Context, input domain.RegisterInput) (*domain.AuthResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input)
	}
	return nil, domain.ErrTransient
}

func (m *MockAuthService) Login(ctx context.Context, email, password, origin string) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, origin)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, domain.ErrInvalidRefreshToken
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword, confirm string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, userID, current, newPassword, confirm)
	}
	return nil
}

func (m *MockAuthService) GetByID(ctx context.Context, userID uuid.UUID) (*domain.PublicUser, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, patch domain.ProfileUpdate) (*domain.PublicUser, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, patch)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockAuthService) SoftDelete(ctx context.Context, userID, deletedBy uuid.UUID) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, userID, deletedBy)
	}
	return nil
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email, origin string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email, origin)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword, confirm string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword, confirm)
	}
	return nil
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, token string) error {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, token)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)
