package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/commercekit/authsvc/domain"
)

// MockUserRepository implements domain.UserRepository for testing.
type MockUserRepository struct {
	CreateFunc                   func(ctx context.Context, user *domain.User) error
	FindByEmailFunc              func(ctx context.Context, email string) (*domain.User, error)
	FindByIDFunc                 func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateFieldsFunc             func(ctx context.Context, id uuid.UUID, fields map[string]any) error
	UpdateCredentialsFunc        func(ctx context.Context, id uuid.UUID, fields map[string]any) error
	PushRefreshTokenFunc         func(ctx context.Context, userID uuid.UUID, token string, maxTokens int) error
	PullRefreshTokenFunc         func(ctx context.Context, userID uuid.UUID, token string) (bool, error)
	ClearRefreshTokensFunc       func(ctx context.Context, userID uuid.UUID) error
	IncrementFailedLoginsFunc    func(ctx context.Context, userID uuid.UUID, threshold int, lockFor time.Duration) (int, error)
	ResetLockoutFunc             func(ctx context.Context, userID uuid.UUID) error
	RecordLoginFunc              func(ctx context.Context, userID uuid.UUID, at time.Time, origin string) error
	AppendAuditEntryFunc         func(ctx context.Context, userID uuid.UUID, action domain.AuditAction, origin string, maxEntries int) error
	ListAuditEntriesFunc         func(ctx context.Context, userID uuid.UUID) ([]domain.AuditEntry, error)
	SoftDeleteFunc               func(ctx context.Context, userID, deletedBy uuid.UUID) error
	SetPasswordResetTokenFunc    func(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error
	FindByPasswordResetTokenFunc func(ctx context.Context, token string) (*domain.User, error)
	SetEmailVerifyTokenFunc      func(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error
	FindByEmailVerifyTokenFunc   func(ctx context.Context, token string) (*domain.User, error)
}

// NewMockUserRepository creates a new MockUserRepository with default
// behaviors.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return nil
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, id, fields)
	}
	return nil
}

func (m *MockUserRepository) UpdateCredentials(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if m.UpdateCredentialsFunc != nil {
		return m.UpdateCredentialsFunc(ctx, id, fields)
	}
	return nil
}

func (m *MockUserRepository) PushRefreshToken(ctx context.Context, userID uuid.UUID, token string, maxTokens int) error {
	if m.PushRefreshTokenFunc != nil {
		return m.PushRefreshTokenFunc(ctx, userID, token, maxTokens)
	}
	return nil
}

func (m *MockUserRepository) PullRefreshToken(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	if m.PullRefreshTokenFunc != nil {
		return m.PullRefreshTokenFunc(ctx, userID, token)
	}
	return false, nil
}

func (m *MockUserRepository) ClearRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	if m.ClearRefreshTokensFunc != nil {
		return m.ClearRefreshTokensFunc(ctx, userID)
	}
	return nil
}

func (m *MockUserRepository) IncrementFailedLogins(ctx context.Context, userID uuid.UUID, threshold int, lockFor time.Duration) (int, error) {
	if m.IncrementFailedLoginsFunc != nil {
		return m.IncrementFailedLoginsFunc(ctx, userID, threshold, lockFor)
	}
	return 1, nil
}

func (m *MockUserRepository) ResetLockout(ctx context.Context, userID uuid.UUID) error {
	if m.ResetLockoutFunc != nil {
		return m.ResetLockoutFunc(ctx, userID)
	}
	return nil
}

func (m *MockUserRepository) RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time, origin string) error {
	if m.RecordLoginFunc != nil {
		return m.RecordLoginFunc(ctx, userID, at, origin)
	}
	return nil
}

func (m *MockUserRepository) AppendAuditEntry(ctx context.Context, userID uuid.UUID, action domain.AuditAction, origin string, maxEntries int) error {
	if m.AppendAuditEntryFunc != nil {
		return m.AppendAuditEntryFunc(ctx, userID, action, origin, maxEntries)
	}
	return nil
}

func (m *MockUserRepository) ListAuditEntries(ctx context.Context, userID uuid.UUID) ([]domain.AuditEntry, error) {
	if m.ListAuditEntriesFunc != nil {
		return m.ListAuditEntriesFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockUserRepository) SoftDelete(ctx context.Context, userID, deletedBy uuid.UUID) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, userID, deletedBy)
	}
	return nil
}

func (m *MockUserRepository) SetPasswordResetToken(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error {
	if m.SetPasswordResetTokenFunc != nil {
		return m.SetPasswordResetTokenFunc(ctx, userID, token, expires)
	}
	return nil
}

func (m *MockUserRepository) FindByPasswordResetToken(ctx context.Context, token string) (*domain.User, error) {
	if m.FindByPasswordResetTokenFunc != nil {
		return m.FindByPasswordResetTokenFunc(ctx, token)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) SetEmailVerifyToken(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error {
	if m.SetEmailVerifyTokenFunc != nil {
		return m.SetEmailVerifyTokenFunc(ctx, userID, token, expires)
	}
	return nil
}

func (m *MockUserRepository) FindByEmailVerifyToken(ctx context.Context, token string) (*domain.User, error) {
	if m.FindByEmailVerifyTokenFunc != nil {
		return m.FindByEmailVerifyTokenFunc(ctx, token)
	}
	return nil, domain.ErrUserNotFound
}

// Compile-time interface compliance verification
var _ domain.UserRepository = (*MockUserRepository)(nil)
