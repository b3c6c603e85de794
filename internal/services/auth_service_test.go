package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commercekit/authsvc/domain"
	"github.com/commercekit/authsvc/internal/mocks"
)

func testConfig() AuthConfig {
	return AuthConfig{
		LockoutThreshold: 5,
		LockoutDuration:  15 * time.Minute,
		MaxRefreshTokens: 5,
		MaxAuditEntries:  50,
		ResetTokenTTL:    time.Hour,
		VerifyTokenTTL:   24 * time.Hour,
	}
}

func newTestAuthService(
	userRepo *mocks.MockUserRepository,
	passwordSvc *mocks.MockPasswordService,
	tokenSvc *mocks.MockTokenService,
	throttle *mocks.MockLoginThrottle,
) domain.AuthService {
	return NewAuthService(userRepo, passwordSvc, tokenSvc, throttle, zap.NewNop(), testConfig())
}

func activeUser() *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Email:        "buyer@example.com",
		FirstName:    "Test",
		LastName:     "Buyer",
		Role:         domain.RoleCustomer,
		PasswordHash: "hashed_Correct1",
		IsActive:     true,
	}
}

func TestAuthServiceImpl_Register(t *testing.T) {
	validInput := domain.RegisterInput{
		Email:           "New.User@Example.com",
		FirstName:       "New",
		LastName:        "User",
		Password:        "Secret1",
		PasswordConfirm: "Secret1",
		Origin:          "10.0.0.1",
	}

	tests := []struct {
		name           string
		input          domain.RegisterInput
		setupMocks     func(userRepo *mocks.MockUserRepository, passwordSvc *mocks.MockPasswordService, tokenSvc *mocks.MockTokenService)
		expectedError  error
		validateResult func(t *testing.T, result *domain.AuthResult)
	}{
		{
			name:  "successful registration",
			input: validInput,
			setupMocks: func(userRepo *mocks.MockUserRepository, passwordSvc *mocks.MockPasswordService, tokenSvc *mocks.MockTokenService) {
			},
			validateResult: func(t *testing.T, result *domain.AuthResult) {
				if result.User == nil {
					t.Fatal("expected a sanitized user")
				}
				if result.User.Email != "new.user@example.com" {
					t.Errorf("email not normalized: %q", result.User.Email)
				}
				if result.User.Role != domain.RoleCustomer {
					t.Errorf("expected default role customer, got %s", result.User.Role)
				}
				if result.AccessToken == "" || result.RefreshToken == "" {
					t.Error("expected a token pair")
				}
				if result.ExpiresIn != int64((15 * time.Minute).Seconds()) {
					t.Errorf("expected expires_in from configured TTL, got %d", result.ExpiresIn)
				}
			},
		},
		{
			name:  "email already in use",
			input: validInput,
			setupMocks: func(userRepo *mocks.MockUserRepository, passwordSvc *mocks.MockPasswordService, tokenSvc *mocks.MockTokenService) {
				userRepo.CreateFunc = func(ctx context.Context, user *domain.User) error {
					return domain.ErrEmailTaken
				}
			},
			expectedError: domain.ErrEmailTaken,
		},
		{
			name: "weak password reports every violation",
			input: domain.RegisterInput{
				Email:           "new@example.com",
				Password:        "abc",
				PasswordConfirm: "abc",
			},
			setupMocks: func(userRepo *mocks.MockUserRepository, passwordSvc *mocks.MockPasswordService, tokenSvc *mocks.MockTokenService) {
				passwordSvc.ValidateStrengthFunc = func(password string) []string {
					return []string{"too short", "no uppercase", "no digit"}
				}
			},
			expectedError: domain.ErrWeakPassword,
		},
		{
			name: "password confirmation mismatch",
			input: domain.RegisterInput{
				Email:           "new@example.com",
				Password:        "Secret1",
				PasswordConfirm: "Other1x",
			},
			setupMocks:    func(*mocks.MockUserRepository, *mocks.MockPasswordService, *mocks.MockTokenService) {},
			expectedError: domain.ErrPasswordMismatch,
		},
		{
			name: "unknown role rejected",
			input: domain.RegisterInput{
				Email:           "new@example.com",
				Password:        "Secret1",
				PasswordConfirm: "Secret1",
				Role:            "superuser",
			},
			setupMocks:    func(*mocks.MockUserRepository, *mocks.MockPasswordService, *mocks.MockTokenService) {},
			expectedError: domain.ErrInvalidRole,
		},
		{
			name:  "store failure surfaces as transient",
			input: validInput,
			setupMocks: func(userRepo *mocks.MockUserRepository, passwordSvc *mocks.MockPasswordService, tokenSvc *mocks.MockTokenService) {
				userRepo.CreateFunc = func(ctx context.Context, user *domain.User) error {
					return errors.New("connection refused")
				}
			},
			expectedError: domain.ErrTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := mocks.NewMockUserRepository()
			passwordSvc := mocks.NewMockPasswordService()
			tokenSvc := mocks.NewMockTokenService()
			tt.setupMocks(userRepo, passwordSvc, tokenSvc)

			svc := newTestAuthService(userRepo, passwordSvc, tokenSvc, mocks.NewMockLoginThrottle())
			result, err := svc.Register(context.Background(), tt.input)

			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Fatalf("expected %v, got %v", tt.expectedError, err)
				}
				if result != nil {
					t.Error("expected nil result on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validateResult(t, result)
		})
	}
}

func TestAuthServiceImpl_Register_WeakPasswordListsAllRules(t *testing.T) {
	passwordSvc := mocks.NewMockPasswordService()
	passwordSvc.ValidateStrengthFunc = func(password string) []string {
		return []string{"rule one", "rule two"}
	}
	svc := newTestAuthService(mocks.NewMockUserRepository(), passwordSvc, mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())

	_, err := svc.Register(context.Background(), domain.RegisterInput{
		Email: "x@example.com", Password: "weak", PasswordConfirm: "weak",
	})
	if !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if !strings.Contains(err.Error(), "rule one") || !strings.Contains(err.Error(), "rule two") {
		t.Errorf("expected every violation in the error, got %q", err.Error())
	}
}

func TestAuthServiceImpl_Register_StoresVerifyTokenAndAudits(t *testing.T) {
	userRepo := mocks.NewMockUserRepository()

	var verifyTokenSet bool
	var verifyExpires time.Time
	userRepo.SetEmailVerifyTokenFunc = func(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error {
		verifyTokenSet = token != ""
		verifyExpires = expires
		return nil
	}

	var audited domain.AuditAction
	var auditCap int
	userRepo.AppendAuditEntryFunc = func(ctx context.Context, userID uuid.UUID, action domain.AuditAction, origin string, maxEntries int) error {
		audited = action
		auditCap = maxEntries
		return nil
	}

	var pushedCap int
	userRepo.PushRefreshTokenFunc = func(ctx context.Context, userID uuid.UUID, token string, maxTokens int) error {
		pushedCap = maxTokens
		return nil
	}

	svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())
	_, err := svc.Register(context.Background(), domain.RegisterInput{
		Email: "new@example.com", Password: "Secret1", PasswordConfirm: "Secret1",
	})
	if err != nil {
		t.Fatal(err)
	}

	if !verifyTokenSet {
		t.Error("expected an email verification token to be stored")
	}
	if time.Until(verifyExpires) < 23*time.Hour {
		t.Errorf("verify token expiry too short: %s", verifyExpires)
	}
	if audited != domain.AuditRegistered {
		t.Errorf("expected registered audit entry, got %q", audited)
	}
	if auditCap != 50 || pushedCap != 5 {
		t.Errorf("expected configured caps 50/5, got %d/%d", auditCap, pushedCap)
	}
}

func TestAuthServiceImpl_Login(t *testing.T) {
	tests := []struct {
		name          string
		password      string
		setupMocks    func(userRepo *mocks.MockUserRepository, throttle *mocks.MockLoginThrottle)
		expectedError error
	}{
		{
			name:     "successful login",
			password: "Correct1",
			setupMocks: func(userRepo *mocks.MockUserRepository, throttle *mocks.MockLoginThrottle) {
				userRepo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
					return activeUser(), nil
				}
			},
		},
		{
			name:     "unknown email yields generic invalid credentials",
			password: "Correct1",
			setupMocks: func(userRepo *mocks.MockUserRepository, throttle *mocks.MockLoginThrottle) {
				userRepo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
					return nil, domain.ErrUserNotFound
				}
			},
			expectedError: domain.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			password: "Wrong1x",
			setupMocks: func(userRepo *mocks.MockUserRepository, throttle *mocks.MockLoginThrottle) {
				userRepo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
					return activeUser(), nil
				}
			},
			expectedError: domain.ErrInvalidCredentials,
		},
		{
			name:     "inactive account",
			password: "Correct1",
			setupMocks: func(userRepo *mocks.MockUserRepository, throttle *mocks.MockLoginThrottle) {
				userRepo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
					u := activeUser()
					u.IsActive = false
					return u, nil
				}
			},
			expectedError: domain.ErrUserInactive,
		},
		{
			name:     "locked account rejects even the correct password",
			password: "Correct1",
			setupMocks: func(userRepo *mocks.MockUserRepository, throttle *mocks.MockLoginThrottle) {
				userRepo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
					u := activeUser()
					lockUntil := time.Now().Add(10 * time.Minute)
					u.LockUntil = &lockUntil
					u.FailedLoginAttempts = 5
					return u, nil
				}
			},
			expectedError: domain.ErrAccountLocked,
		},
		{
			name:     "elapsed lock admits the correct password",
			password: "Correct1",
			setupMocks: func(userRepo *mocks.MockUserRepository, throttle *mocks.MockLoginThrottle) {
				userRepo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
					u := activeUser()
					lockUntil := time.Now().Add(-time.Minute)
					u.LockUntil = &lockUntil
					u.FailedLoginAttempts = 5
					return u, nil
				}
			},
		},
		{
			name:     "throttle denies the attempt",
			password: "Correct1",
			setupMocks: func(userRepo *mocks.MockUserRepository, throttle *mocks.MockLoginThrottle) {
				throttle.AllowFunc = func(ctx context.Context, key string) (bool, error) {
					return false, nil
				}
			},
			expectedError: domain.ErrTooManyAttempts,
		},
		{
			name:     "throttle backend failure degrades open",
			password: "Correct1",
			setupMocks: func(userRepo *mocks.MockUserRepository, throttle *mocks.MockLoginThrottle) {
				throttle.AllowFunc = func(ctx context.Context, key string) (bool, error) {
					return false, errors.New("redis down")
				}
				userRepo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
					return activeUser(), nil
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := mocks.NewMockUserRepository()
			throttle := mocks.NewMockLoginThrottle()
			tt.setupMocks(userRepo, throttle)

			svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), throttle)
			result, err := svc.Login(context.Background(), "buyer@example.com", tt.password, "10.0.0.1")

			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Fatalf("expected %v, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.User == nil || result.AccessToken == "" || result.RefreshToken == "" {
				t.Fatalf("incomplete auth result: %+v", result)
			}
		})
	}
}

func TestAuthServiceImpl_Login_FailureCountingAndReset(t *testing.T) {
	user := activeUser()
	userRepo := mocks.NewMockUserRepository()
	userRepo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
		return user, nil
	}

	var increments int
	userRepo.IncrementFailedLoginsFunc = func(ctx context.Context, userID uuid.UUID, threshold int, lockFor time.Duration) (int, error) {
		if threshold != 5 || lockFor != 15*time.Minute {
			t.Errorf("unexpected lockout knobs: threshold=%d lockFor=%s", threshold, lockFor)
		}
		increments++
		return increments, nil
	}

	var lockoutReset bool
	userRepo.ResetLockoutFunc = func(ctx context.Context, userID uuid.UUID) error {
		lockoutReset = true
		return nil
	}

	var lastLoginRecorded bool
	userRepo.RecordLoginFunc = func(ctx context.Context, userID uuid.UUID, at time.Time, origin string) error {
		lastLoginRecorded = origin == "10.0.0.1"
		return nil
	}

	svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())
	ctx := context.Background()

	// Failed attempts bump the counter via the store's atomic increment.
	for i := 0; i < 3; i++ {
		if _, err := svc.Login(ctx, user.Email, "Wrong1x", "10.0.0.1"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if increments != 3 {
		t.Fatalf("expected 3 increments, got %d", increments)
	}

	// A successful login resets lockout state and records the last login.
	if _, err := svc.Login(ctx, user.Email, "Correct1", "10.0.0.1"); err != nil {
		t.Fatal(err)
	}
	if !lockoutReset {
		t.Error("expected lockout reset on success")
	}
	if !lastLoginRecorded {
		t.Error("expected last login recorded with origin")
	}
}

func TestAuthServiceImpl_Refresh(t *testing.T) {
	user := activeUser()
	claims := &domain.TokenClaims{UserID: user.ID, Email: user.Email, Role: user.Role}

	tests := []struct {
		name          string
		setupMocks    func(userRepo *mocks.MockUserRepository, tokenSvc *mocks.MockTokenService)
		expectedError error
	}{
		{
			name: "successful rotation",
			setupMocks: func(userRepo *mocks.MockUserRepository, tokenSvc *mocks.MockTokenService) {
				tokenSvc.ValidateRefreshTokenFunc = func(token string) (*domain.TokenClaims, error) {
					return claims, nil
				}
				userRepo.PullRefreshTokenFunc = func(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
					return true, nil
				}
				userRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
					return user, nil
				}
			},
		},
		{
			name: "signature failure",
			setupMocks: func(userRepo *mocks.MockUserRepository, tokenSvc *mocks.MockTokenService) {
				tokenSvc.ValidateRefreshTokenFunc = func(token string) (*domain.TokenClaims, error) {
					return nil, domain.ErrTokenInvalid
				}
			},
			expectedError: domain.ErrInvalidRefreshToken,
		},
		{
			name: "token not in stored set (replay)",
			setupMocks: func(userRepo *mocks.MockUserRepository, tokenSvc *mocks.MockTokenService) {
				tokenSvc.ValidateRefreshTokenFunc = func(token string) (*domain.TokenClaims, error) {
					return claims, nil
				}
				userRepo.PullRefreshTokenFunc = func(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
					return false, nil
				}
			},
			expectedError: domain.ErrInvalidRefreshToken,
		},
		{
			name: "subject deleted since issuance",
			setupMocks: func(userRepo *mocks.MockUserRepository, tokenSvc *mocks.MockTokenService) {
				tokenSvc.ValidateRefreshTokenFunc = func(token string) (*domain.TokenClaims, error) {
					return claims, nil
				}
				userRepo.PullRefreshTokenFunc = func(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
					return true, nil
				}
				userRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
					return nil, domain.ErrUserNotFound
				}
			},
			expectedError: domain.ErrInvalidRefreshToken,
		},
		{
			name: "subject deactivated since issuance",
			setupMocks: func(userRepo *mocks.MockUserRepository, tokenSvc *mocks.MockTokenService) {
				tokenSvc.ValidateRefreshTokenFunc = func(token string) (*domain.TokenClaims, error) {
					return claims, nil
				}
				userRepo.PullRefreshTokenFunc = func(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
					return true, nil
				}
				userRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
					u := activeUser()
					u.ID = user.ID
					u.IsActive = false
					return u, nil
				}
			},
			expectedError: domain.ErrInvalidRefreshToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := mocks.NewMockUserRepository()
			tokenSvc := mocks.NewMockTokenService()
			tt.setupMocks(userRepo, tokenSvc)

			svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), tokenSvc, mocks.NewMockLoginThrottle())
			result, err := svc.Refresh(context.Background(), "presented-token")

			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Fatalf("expected %v, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.AccessToken == "" || result.RefreshToken == "" {
				t.Error("expected a fresh token pair")
			}
		})
	}
}

func TestAuthServiceImpl_Refresh_PullsBeforeIssuing(t *testing.T) {
	user := activeUser()
	userRepo := mocks.NewMockUserRepository()
	tokenSvc := mocks.NewMockTokenService()

	tokenSvc.ValidateRefreshTokenFunc = func(token string) (*domain.TokenClaims, error) {
		return &domain.TokenClaims{UserID: user.ID}, nil
	}

	var pulled, pushedAfterPull bool
	userRepo.PullRefreshTokenFunc = func(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
		pulled = true
		return true, nil
	}
	userRepo.PushRefreshTokenFunc = func(ctx context.Context, userID uuid.UUID, token string, maxTokens int) error {
		pushedAfterPull = pulled
		return nil
	}
	userRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
		return user, nil
	}

	svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), tokenSvc, mocks.NewMockLoginThrottle())
	if _, err := svc.Refresh(context.Background(), "old-token"); err != nil {
		t.Fatal(err)
	}
	if !pushedAfterPull {
		t.Error("rotation must remove the presented token before storing the new one")
	}
}

func TestAuthServiceImpl_ChangePassword(t *testing.T) {
	user := activeUser()

	tests := []struct {
		name          string
		current       string
		newPassword   string
		confirm       string
		setupMocks    func(userRepo *mocks.MockUserRepository, passwordSvc *mocks.MockPasswordService)
		expectedError error
	}{
		{
			name:        "successful change",
			current:     "Correct1",
			newPassword: "Fresh2New",
			confirm:     "Fresh2New",
			setupMocks: func(userRepo *mocks.MockUserRepository, passwordSvc *mocks.MockPasswordService) {
				userRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
					return user, nil
				}
			},
		},
		{
			name:        "wrong current password",
			current:     "Wrong1x",
			newPassword: "Fresh2New",
			confirm:     "Fresh2New",
			setupMocks: func(userRepo *mocks.MockUserRepository, passwordSvc *mocks.MockPasswordService) {
				userRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
					return user, nil
				}
			},
			expectedError: domain.ErrInvalidCredentials,
		},
		{
			name:        "weak new password",
			current:     "Correct1",
			newPassword: "weak",
			confirm:     "weak",
			setupMocks: func(userRepo *mocks.MockUserRepository, passwordSvc *mocks.MockPasswordService) {
				userRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
					return user, nil
				}
				passwordSvc.ValidateStrengthFunc = func(password string) []string {
					return []string{"too weak"}
				}
			},
			expectedError: domain.ErrWeakPassword,
		},
		{
			name:        "confirmation mismatch",
			current:     "Correct1",
			newPassword: "Fresh2New",
			confirm:     "Other2New",
			setupMocks: func(userRepo *mocks.MockUserRepository, passwordSvc *mocks.MockPasswordService) {
				userRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
					return user, nil
				}
			},
			expectedError: domain.ErrPasswordMismatch,
		},
		{
			name:          "unknown user",
			current:       "Correct1",
			newPassword:   "Fresh2New",
			confirm:       "Fresh2New",
			setupMocks:    func(*mocks.MockUserRepository, *mocks.MockPasswordService) {},
			expectedError: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := mocks.NewMockUserRepository()
			passwordSvc := mocks.NewMockPasswordService()
			tt.setupMocks(userRepo, passwordSvc)

			svc := newTestAuthService(userRepo, passwordSvc, mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())
			err := svc.ChangePassword(context.Background(), user.ID, tt.current, tt.newPassword, tt.confirm)

			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Fatalf("expected %v, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAuthServiceImpl_ChangePassword_RevokesSessionsAtomically(t *testing.T) {
	user := activeUser()
	userRepo := mocks.NewMockUserRepository()
	userRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
		return user, nil
	}

	var credentialFields map[string]any
	userRepo.UpdateCredentialsFunc = func(ctx context.Context, id uuid.UUID, fields map[string]any) error {
		credentialFields = fields
		return nil
	}

	svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())
	if err := svc.ChangePassword(context.Background(), user.ID, "Correct1", "Fresh2New", "Fresh2New"); err != nil {
		t.Fatal(err)
	}

	if credentialFields == nil {
		t.Fatal("expected the credential update path (which also revokes sessions)")
	}
	if credentialFields["password"] != "hashed_Fresh2New" {
		t.Errorf("unexpected stored hash: %v", credentialFields["password"])
	}
}

func TestAuthServiceImpl_UpdateProfile(t *testing.T) {
	user := activeUser()
	userRepo := mocks.NewMockUserRepository()
	userRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
		return user, nil
	}

	var patched map[string]any
	userRepo.UpdateFieldsFunc = func(ctx context.Context, id uuid.UUID, fields map[string]any) error {
		patched = fields
		return nil
	}

	svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())

	first := "Renamed"
	result, err := svc.UpdateProfile(context.Background(), user.ID, domain.ProfileUpdate{FirstName: &first})
	if err != nil {
		t.Fatal(err)
	}
	if result == nil {
		t.Fatal("expected sanitized user")
	}

	if len(patched) != 1 || patched["first_name"] != "Renamed" {
		t.Errorf("expected only first_name in the patch, got %v", patched)
	}

	// An empty patch is a read, not a write.
	patched = nil
	if _, err := svc.UpdateProfile(context.Background(), user.ID, domain.ProfileUpdate{}); err != nil {
		t.Fatal(err)
	}
	if patched != nil {
		t.Error("empty patch should not touch the store")
	}
}

func TestAuthServiceImpl_SoftDelete(t *testing.T) {
	userRepo := mocks.NewMockUserRepository()

	var deletedBy uuid.UUID
	userRepo.SoftDeleteFunc = func(ctx context.Context, userID, by uuid.UUID) error {
		deletedBy = by
		return nil
	}

	svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())

	target, admin := uuid.New(), uuid.New()
	if err := svc.SoftDelete(context.Background(), target, admin); err != nil {
		t.Fatal(err)
	}
	if deletedBy != admin {
		t.Errorf("expected deleted_by=%s, got %s", admin, deletedBy)
	}

	userRepo.SoftDeleteFunc = func(ctx context.Context, userID, by uuid.UUID) error {
		return domain.ErrUserNotFound
	}
	if err := svc.SoftDelete(context.Background(), uuid.New(), admin); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthServiceImpl_ForgotPassword(t *testing.T) {
	user := activeUser()

	t.Run("unknown email still succeeds", func(t *testing.T) {
		userRepo := mocks.NewMockUserRepository()
		var tokenStored bool
		userRepo.SetPasswordResetTokenFunc = func(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error {
			tokenStored = true
			return nil
		}

		svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())
		if err := svc.ForgotPassword(context.Background(), "ghost@example.com", "10.0.0.1"); err != nil {
			t.Fatalf("unknown email must not error: %v", err)
		}
		if tokenStored {
			t.Error("no token should be stored for an unknown email")
		}
	})

	t.Run("known email stores a bounded-lifetime token", func(t *testing.T) {
		userRepo := mocks.NewMockUserRepository()
		userRepo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
			return user, nil
		}

		var storedToken string
		var storedExpiry time.Time
		userRepo.SetPasswordResetTokenFunc = func(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error {
			storedToken = token
			storedExpiry = expires
			return nil
		}

		svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())
		if err := svc.ForgotPassword(context.Background(), user.Email, "10.0.0.1"); err != nil {
			t.Fatal(err)
		}
		if storedToken == "" {
			t.Fatal("expected a stored reset token")
		}
		if remaining := time.Until(storedExpiry); remaining < 55*time.Minute || remaining > 65*time.Minute {
			t.Errorf("expected ~1h expiry, got %s", remaining)
		}
	})
}

func TestAuthServiceImpl_ResetPassword(t *testing.T) {
	user := activeUser()

	t.Run("invalid token", func(t *testing.T) {
		svc := newTestAuthService(mocks.NewMockUserRepository(), mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())
		err := svc.ResetPassword(context.Background(), "bogus", "Fresh2New", "Fresh2New")
		if !errors.Is(err, domain.ErrInvalidResetToken) {
			t.Fatalf("expected ErrInvalidResetToken, got %v", err)
		}
	})

	t.Run("successful redemption clears token and sessions", func(t *testing.T) {
		userRepo := mocks.NewMockUserRepository()
		userRepo.FindByPasswordResetTokenFunc = func(ctx context.Context, token string) (*domain.User, error) {
			return user, nil
		}

		var fields map[string]any
		userRepo.UpdateCredentialsFunc = func(ctx context.Context, id uuid.UUID, f map[string]any) error {
			fields = f
			return nil
		}

		svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())
		if err := svc.ResetPassword(context.Background(), "valid-token", "Fresh2New", "Fresh2New"); err != nil {
			t.Fatal(err)
		}
		if fields["password"] != "hashed_Fresh2New" {
			t.Errorf("unexpected stored hash: %v", fields["password"])
		}
		if fields["password_reset_token"] != "" {
			t.Error("reset token should be cleared on redemption")
		}
	})
}

func TestAuthServiceImpl_VerifyEmail(t *testing.T) {
	user := activeUser()

	t.Run("invalid token", func(t *testing.T) {
		svc := newTestAuthService(mocks.NewMockUserRepository(), mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())
		if err := svc.VerifyEmail(context.Background(), "bogus"); !errors.Is(err, domain.ErrInvalidVerifyToken) {
			t.Fatalf("expected ErrInvalidVerifyToken, got %v", err)
		}
	})

	t.Run("successful verification", func(t *testing.T) {
		userRepo := mocks.NewMockUserRepository()
		userRepo.FindByEmailVerifyTokenFunc = func(ctx context.Context, token string) (*domain.User, error) {
			return user, nil
		}

		var fields map[string]any
		userRepo.UpdateFieldsFunc = func(ctx context.Context, id uuid.UUID, f map[string]any) error {
			fields = f
			return nil
		}

		svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())
		if err := svc.VerifyEmail(context.Background(), "valid-token"); err != nil {
			t.Fatal(err)
		}
		if fields["email_verified"] != true {
			t.Errorf("expected email_verified=true, got %v", fields)
		}
		if fields["email_verify_token"] != "" {
			t.Error("verify token should be cleared on redemption")
		}
	})
}

func TestAuthServiceImpl_AuditFailureNeverFailsOperation(t *testing.T) {
	userRepo := mocks.NewMockUserRepository()
	userRepo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
		return activeUser(), nil
	}
	userRepo.AppendAuditEntryFunc = func(ctx context.Context, userID uuid.UUID, action domain.AuditAction, origin string, maxEntries int) error {
		return errors.New("audit table unavailable")
	}

	svc := newTestAuthService(userRepo, mocks.NewMockPasswordService(), mocks.NewMockTokenService(), mocks.NewMockLoginThrottle())
	if _, err := svc.Login(context.Background(), "buyer@example.com", "Correct1", "10.0.0.1"); err != nil {
		t.Fatalf("audit failure must not fail login: %v", err)
	}
}
