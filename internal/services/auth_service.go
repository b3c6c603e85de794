package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commercekit/authsvc/domain"
)

// AuthConfig carries the orchestrator's externally injected constants.
type AuthConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	MaxRefreshTokens int
	MaxAuditEntries  int
	ResetTokenTTL    time.Duration
	VerifyTokenTTL   time.Duration
}

// AuthServiceImpl implements domain.AuthService. It is the only component
// that mutates identity and session state.
type AuthServiceImpl struct {
	userRepo    domain.UserRepository
	passwordSvc domain.PasswordService
	tokenSvc    domain.TokenService
	throttle    domain.LoginThrottle
	logger      *zap.Logger
	config      AuthConfig
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo domain.UserRepository,
	passwordSvc domain.PasswordService,
	tokenSvc domain.TokenService,
	throttle domain.LoginThrottle,
	logger *zap.Logger,
	config AuthConfig,
) domain.AuthService {
	return &AuthServiceImpl{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
		tokenSvc:    tokenSvc,
		throttle:    throttle,
		logger:      logger,
		config:      config,
	}
}

// Register implements domain.AuthService. The unique-email check and the
// insert are one atomic store operation, so two concurrent registrations for
// the same email cannot both succeed.
func (s *AuthServiceImpl) Register(ctx context.Context, input domain.RegisterInput) (*domain.AuthResult, error) {
	if err := s.checkNewPassword(input.Password, input.PasswordConfirm); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	hash, err := s.passwordSvc.Hash(input.Password)
	if err != nil {
		s.logger.Error("password hashing failed", zap.Error(err))
		return nil, fmt.Errorf("%w: hashing failure", domain.ErrTransient)
	}

	user := &domain.User{
		Email:        domain.NormalizeEmail(input.Email),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
		PasswordHash: hash,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		return nil, s.classify("register", err)
	}

	// Kick off email verification. Delivery is a separate channel; the core
	// only mints and stores the token.
	if token, err := s.passwordSvc.GenerateSecureToken(); err == nil {
		expires := time.Now().Add(s.config.VerifyTokenTTL)
		if err := s.userRepo.SetEmailVerifyToken(ctx, user.ID, token, expires); err != nil {
			s.logger.Warn("storing email verify token failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	} else {
		s.logger.Warn("generating email verify token failed", zap.Error(err))
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user.ID, domain.AuditRegistered, input.Origin)
	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))
	return result, nil
}

// Login implements domain.AuthService.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, origin string) (*domain.AuthResult, error) {
	email = domain.NormalizeEmail(email)

	// Short-window throttle ahead of the persistent lockout. Degrades open:
	// a throttle backend failure never blocks a login.
	if ok, err := s.throttle.Allow(ctx, email); err != nil {
		s.logger.Warn("login throttle unavailable", zap.Error(err))
	} else if !ok {
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Same signal as a wrong password: the caller cannot tell which
			// factor failed.
			return nil, domain.ErrInvalidCredentials
		}
		return nil, s.classify("login lookup", err)
	}

	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	// Lockout wins over password correctness.
	if user.IsLocked(time.Now()) {
		return nil, domain.ErrAccountLocked
	}

	if !s.passwordSvc.Verify(user.PasswordHash, password) {
		attempts, incErr := s.userRepo.IncrementFailedLogins(ctx, user.ID, s.config.LockoutThreshold, s.config.LockoutDuration)
		if incErr != nil {
			s.logger.Error("recording failed login failed", zap.String("user_id", user.ID.String()), zap.Error(incErr))
		} else if attempts >= s.config.LockoutThreshold {
			s.logger.Warn("account locked after repeated failures",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", attempts))
		}
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.userRepo.ResetLockout(ctx, user.ID); err != nil {
		return nil, s.classify("reset lockout", err)
	}
	if err := s.userRepo.RecordLogin(ctx, user.ID, now, origin); err != nil {
		s.logger.Warn("recording last login failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	if err := s.throttle.Reset(ctx, email); err != nil {
		s.logger.Debug("throttle reset failed", zap.Error(err))
	}
	user.LastLoginAt = &now
	user.LastLoginIP = origin

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user.ID, domain.AuditLoggedIn, origin)
	return result, nil
}

// Refresh implements domain.AuthService. Rotation is single-use: the
// presented token is removed from the stored set before a new pair is
// issued, so a replay finds nothing.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	claims, err := s.tokenSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}

	found, err := s.userRepo.PullRefreshToken(ctx, claims.UserID, refreshToken)
	if err != nil {
		return nil, s.classify("refresh rotation", err)
	}
	if !found {
		// Signature-valid but not in the stored set: revoked, rotated, or
		// replayed.
		s.logger.Warn("refresh token replay or revoked token",
			zap.String("user_id", claims.UserID.String()))
		return nil, domain.ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, s.classify("refresh lookup", err)
	}
	if !user.IsActive {
		return nil, domain.ErrInvalidRefreshToken
	}

	return s.issueTokens(ctx, user)
}

// ChangePassword implements domain.AuthService. Storing the new hash and
// revoking every session happen in one atomic store operation.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword, confirm string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return s.classify("change password lookup", err)
	}

	if !s.passwordSvc.Verify(user.PasswordHash, current) {
		return domain.ErrInvalidCredentials
	}
	if err := s.checkNewPassword(newPassword, confirm); err != nil {
		return err
	}

	hash, err := s.passwordSvc.Hash(newPassword)
	if err != nil {
		s.logger.Error("password hashing failed", zap.Error(err))
		return fmt.Errorf("%w: hashing failure", domain.ErrTransient)
	}

	if err := s.userRepo.UpdateCredentials(ctx, userID, map[string]any{"password": hash}); err != nil {
		return s.classify("change password", err)
	}

	s.audit(ctx, userID, domain.AuditPasswordChanged, "")
	s.logger.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

// GetByID implements domain.AuthService.
func (s *AuthServiceImpl) GetByID(ctx context.Context, userID uuid.UUID) (*domain.PublicUser, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, s.classify("get user", err)
	}
	return user.Sanitize(), nil
}

// UpdateProfile implements domain.AuthService. The patch is field-level and
// cannot touch credential columns.
func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, patch domain.ProfileUpdate) (*domain.PublicUser, error) {
	fields := map[string]any{}
	if patch.FirstName != nil {
		fields["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		fields["last_name"] = *patch.LastName
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return nil, domain.ErrUserNotFound
			}
			return nil, s.classify("update profile", err)
		}
		s.audit(ctx, userID, domain.AuditProfileUpdated, "")
	}

	return s.GetByID(ctx, userID)
}

// SoftDelete implements domain.AuthService.
func (s *AuthServiceImpl) SoftDelete(ctx context.Context, userID, deletedBy uuid.UUID) error {
	// The audit row is written first; the user row is invisible afterwards.
	s.audit(ctx, userID, domain.AuditAccountDeleted, deletedBy.String())

	if err := s.userRepo.SoftDelete(ctx, userID, deletedBy); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return s.classify("soft delete", err)
	}

	s.logger.Info("user soft deleted",
		zap.String("user_id", userID.String()),
		zap.String("deleted_by", deletedBy.String()))
	return nil
}

// ForgotPassword implements domain.AuthService. The response is identical
// whether or not the account exists, so the endpoint cannot be used to
// enumerate registered emails.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email, origin string) error {
	user, err := s.userRepo.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return s.classify("forgot password lookup", err)
	}

	token, err := s.passwordSvc.GenerateSecureToken()
	if err != nil {
		return fmt.Errorf("%w: token generation failure", domain.ErrTransient)
	}

	expires := time.Now().Add(s.config.ResetTokenTTL)
	if err := s.userRepo.SetPasswordResetToken(ctx, user.ID, token, expires); err != nil {
		return s.classify("store reset token", err)
	}

	// Delivery (email) is out of scope; the token is handed to the delivery
	// channel via the log sink for now.
	s.logger.Info("password reset token issued",
		zap.String("user_id", user.ID.String()),
		zap.String("origin", origin),
		zap.Time("expires", expires))
	return nil
}

// ResetPassword implements domain.AuthService. Redeeming the token clears it
// and revokes every active session atomically with the new hash.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword, confirm string) error {
	user, err := s.userRepo.FindByPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidResetToken
		}
		return s.classify("reset token lookup", err)
	}

	if err := s.checkNewPassword(newPassword, confirm); err != nil {
		return err
	}

	hash, err := s.passwordSvc.Hash(newPassword)
	if err != nil {
		s.logger.Error("password hashing failed", zap.Error(err))
		return fmt.Errorf("%w: hashing failure", domain.ErrTransient)
	}

	err = s.userRepo.UpdateCredentials(ctx, user.ID, map[string]any{
		"password":               hash,
		"password_reset_token":   "",
		"password_reset_expires": nil,
	})
	if err != nil {
		return s.classify("reset password", err)
	}

	s.audit(ctx, user.ID, domain.AuditPasswordReset, "")
	s.logger.Info("password reset", zap.String("user_id", user.ID.String()))
	return nil
}

// VerifyEmail implements domain.AuthService.
func (s *AuthServiceImpl) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.userRepo.FindByEmailVerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidVerifyToken
		}
		return s.classify("verify token lookup", err)
	}

	err = s.userRepo.UpdateFields(ctx, user.ID, map[string]any{
		"email_verified":       true,
		"email_verify_token":   "",
		"email_verify_expires": nil,
	})
	if err != nil {
		return s.classify("verify email", err)
	}

	s.audit(ctx, user.ID, domain.AuditEmailVerified, "")
	return nil
}

// issueTokens mints an access/refresh pair, stores the refresh token in the
// bounded session set, and builds the sanitized result. ExpiresIn always
// reflects the configured access TTL.
func (s *AuthServiceImpl) issueTokens(ctx context.Context, user *domain.User) (*domain.AuthResult, error) {
	accessToken, err := s.tokenSvc.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("access token generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: token generation failure", domain.ErrTransient)
	}
	refreshToken, err := s.tokenSvc.GenerateRefreshToken(user)
	if err != nil {
		s.logger.Error("refresh token generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: token generation failure", domain.ErrTransient)
	}

	if err := s.userRepo.PushRefreshToken(ctx, user.ID, refreshToken, s.config.MaxRefreshTokens); err != nil {
		return nil, s.classify("store refresh token", err)
	}

	return &domain.AuthResult{
		User:         user.Sanitize(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenSvc.AccessTTL().Seconds()),
	}, nil
}

// checkNewPassword enforces confirmation match and strength rules. Every
// violated strength rule is reported in one pass.
func (s *AuthServiceImpl) checkNewPassword(password, confirm string) error {
	if password != confirm {
		return domain.ErrPasswordMismatch
	}
	if violations := s.passwordSvc.ValidateStrength(password); len(violations) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrWeakPassword, strings.Join(violations, "; "))
	}
	return nil
}

// audit appends to the bounded security trail. Best-effort: a trail write
// failure is logged and never fails the primary operation.
func (s *AuthServiceImpl) audit(ctx context.Context, userID uuid.UUID, action domain.AuditAction, origin string) {
	if err := s.userRepo.AppendAuditEntry(ctx, userID, action, origin, s.config.MaxAuditEntries); err != nil {
		s.logger.Warn("audit trail write failed",
			zap.String("user_id", userID.String()),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// classify maps store and infrastructure failures into the domain taxonomy.
// Domain sentinels pass through; context timeouts and unknown store errors
// surface as transient, with full detail kept server-side in the log.
func (s *AuthServiceImpl) classify(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.logger.Warn("store operation timed out", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %s timed out", domain.ErrTransient, op)
	default:
		s.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %s", domain.ErrTransient, op)
	}
}
