package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository is the identity store: the single source of truth for user
// records. Every operation is atomic at the single-row level so that
// concurrent logins and registrations for the same identity cannot lose
// updates.
type UserRepository interface {
	// Create inserts the user, enforcing the unique-email invariant inside
	// the same atomic operation. A concurrent duplicate surfaces as
	// ErrEmailTaken, never as a second record.
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// UpdateFields applies a column-level patch to the user row.
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// UpdateCredentials applies a credential patch and revokes every stored
	// refresh token in one atomic unit, so no stale session survives a
	// password change.
	UpdateCredentials(ctx context.Context, id uuid.UUID, fields map[string]any) error

	// PushRefreshToken appends a refresh token to the user's active set and
	// trims the oldest entries beyond maxTokens, both in one atomic unit.
	PushRefreshToken(ctx context.Context, userID uuid.UUID, token string, maxTokens int) error
	// PullRefreshToken removes a single stored refresh token. The boolean
	// reports whether the token was present, which is what makes rotation
	// single-use.
	PullRefreshToken(ctx context.Context, userID uuid.UUID, token string) (bool, error)
	ClearRefreshTokens(ctx context.Context, userID uuid.UUID) error

	// IncrementFailedLogins atomically bumps the failure counter and, when
	// the new value reaches threshold, sets the lockout deadline. Returns the
	// post-increment counter.
	IncrementFailedLogins(ctx context.Context, userID uuid.UUID, threshold int, lockFor time.Duration) (int, error)
	ResetLockout(ctx context.Context, userID uuid.UUID) error
	RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time, origin string) error

	// AppendAuditEntry appends to the bounded security trail, evicting the
	// oldest entries beyond maxEntries FIFO.
	AppendAuditEntry(ctx context.Context, userID uuid.UUID, action AuditAction, origin string, maxEntries int) error
	ListAuditEntries(ctx context.Context, userID uuid.UUID) ([]AuditEntry, error)

	SoftDelete(ctx context.Context, userID, deletedBy uuid.UUID) error

	SetPasswordResetToken(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error
	FindByPasswordResetToken(ctx context.Context, token string) (*User, error)
	SetEmailVerifyToken(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error
	FindByEmailVerifyToken(ctx context.Context, token string) (*User, error)
}

// PasswordService is the credential hasher.
type PasswordService interface {
	Hash(password string) (string, error)
	// Verify never errors; a malformed hash yields false.
	Verify(hashedPassword, password string) bool
	// GenerateSecureToken returns 256 bits of hex-encoded entropy for
	// password-reset and email-verification tokens.
	GenerateSecureToken() (string, error)
	// ValidateStrength returns every violated rule, not just the first.
	ValidateStrength(password string) []string
}

// TokenService signs and verifies access and refresh tokens. The two kinds
// use independent secrets; verifying one kind with the other's secret fails
// closed.
type TokenService interface {
	GenerateAccessToken(user *User) (string, error)
	GenerateRefreshToken(user *User) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	ValidateRefreshToken(token string) (*TokenClaims, error)
	// Decode reads claims without verifying the signature. Diagnostics only,
	// never authorization.
	Decode(token string) (*TokenClaims, bool)
	// IsExpired and ExtractSubject are best-effort conveniences over Decode;
	// on any decode failure they return the safe default.
	IsExpired(token string) bool
	ExtractSubject(token string) (uuid.UUID, bool)
	// AccessTTL is the configured access-token lifetime, reported back to
	// callers as expires_in.
	AccessTTL() time.Duration
}

// LoginThrottle is a best-effort, short-window attempt limiter consulted
// before the persistent lockout machinery. It degrades open: a throttle
// backend failure never blocks a login.
type LoginThrottle interface {
	// Allow records one attempt for the key and reports whether it is still
	// within the window limit.
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// AuthService is the orchestrator: the only component permitted to mutate
// identity and session state.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password, origin string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword, confirm string) error
	GetByID(ctx context.Context, userID uuid.UUID) (*PublicUser, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, patch ProfileUpdate) (*PublicUser, error)
	SoftDelete(ctx context.Context, userID, deletedBy uuid.UUID) error
	ForgotPassword(ctx context.Context, email, origin string) error
	ResetPassword(ctx context.Context, token, newPassword, confirm string) error
	VerifyEmail(ctx context.Context, token string) error
}

// PolicyService manages the role-to-route authorization policy table.
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() ([][]string, error)
}

// CasbinEnforcer is the subset of the casbin enforcer the service relies on.
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
	SavePolicy() error
}
