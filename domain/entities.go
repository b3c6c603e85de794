package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the authorization level of a user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// AuditAction names a security-relevant action recorded on a user's trail.
type AuditAction string

const (
	AuditRegistered      AuditAction = "registered"
	AuditLoggedIn        AuditAction = "logged_in"
	AuditPasswordChanged AuditAction = "password_changed"
	AuditPasswordReset   AuditAction = "password_reset"
	AuditEmailVerified   AuditAction = "email_verified"
	AuditProfileUpdated  AuditAction = "profile_updated"
	AuditAccountDeleted  AuditAction = "account_deleted"
)

// User is the authoritative identity record.
type User struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Role      Role

	PasswordHash         string
	PasswordResetToken   string
	PasswordResetExpires *time.Time
	EmailVerifyToken     string
	EmailVerifyExpires   *time.Time

	FailedLoginAttempts int
	LockUntil           *time.Time

	IsActive      bool
	EmailVerified bool
	DeletedAt     *time.Time
	DeletedBy     *uuid.UUID

	LastLoginAt *time.Time
	LastLoginIP string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins first and last name, tolerating either being empty.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsLocked reports whether the account is under a brute-force lockout at the
// given instant. A locked account rejects login regardless of password
// correctness.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// IsDeleted reports whether the account has been soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// NormalizeEmail lowercases and trims an email address so that lookups and
// the unique-email invariant are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PublicUser is the sanitized, caller-facing shape of a User. Credential and
// internal security fields (password hash, reset/verify tokens, refresh
// tokens, audit trail, lockout state) are not representable here.
type PublicUser struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	FullName      string     `json:"full_name"`
	Role          Role       `json:"role"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Sanitize strips everything security-sensitive from the user. Every return
// path that hands a user to a caller must go through this.
func (u *User) Sanitize() *PublicUser {
	return &PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		FullName:      u.FullName(),
		Role:          u.Role,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// RefreshToken is one entry of a user's bounded active-session set. The raw
// signed string is stored so each token can be individually revoked.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
}

// AuditEntry is one record of the bounded, append-only security trail.
type AuditEntry struct {
	ID        uint        `json:"-"`
	UserID    uuid.UUID   `json:"user_id"`
	Action    AuditAction `json:"action"`
	Origin    string      `json:"origin,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// TokenClaims is the verified claim set carried by access and refresh tokens.
type TokenClaims struct {
	UserID    uuid.UUID
	Email     string
	Role      Role
	TokenID   string
	IssuedAt  int64
	ExpiresAt int64
}

// RegisterInput carries everything needed to create an account. An empty
// Role defaults to customer; admin accounts are provisioned out of band.
type RegisterInput struct {
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
	Role            Role
	Origin          string
}

// ProfileUpdate is a field-level profile patch. Credential fields are not
// representable here; nil means leave unchanged.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
}

// AuthResult is the outcome of a successful register, login or refresh.
type AuthResult struct {
	User         *PublicUser
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}
