package domain

import "errors"

// Validation errors: the caller must fix the input and resubmit.
var (
	ErrWeakPassword     = errors.New("password does not meet strength requirements")
	ErrPasswordMismatch = errors.New("password confirmation does not match")
	ErrInvalidRole      = errors.New("invalid role")
)

// Conflict errors.
var (
	ErrEmailTaken = errors.New("email address already in use")
)

// Authentication errors. Messages stay generic so a caller cannot tell which
// factor failed.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountLocked       = errors.New("account temporarily locked")
	ErrUserInactive        = errors.New("user account is inactive")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrInvalidVerifyToken  = errors.New("invalid or expired verification token")
	ErrTooManyAttempts     = errors.New("too many login attempts")
)

// Token errors.
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
)

// Authorization errors.
var (
	ErrUnauthorized     = errors.New("authentication required")
	ErrInsufficientRole = errors.New("insufficient role permissions")
)

// Lookup and infrastructure errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrTransient    = errors.New("transient store failure")
)

// IsValidation reports whether err belongs to the validation class.
func IsValidation(err error) bool {
	return errors.Is(err, ErrWeakPassword) ||
		errors.Is(err, ErrPasswordMismatch) ||
		errors.Is(err, ErrInvalidRole)
}

// IsConflict reports whether err belongs to the conflict class.
func IsConflict(err error) bool {
	return errors.Is(err, ErrEmailTaken)
}

// IsAuthentication reports whether err belongs to the authentication class.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrUserInactive) ||
		errors.Is(err, ErrInvalidRefreshToken) ||
		errors.Is(err, ErrInvalidResetToken) ||
		errors.Is(err, ErrInvalidVerifyToken) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrUnauthorized)
}

// IsNotFound reports whether err belongs to the not-found class.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsTransient reports whether err is a retryable store/timeout failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
