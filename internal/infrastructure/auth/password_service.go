package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/commercekit/authsvc/domain"
)

const secureTokenBytes = 32 // 256 bits of entropy

// PasswordServiceImpl implements domain.PasswordService using bcrypt.
type PasswordServiceImpl struct {
	cost   int
	logger *zap.Logger
}

// NewPasswordService creates a new password service. Cost is the bcrypt work
// factor; values outside bcrypt's supported range fall back to 12.
func NewPasswordService(cost int, logger *zap.Logger) domain.PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = 12
	}
	return &PasswordServiceImpl{cost: cost, logger: logger}
}

// Hash implements domain.PasswordService.
func (p *PasswordServiceImpl) Hash(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify implements domain.PasswordService. It never returns an error: a
// malformed stored hash is treated as a failed match and logged as a soft
// failure, because the comparison feeds the generic invalid-credentials path.
func (p *PasswordServiceImpl) Verify(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil && err != bcrypt.ErrMismatchedHashAndPassword {
		p.logger.Debug("password verify soft failure", zap.Error(err))
	}
	return err == nil
}

// GenerateSecureToken implements domain.PasswordService.
func (p *PasswordServiceImpl) GenerateSecureToken() (string, error) {
	buf := make([]byte, secureTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secure token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidateStrength implements domain.PasswordService. All violated rules are
// collected so the caller sees every problem at once.
func (p *PasswordServiceImpl) ValidateStrength(password string) []string {
	var violations []string

	if len(password) < 6 {
		violations = append(violations, "password must be at least 6 characters long")
	}

	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasLower {
		violations = append(violations, "password must contain at least one lowercase letter")
	}
	if !hasUpper {
		violations = append(violations, "password must contain at least one uppercase letter")
	}
	if !hasDigit {
		violations = append(violations, "password must contain at least one digit")
	}

	return violations
}
