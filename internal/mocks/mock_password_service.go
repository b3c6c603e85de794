package mocks

import "github.com/commercekit/authsvc/domain"

// MockPasswordService implements domain.PasswordService for testing.
type MockPasswordService struct {
	HashFunc                func(password string) (string, error)
	VerifyFunc              func(hashedPassword, password string) bool
	GenerateSecureTokenFunc func() (string, error)
	ValidateStrengthFunc    func(password string) []string
}

// NewMockPasswordService creates a new MockPasswordService with default
// behaviors: hashing prefixes, verification matches the prefix scheme, and
// every password is considered strong.
func NewMockPasswordService() *MockPasswordService {
	return &MockPasswordService{}
}

func (m *MockPasswordService) Hash(password string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *MockPasswordService) Verify(hashedPassword, password string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(hashedPassword, password)
	}
	return hashedPassword == "hashed_"+password
}

func (m *MockPasswordService) GenerateSecureToken() (string, error) {
	if m.GenerateSecureTokenFunc != nil {
		return m.GenerateSecureTokenFunc()
	}
	return "secure-token", nil
}

func (m *MockPasswordService) ValidateStrength(password string) []string {
	if m.ValidateStrengthFunc != nil {
		return m.ValidateStrengthFunc(password)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.PasswordService = (*MockPasswordService)(nil)
