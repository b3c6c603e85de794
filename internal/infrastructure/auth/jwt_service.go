package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/commercekit/authsvc/domain"
)

// JWTServiceImpl implements domain.TokenService. Access and refresh tokens
// are signed with independent secrets so that a token of one kind can never
// verify as the other.
type JWTServiceImpl struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewJWTService creates a new JWT service.
func NewJWTService(accessSecret, refreshSecret, issuer, audience string, accessTTL, refreshTTL time.Duration) domain.TokenService {
	return &JWTServiceImpl{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		audience:      audience,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

type authClaims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func (j *JWTServiceImpl) generate(user *domain.User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := authClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// GenerateAccessToken implements domain.TokenService.
func (j *JWTServiceImpl) GenerateAccessToken(user *domain.User) (string, error) {
	return j.generate(user, j.accessSecret, j.accessTTL)
}

// GenerateRefreshToken implements domain.TokenService.
func (j *JWTServiceImpl) GenerateRefreshToken(user *domain.User) (string, error) {
	return j.generate(user, j.refreshSecret, j.refreshTTL)
}

// ValidateAccessToken implements domain.TokenService.
func (j *JWTServiceImpl) ValidateAccessToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validate(tokenString, j.accessSecret)
}

// ValidateRefreshToken implements domain.TokenService.
func (j *JWTServiceImpl) ValidateRefreshToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validate(tokenString, j.refreshSecret)
}

func (j *JWTServiceImpl) validate(tokenString string, secret []byte) (*domain.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenMalformed
		}
		return secret, nil
	},
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, domain.ErrTokenMalformed
		default:
			// Wrong secret, tampered payload, wrong issuer/audience: all fail
			// closed under the same generic signal.
			return nil, domain.ErrTokenInvalid
		}
	}

	claims, ok := parsed.Claims.(*authClaims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrTokenInvalid
	}
	return j.toDomainClaims(claims)
}

func (j *JWTServiceImpl) toDomainClaims(claims *authClaims) (*domain.TokenClaims, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.ErrTokenMalformed
	}
	out := &domain.TokenClaims{
		UserID:  userID,
		Email:   claims.Email,
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return out, nil
}

// Decode implements domain.TokenService. The signature is not verified, so
// the result must only ever feed logging and diagnostics.
func (j *JWTServiceImpl) Decode(tokenString string) (*domain.TokenClaims, bool) {
	claims := &authClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, false
	}
	out, err := j.toDomainClaims(claims)
	if err != nil {
		return nil, false
	}
	return out, true
}

// IsExpired implements domain.TokenService. Undecodable tokens report
// expired, the safe default for the non-security paths this feeds.
func (j *JWTServiceImpl) IsExpired(tokenString string) bool {
	claims, ok := j.Decode(tokenString)
	if !ok || claims.ExpiresAt == 0 {
		return true
	}
	return time.Unix(claims.ExpiresAt, 0).Before(time.Now())
}

// ExtractSubject implements domain.TokenService.
func (j *JWTServiceImpl) ExtractSubject(tokenString string) (uuid.UUID, bool) {
	claims, ok := j.Decode(tokenString)
	if !ok {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

// AccessTTL implements domain.TokenService.
func (j *JWTServiceImpl) AccessTTL() time.Duration {
	return j.accessTTL
}
