package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"pokeguide-backend/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// refreshTokenBytes is the entropy of an opaque refresh token before hex encoding.
const refreshTokenBytes = 48

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 access tokens. It holds no state
// beyond the key, so one instance serves all requests.
type TokenManager struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewTokenManager(secret string, accessTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

func (m *TokenManager) IssueAccessToken(userID string, role model.Role) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.accessTTL)
	claims := accessClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry. Every failure is ErrUnauthorized.
func (m *TokenManager) Verify(tokenString string) (*model.Principal, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	if claims.Subject == "" {
		return nil, ErrUnauthorized
	}
	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return nil, ErrUnauthorized
	}

	return &model.Principal{
		UserID:    claims.Subject,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Authorize reports whether p may act with the required role. Roles do not
// nest: an admin route needs an admin, a player route needs a player.
func Authorize(p *model.Principal, required model.Role) error {
	if p == nil {
		return ErrUnauthorized
	}
	switch p.Role {
	case model.RoleAdmin, model.RolePlayer:
		if p.Role == required {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}
