package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/o1egl/paseto"
)

const (
	RefreshKeyLength          = 32
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// RefreshClaims is the encrypted payload of a refresh token.
type RefreshClaims struct {
	TokenID string    `json:"jti"`
	Subject string    `json:"sub"`
	Expiry  time.Time `json:"exp"`
}

// RefreshTokenService issues PASETO v2.local refresh tokens. They are opaque
// to clients and only exchangeable for a new access token.
type RefreshTokenService struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewRefreshTokenService requires a key of exactly RefreshKeyLength bytes.
func NewRefreshTokenService(key string, lifetime time.Duration) (*RefreshTokenService, error) {
	if len(key) != RefreshKeyLength {
		return nil, &ConfigurationError{
			Setting: "REFRESH_TOKEN_KEY",
			Reason:  fmt.Sprintf("must be %d bytes, got %d", RefreshKeyLength, len(key)),
		}
	}
	return &RefreshTokenService{key: []byte(key), lifetime: lifetime, now: time.Now}, nil
}

func (s *RefreshTokenService) WithClock(now func() time.Time) *RefreshTokenService {
	s.now = now
	return s
}

// Issue encrypts a refresh token for subject.
func (s *RefreshTokenService) Issue(subject string) (string, time.Time, error) {
	claims := RefreshClaims{
		TokenID: uuid.NewString(),
		Subject: subject,
		Expiry:  s.now().Add(s.lifetime),
	}
	token, err := paseto.NewV2().Encrypt(s.key, claims, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return token, claims.Expiry, nil
}

// Subject decrypts the token and returns its subject if it has not expired.
func (s *RefreshTokenService) Subject(token string) (string, error) {
	var claims RefreshClaims
	if err := paseto.NewV2().Decrypt(token, s.key, &claims, nil); err != nil {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" || !s.now().Before(claims.Expiry) {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
