package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// MinSecretLength is the shortest accepted HMAC signing secret, in bytes.
	MinSecretLength = 32

	DefaultAccessTokenExpiry = 24 * time.Hour
)

// ErrInvalidToken covers every reason a token is refused.
var ErrInvalidToken = errors.New("invalid or expired token")

// ConfigurationError is returned when a setting makes startup impossible.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Setting, e.Reason)
}

// TokenService issues and checks HS256 access tokens bound to a user's email.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenService fails when the secret is shorter than MinSecretLength bytes.
// A non-positive lifetime is accepted; tokens issued with it never validate.
func NewTokenService(secret string, lifetime time.Duration) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, &ConfigurationError{
			Setting: "JWT_SECRET",
			Reason:  fmt.Sprintf("must be at least %d bytes, got %d", MinSecretLength, len(secret)),
		}
	}
	return &TokenService{secret: []byte(secret), lifetime: lifetime, now: time.Now}, nil
}

// WithClock replaces the time source used for issuing and validating.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs a token for subject that expires after the configured lifetime.
func (s *TokenService) Issue(subject string) (string, time.Time, error) {
	issuedAt := s.now()
	// exp is encoded at jwt.TimePrecision; report the instant the token
	// actually stops validating
	expiresAt := issuedAt.Add(s.lifetime).Truncate(jwt.TimePrecision)

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse verifies signature, algorithm and expiry and returns the claims.
func (s *TokenService) Parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Subject returns the email a valid token was issued for.
func (s *TokenService) Subject(tokenString string) (string, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Validate reports whether the token is well formed, unexpired and issued
// for expectedSubject. It never panics on malformed input.
func (s *TokenService) Validate(tokenString, expectedSubject string) bool {
	subject, err := s.Subject(tokenString)
	if err != nil {
		return false
	}
	return subject == expectedSubject
}
