package utils

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"mediconnect/cache"
)

const ResetCodeExpiry = 15 * time.Minute

// GenerateResetCode returns a random 6-digit reset code.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ResetCodes keeps one pending password reset code per email.
type ResetCodes struct {
	store cache.Store
	ttl   time.Duration
}

func NewResetCodes(store cache.Store) *ResetCodes {
	return &ResetCodes{store: store, ttl: ResetCodeExpiry}
}

// Issue stores a fresh code for email, replacing any earlier one.
func (r *ResetCodes) Issue(ctx context.Context, email string) (string, error) {
	code, err := GenerateResetCode()
	if err != nil {
		return "", err
	}
	if err := r.store.Set(ctx, resetCodeKey(email), code, r.ttl); err != nil {
		return "", fmt.Errorf("failed to store reset code: %w", err)
	}
	return code, nil
}

// Verify reports whether code matches the pending code for email.
func (r *ResetCodes) Verify(ctx context.Context, email, code string) (bool, error) {
	stored, err := r.store.Get(ctx, resetCodeKey(email))
	if err != nil {
		return false, fmt.Errorf("failed to read reset code: %w", err)
	}
	if stored == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1, nil
}

// Consume removes the pending code for email.
func (r *ResetCodes) Consume(ctx context.Context, email string) error {
	return r.store.Delete(ctx, resetCodeKey(email))
}

func resetCodeKey(email string) string {
	return "reset_code:" + email
}
