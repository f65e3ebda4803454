package utils

import (
	"context"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name       string
		userName   string
		email      string
		password   string
		role       string
		wantFields []string
	}{
		{name: "valid", userName: "Alice", email: "alice@x.com", password: "pw123456", role: "PATIENT"},
		{name: "missing name", email: "alice@x.com", password: "pw123456", role: "PATIENT", wantFields: []string{"name"}},
		{name: "bad email", userName: "Alice", email: "alice", password: "pw123456", role: "PATIENT", wantFields: []string{"email"}},
		{name: "short password", userName: "Alice", email: "alice@x.com", password: "pw1", role: "PATIENT", wantFields: []string{"password"}},
		{name: "no digit", userName: "Alice", email: "alice@x.com", password: "password", role: "PATIENT", wantFields: []string{"password"}},
		{name: "everything missing", wantFields: []string{"name", "email", "password", "role"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(tt.userName, tt.email, tt.password, tt.role)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var errs validation.Errors
			require.ErrorAs(t, err, &errs)
			assert.Len(t, errs, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, errs, f)
			}
		})
	}
}

func TestValidatePasswordReset(t *testing.T) {
	assert.NoError(t, ValidatePasswordReset("alice@x.com", "123456", "newpass99"))

	err := ValidatePasswordReset("alice@x.com", "12ab", "newpass99")
	var errs validation.Errors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs, "code")
}

type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *mapStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *mapStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mapStore) DeleteBatch(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func TestResetCodes(t *testing.T) {
	ctx := context.Background()
	codes := NewResetCodes(&mapStore{data: map[string]string{}})

	code, err := codes.Issue(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, code)

	ok, err := codes.Verify(ctx, "alice@x.com", code)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = codes.Verify(ctx, "bob@x.com", code)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, codes.Consume(ctx, "alice@x.com"))
	ok, err = codes.Verify(ctx, "alice@x.com", code)
	require.NoError(t, err)
	assert.False(t, ok)
}
