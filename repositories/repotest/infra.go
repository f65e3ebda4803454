package repotest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mediconnect/cache"
)

// Store is an in-memory cache.Store that honours expirations.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]storeEntry
}

type storeEntry struct {
	value     string
	expiresAt time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now, entries: map[string]storeEntry{}}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return "", nil
	}
	return e.value, nil
}

func (s *Store) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		str = fmt.Sprint(v)
	}
	e := storeEntry{value: str}
	if expiration > 0 {
		e.expiresAt = s.now().Add(expiration)
	}
	s.entries[key] = e
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *Store) DeleteBatch(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// Len counts stored keys, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Locker is an in-process cache.Locker.
type Locker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocker() *Locker {
	return &Locker{held: map[string]bool{}}
}

func (l *Locker) Acquire(_ context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, cache.ErrLockHeld
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}

// Mailer records reset codes instead of sending them.
type Mailer struct {
	mu   sync.Mutex
	sent map[string]string
	Err  error
}

func NewMailer() *Mailer {
	return &Mailer{sent: map[string]string{}}
}

func (m *Mailer) SendResetCode(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent[email] = code
	return nil
}

// LastCode returns the most recent code sent to email.
func (m *Mailer) LastCode(email string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.sent[email]
	return code, ok
}
