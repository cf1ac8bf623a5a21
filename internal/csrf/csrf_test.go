package csrf

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

// mockStore implements Store for testing.
type mockStore struct {
	tokens map[string]time.Time
	err    error
}

func newMockStore() *mockStore {
	return &mockStore{
		tokens: make(map[string]time.Time),
	}
}

func (m *mockStore) SaveToken(ctx context.Context, token string, expiresIn time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.tokens[token] = time.Now().Add(expiresIn)
	return nil
}

func (m *mockStore) ValidateToken(ctx context.Context, token string) error {
	if m.err != nil {
		return m.err
	}
	expiry, exists := m.tokens[token]
	if !exists {
		return ErrInvalidToken
	}
	if time.Now().After(expiry) {
		return ErrTokenExpired
	}
	return nil
}

func (m *mockStore) CheckHealth(ctx context.Context) error {
	return m.err
}

func TestManager_GenerateToken(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	secret := []byte("test-secret-key-32-bytes-exactly!")
	manager := NewManager(store, secret, 15*time.Minute)

	t.Run("success", func(t *testing.T) {
		token, err := manager.GenerateToken(ctx)
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}

		body, sig, ok := strings.Cut(token, ".")
		if !ok {
			t.Fatalf("GenerateToken() token has wrong format, got %s", token)
		}
		if _, err := base64.URLEncoding.DecodeString(body); err != nil {
			t.Errorf("GenerateToken() token part not base64: %v", err)
		}
		if _, err := base64.URLEncoding.DecodeString(sig); err != nil {
			t.Errorf("GenerateToken() signature part not base64: %v", err)
		}
	})

	t.Run("store_error", func(t *testing.T) {
		store.err = errors.New("store error")
		_, err := manager.GenerateToken(ctx)
		if err == nil {
			t.Error("GenerateToken() expected error with bad store")
		}
		store.err = nil
	})

	t.Run("token_uniqueness", func(t *testing.T) {
		token1, _ := manager.GenerateToken(ctx)
		token2, _ := manager.GenerateToken(ctx)
		if token1 == token2 {
			t.Error("GenerateToken() tokens should be unique")
		}
	})
}

func TestManager_ValidateToken(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	secret := []byte("test-secret-key-32-bytes-exactly!")
	manager := NewManager(store, secret, 15*time.Minute)

	t.Run("valid_token", func(t *testing.T) {
		token, _ := manager.GenerateToken(ctx)
		if err := manager.ValidateToken(ctx, token); err != nil {
			t.Errorf("ValidateToken() error = %v", err)
		}
	})

	t.Run("empty_token", func(t *testing.T) {
		if err := manager.ValidateToken(ctx, ""); err != ErrInvalidToken {
			t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
		}
	})

	t.Run("invalid_format", func(t *testing.T) {
		if err := manager.ValidateToken(ctx, "invalid"); err != ErrInvalidToken {
			t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
		}
	})

	t.Run("invalid_signature", func(t *testing.T) {
		token, _ := manager.GenerateToken(ctx)
		body, _, _ := strings.Cut(token, ".")
		if err := manager.ValidateToken(ctx, body+".YWJj"); err != ErrInvalidToken {
			t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
		}
	})

	t.Run("foreign_signature", func(t *testing.T) {
		other := NewManager(store, []byte("some other secret"), 15*time.Minute)
		token, _ := other.GenerateToken(ctx)
		if err := manager.ValidateToken(ctx, token); err != ErrInvalidToken {
			t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
		}
	})

	t.Run("expired_token", func(t *testing.T) {
		shortManager := NewManager(store, secret, -time.Second)
		token, _ := shortManager.GenerateToken(ctx)
		time.Sleep(time.Millisecond)
		if err := shortManager.ValidateToken(ctx, token); !errors.Is(err, ErrTokenExpired) {
			t.Errorf("ValidateToken() error = %v, want %v", err, ErrTokenExpired)
		}
	})

	t.Run("store_error", func(t *testing.T) {
		token, _ := manager.GenerateToken(ctx)
		store.err = errors.New("store error")
		if err := manager.ValidateToken(ctx, token); err == nil {
			t.Error("ValidateToken() expected error with bad store")
		}
		store.err = nil
	})
}

func TestManager_CheckHealth(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	manager := NewManager(store, []byte("test-secret"), time.Minute)

	t.Run("healthy", func(t *testing.T) {
		if err := manager.CheckHealth(ctx); err != nil {
			t.Errorf("CheckHealth() error = %v", err)
		}
	})

	t.Run("unhealthy", func(t *testing.T) {
		store.err = errors.New("store error")
		if err := manager.CheckHealth(ctx); err == nil {
			t.Error("CheckHealth() expected error with bad store")
		}
		store.err = nil
	})
}
