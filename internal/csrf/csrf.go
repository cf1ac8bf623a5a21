// Package csrf protects the interactive authorization form against
// cross-site request forgery.
package csrf

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidToken indicates a missing, malformed or unknown token.
	ErrInvalidToken = errors.New("invalid csrf token")

	// ErrTokenExpired indicates the token outlived its TTL.
	ErrTokenExpired = errors.New("csrf token expired")
)

// Store persists issued tokens until they expire.
type Store interface {
	// SaveToken stores a token with the given TTL.
	SaveToken(ctx context.Context, token string, expiresIn time.Duration) error

	// ValidateToken checks that a token exists and has not expired.
	ValidateToken(ctx context.Context, token string) error

	// CheckHealth verifies the store is operational.
	CheckHealth(ctx context.Context) error
}

// Manager issues and validates HMAC-signed single-session tokens. A token
// is random data plus a signature, so a forged value fails before the
// store is ever consulted.
type Manager struct {
	store     Store
	secret    []byte
	expiresIn time.Duration
}

// NewManager creates a token manager signing with secret.
func NewManager(store Store, secret []byte, expiresIn time.Duration) *Manager {
	return &Manager{
		store:     store,
		secret:    secret,
		expiresIn: expiresIn,
	}
}

// GenerateToken creates, signs and stores a new token.
func (m *Manager) GenerateToken(ctx context.Context) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}

	token := base64.URLEncoding.EncodeToString(raw)
	full := token + "." + base64.URLEncoding.EncodeToString(m.sign(token))

	if err := m.store.SaveToken(ctx, full, m.expiresIn); err != nil {
		return "", fmt.Errorf("saving token: %w", err)
	}
	return full, nil
}

// ValidateToken verifies the signature, then the store record.
func (m *Manager) ValidateToken(ctx context.Context, token string) error {
	body, sig, ok := strings.Cut(token, ".")
	if token == "" || !ok {
		return ErrInvalidToken
	}

	got, err := base64.URLEncoding.DecodeString(sig)
	if err != nil {
		return ErrInvalidToken
	}
	if !hmac.Equal(m.sign(body), got) {
		return ErrInvalidToken
	}

	if err := m.store.ValidateToken(ctx, token); err != nil {
		return fmt.Errorf("validating token: %w", err)
	}
	return nil
}

// CheckHealth verifies the backing store is reachable.
func (m *Manager) CheckHealth(ctx context.Context) error {
	if err := m.store.CheckHealth(ctx); err != nil {
		return fmt.Errorf("csrf store health check failed: %w", err)
	}
	return nil
}

func (m *Manager) sign(body string) []byte {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(body))
	return h.Sum(nil)
}
