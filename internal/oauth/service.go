// Package oauth implements the credential lifecycle: authorization-code
// issuance, code/token exchange, refresh rotation and bearer authentication.
//
// Each account owns at most one credential. Re-authorizing replaces it,
// which invalidates every code and token issued before; re-linking is a
// rare, user-initiated action, so the trivial single-record state machine
// wins over token families.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/homevirt/assistant-bridge/internal/store"
)

const (
	// CodeExpiry is how long an authorization code stays exchangeable.
	CodeExpiry = 10 * time.Minute

	// TokenExpirySeconds is the expires_in value reported for access tokens.
	TokenExpirySeconds = 3600
)

// TokenResponse is the JSON body returned by the token endpoint.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

// Service issues and validates credentials against the persistent store.
type Service struct {
	store       store.Store
	clientID    string
	redirectURI string
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, used by expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a credential service bound to the platform's client id
// and callback URL.
func NewService(st store.Store, clientID, redirectURI string, opts ...Option) *Service {
	s := &Service{
		store:       st,
		clientID:    clientID,
		redirectURI: redirectURI,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginAuthorization validates the platform's authorization request and
// mints a fresh single-use code for the account, replacing any prior
// credential. It returns the redirect URL carrying code and state.
func (s *Service) BeginAuthorization(ctx context.Context, account *store.Account, clientID, responseType, redirectURI, state string) (string, error) {
	if clientID != s.clientID {
		return "", ErrInvalidClient
	}
	if responseType != "code" {
		return "", ErrInvalidResponseType
	}
	if redirectURI != s.redirectURI {
		return "", ErrInvalidRedirect
	}
	if state == "" {
		return "", ErrMissingState
	}

	// Stamp the client id onto the account label so the token endpoint can
	// resolve the account without a session.
	account.Label = clientID
	if err := s.store.SaveAccount(ctx, account); err != nil {
		return "", fmt.Errorf("binding client to account: %w", err)
	}

	code, err := generateToken()
	if err != nil {
		return "", err
	}

	cred := &store.Credential{
		AccountID:        account.ID,
		AuthCode:         code,
		AuthCodeIssuedAt: s.now(),
		RedirectURI:      redirectURI,
	}
	if err := s.store.ReplaceCredential(ctx, cred); err != nil {
		return "", fmt.Errorf("storing authorization code: %w", err)
	}

	return redirectURI + "?code=" + url.QueryEscape(code) + "&state=" + url.QueryEscape(state), nil
}

// ExchangeAuthorizationCode trades a valid, unexpired code for a fresh
// access/refresh token pair. Every failure collapses to ErrInvalidGrant.
func (s *Service) ExchangeAuthorizationCode(ctx context.Context, clientID, code, redirectURI string) (*TokenResponse, error) {
	cred, err := s.credentialByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if cred.AuthCode == "" || code != cred.AuthCode {
		return nil, ErrInvalidGrant
	}
	if s.now().Sub(cred.AuthCodeIssuedAt) > CodeExpiry {
		return nil, ErrInvalidGrant
	}
	if redirectURI != cred.RedirectURI {
		return nil, ErrInvalidGrant
	}

	accessToken, err := generateToken()
	if err != nil {
		return nil, err
	}
	refreshToken, err := generateToken()
	if err != nil {
		return nil, err
	}

	// Consume the code: a second exchange with the same code must fail.
	cred.AuthCode = ""
	cred.AccessToken = accessToken
	cred.RefreshToken = refreshToken
	cred.TokenIssuedAt = s.now()
	if err := s.store.SaveCredential(ctx, cred); err != nil {
		return nil, fmt.Errorf("storing tokens: %w", err)
	}

	return &TokenResponse{
		TokenType:    "Bearer",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    TokenExpirySeconds,
	}, nil
}

// ExchangeRefreshToken rotates the access token. The refresh token itself
// never rotates here.
func (s *Service) ExchangeRefreshToken(ctx context.Context, clientID, refreshToken string) (*TokenResponse, error) {
	cred, err := s.credentialByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if cred.RefreshToken == "" || refreshToken != cred.RefreshToken {
		return nil, ErrInvalidGrant
	}

	accessToken, err := generateToken()
	if err != nil {
		return nil, err
	}

	cred.AccessToken = accessToken
	cred.TokenIssuedAt = s.now()
	if err := s.store.SaveCredential(ctx, cred); err != nil {
		return nil, fmt.Errorf("storing rotated token: %w", err)
	}

	return &TokenResponse{
		TokenType:   "Bearer",
		AccessToken: accessToken,
		ExpiresIn:   TokenExpirySeconds,
	}, nil
}

// Authenticate resolves a bearer token to its owning account.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*store.Account, error) {
	if bearer == "" {
		return nil, ErrAuthFailure
	}

	cred, err := s.store.CredentialByAccessToken(ctx, bearer)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAuthFailure
		}
		return nil, fmt.Errorf("resolving bearer token: %w", err)
	}

	account, err := s.store.AccountByID(ctx, cred.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAuthFailure
		}
		return nil, fmt.Errorf("resolving account: %w", err)
	}
	return account, nil
}

// Disconnect destroys the account's credential; all tokens become invalid.
func (s *Service) Disconnect(ctx context.Context, accountID uint) error {
	return s.store.DeleteCredential(ctx, accountID)
}

func (s *Service) credentialByClient(ctx context.Context, clientID string) (*store.Credential, error) {
	account, err := s.store.AccountByLabel(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("resolving client account: %w", err)
	}

	cred, err := s.store.CredentialByAccount(ctx, account.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("resolving credential: %w", err)
	}
	return cred, nil
}
