// Package store persists accounts, devices and OAuth credentials.
package store

import (
	"context"
	"errors"
)

// Common errors returned by Store implementations.
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")
)

// Store is the persistence boundary for the bridge. Every lookup that can
// miss returns ErrNotFound rather than a nil record.
type Store interface {
	// AccountByLabel finds the account whose label matches the OAuth
	// client-binding token.
	AccountByLabel(ctx context.Context, label string) (*Account, error)

	// AccountByEmail finds an account for interactive login.
	AccountByEmail(ctx context.Context, email string) (*Account, error)

	// CreateAccount persists a new account.
	CreateAccount(ctx context.Context, account *Account) error

	// SaveAccount persists changes to an existing account.
	SaveAccount(ctx context.Context, account *Account) error

	// CredentialByAccount returns the account's single credential.
	CredentialByAccount(ctx context.Context, accountID uint) (*Credential, error)

	// CredentialByAccessToken resolves a bearer token to its credential.
	CredentialByAccessToken(ctx context.Context, token string) (*Credential, error)

	// ReplaceCredential deletes any prior credential for the account and
	// inserts the new one inside a single transaction. Concurrent exchange
	// attempts for the same account must never interleave with it.
	ReplaceCredential(ctx context.Context, cred *Credential) error

	// SaveCredential persists token rotation on an existing credential.
	SaveCredential(ctx context.Context, cred *Credential) error

	// DeleteCredential removes the account's credential, invalidating all
	// tokens issued from it. Deleting an absent credential is not an error.
	DeleteCredential(ctx context.Context, accountID uint) error

	// AccountByID loads an account by primary key.
	AccountByID(ctx context.Context, id uint) (*Account, error)

	// DevicesByAccount lists the account's devices with traits preloaded.
	DevicesByAccount(ctx context.Context, accountID uint) ([]Device, error)

	// DeviceByID loads one device with traits preloaded.
	DeviceByID(ctx context.Context, id uint) (*Device, error)

	// DeviceCount returns the number of devices the account owns.
	DeviceCount(ctx context.Context, accountID uint) (int, error)

	// CreateDevice persists a new device and its traits.
	CreateDevice(ctx context.Context, device *Device) error

	// DeleteDevice removes a device and its traits.
	DeleteDevice(ctx context.Context, id uint) error

	// CheckHealth verifies the backing database is reachable.
	CheckHealth(ctx context.Context) error
}
