// Package statecache provides access to the shared per-device state store.
//
// State lives in an external key-value store as one hash per device, keyed
// <namespace>:u<account>:d<device>. Device 0 holds per-account request
// bookkeeping. Values are last-write-wins strings with no TTL; the query
// path reads and never writes, the execute path writes on success.
package statecache

import (
	"context"
	"fmt"
)

// Bookkeeping fields stored on the device-0 hash.
const (
	FieldRequestID   = "grequestid"
	FieldRequestType = "grequesttype"

	// FieldPower marks a device explicitly powered off when set to "0".
	FieldPower = "power"
)

// Cache is the narrow contract any concrete state store must satisfy.
type Cache interface {
	// GetField reads one field of a device hash. The bool reports whether
	// the field was ever written; a miss is not an error.
	GetField(ctx context.Context, key, field string) (string, bool, error)

	// SetField overwrites one field of a device hash.
	SetField(ctx context.Context, key, field, value string) error

	// CheckHealth verifies the backing store is reachable.
	CheckHealth(ctx context.Context) error
}

// Key builds the hash key for one device of one account.
func Key(namespace string, accountID, deviceID uint) string {
	return fmt.Sprintf("%s:u%d:d%d", namespace, accountID, deviceID)
}

// AccountKey builds the bookkeeping key (device 0) for an account.
func AccountKey(namespace string, accountID uint) string {
	return Key(namespace, accountID, 0)
}
