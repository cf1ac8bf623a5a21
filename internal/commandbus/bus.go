// Package commandbus publishes device-bound commands to the downstream
// execution layer.
//
// Command channels follow <namespace>:u<account>:d<device>:<trait_field>;
// the bare intent name goes to <namespace>:u<account>:d0:grequest for
// liveness observation. Delivery is fire-and-forget: the bridge never
// retries, the assistant platform owns retry policy.
package commandbus

import (
	"context"
	"fmt"
)

// Bus is the publish contract. Any broker satisfying it is substitutable.
type Bus interface {
	// Publish sends value on the given channel.
	Publish(ctx context.Context, channel, value string) error

	// CheckHealth verifies the broker is reachable.
	CheckHealth(ctx context.Context) error
}

// CommandChannel builds the channel for one device trait.
func CommandChannel(namespace string, accountID, deviceID uint, traitField string) string {
	return fmt.Sprintf("%s:u%d:d%d:%s", namespace, accountID, deviceID, traitField)
}

// IntentChannel builds the per-account observability channel.
func IntentChannel(namespace string, accountID uint) string {
	return fmt.Sprintf("%s:u%d:d0:grequest", namespace, accountID)
}
