package intent

import "github.com/homevirt/assistant-bridge/internal/store"

// ChallengeOutcome classifies a command against a device's two-factor policy.
type ChallengeOutcome int

const (
	// ChallengeSatisfied allows the command through.
	ChallengeSatisfied ChallengeOutcome = iota

	// ChallengeAckNeeded means the user must confirm the action.
	ChallengeAckNeeded

	// ChallengePinNeeded means a PIN is required and none was supplied.
	ChallengePinNeeded

	// ChallengeWrongPin means a PIN was supplied but does not match.
	ChallengeWrongPin
)

// EvaluateChallenge decides whether the device's two-factor policy is
// satisfied by the supplied challenge response. Commands that are not
// satisfied must not reach the command bus.
func EvaluateChallenge(device *store.Device, ch *Challenge) ChallengeOutcome {
	switch device.TwoFactorType {
	case store.TwoFactorAck:
		if ch == nil || !ch.Ack {
			return ChallengeAckNeeded
		}
	case store.TwoFactorPIN:
		if ch == nil || ch.PIN == "" {
			return ChallengePinNeeded
		}
		if ch.PIN != device.TwoFactorPIN {
			return ChallengeWrongPin
		}
	}
	return ChallengeSatisfied
}
