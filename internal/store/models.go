package store

import "time"

// Account is one linked end-user identity.
//
// Label doubles as the OAuth client-binding token: the authorization flow
// stamps the platform client_id onto it so the token endpoint can find the
// account again without a session.
type Account struct {
	ID           uint   `gorm:"primaryKey"`
	Label        string `gorm:"index"`
	Email        string `gorm:"uniqueIndex"`
	PasswordHash string
	DeviceLimit  int `gorm:"default:5"`
	Devices      []Device
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credential holds the authorization state for one account. The unique index
// on AccountID enforces the at-most-one-credential invariant at the schema
// level; ReplaceCredential enforces it transactionally.
type Credential struct {
	ID               uint `gorm:"primaryKey"`
	AccountID        uint `gorm:"uniqueIndex"`
	AuthCode         string
	AuthCodeIssuedAt time.Time
	RedirectURI      string
	RefreshToken     string `gorm:"index"`
	AccessToken      string `gorm:"index"`
	TokenIssuedAt    time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Two-factor policy values for Device.TwoFactorType.
const (
	TwoFactorNone = ""
	TwoFactorAck  = "ack"
	TwoFactorPIN  = "pin"
)

// Device is a controllable unit owned by an account.
type Device struct {
	ID            uint `gorm:"primaryKey"`
	AccountID     uint `gorm:"index"`
	Name          string
	Type          string // protocol device type, e.g. action.devices.types.LIGHT
	Traits        []DeviceTrait
	TwoFactorType string
	TwoFactorPIN  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeviceTrait assigns one capability to a device. Config is a free-form JSON
// blob decoded by the trait package; a device may carry the same kind more
// than once (thermostat setups do), discovery deduplicates.
type DeviceTrait struct {
	ID       uint `gorm:"primaryKey"`
	DeviceID uint `gorm:"index"`
	Kind     string
	Config   string
}
