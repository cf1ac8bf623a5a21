// Package trait catalogues device capabilities: the mapping from internal
// trait kinds to protocol trait names and state-cache fields, plus the
// per-trait configuration blob format.
package trait

// Kind identifies a capability as stored on a device record.
type Kind string

// Known trait kinds.
const (
	OnOff            Kind = "OnOff"
	Brightness       Kind = "Brightness"
	Scene            Kind = "Scene"
	TempSetMode      Kind = "TempSet.Mode"
	TempSetSetpoint  Kind = "TempSet.Setpoint"
	TempSetAmbient   Kind = "TempSet.Ambient"
	TempSetHumidity  Kind = "TempSet.Humidity"
	FanSpeed         Kind = "FanSpeed"
	StartStop        Kind = "StartStop"
	OpenClose        Kind = "OpenClose"
	ColorSettingRGB  Kind = "ColorSettingRGB"
	ColorSettingJSON Kind = "ColorSettingJSON"
	ColorSettingTemp Kind = "ColorSettingTemp"
	CameraStream     Kind = "CameraStream"
)

// Descriptor holds the static protocol mapping for one trait kind.
type Descriptor struct {
	Kind Kind

	// ProtocolName is the declarative trait name sent during discovery.
	// Several kinds share one protocol name (the thermostat sub-traits, the
	// color-setting variants); discovery deduplicates on first occurrence.
	ProtocolName string

	// CacheField is the state-cache hash field and command channel suffix
	// for this kind. All color-setting variants collapse onto "colorsetting";
	// downstream firmware depends on the exact field names, so they are
	// kept verbatim.
	CacheField string
}

var registry = map[Kind]Descriptor{
	OnOff:            {OnOff, "action.devices.traits.OnOff", "onoff"},
	Brightness:       {Brightness, "action.devices.traits.Brightness", "brightness"},
	Scene:            {Scene, "action.devices.traits.Scene", "scene"},
	TempSetMode:      {TempSetMode, "action.devices.traits.TemperatureSetting", "tempset.mode"},
	TempSetSetpoint:  {TempSetSetpoint, "action.devices.traits.TemperatureSetting", "tempset.setpoint"},
	TempSetAmbient:   {TempSetAmbient, "action.devices.traits.TemperatureSetting", "tempset.ambient"},
	TempSetHumidity:  {TempSetHumidity, "action.devices.traits.TemperatureSetting", "tempset.humidity"},
	FanSpeed:         {FanSpeed, "action.devices.traits.FanSpeed", "fanspeed"},
	StartStop:        {StartStop, "action.devices.traits.StartStop", "startstop"},
	OpenClose:        {OpenClose, "action.devices.traits.OpenClose", "openclose"},
	ColorSettingRGB:  {ColorSettingRGB, "action.devices.traits.ColorSetting", "colorsetting"},
	ColorSettingJSON: {ColorSettingJSON, "action.devices.traits.ColorSetting", "colorsetting"},
	ColorSettingTemp: {ColorSettingTemp, "action.devices.traits.ColorSetting", "colorsetting"},
	CameraStream:     {CameraStream, "action.devices.traits.CameraStream", "camerastream"},
}

// Lookup returns the descriptor for a kind. The second return is false for
// kinds this build does not know; callers treat those as configuration drift.
func Lookup(kind Kind) (Descriptor, bool) {
	d, ok := registry[kind]
	return d, ok
}

// LocaleTags is the fixed list of locale tags fan-speed synonyms are
// replicated across during discovery. Names are not localized per tag.
var LocaleTags = []string{"da", "nl", "en", "fr", "de", "hi", "it", "ja", "ko", "no", "es", "sv"}
