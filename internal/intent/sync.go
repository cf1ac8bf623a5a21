package intent

import (
	"context"
	"strconv"
	"strings"

	"github.com/homevirt/assistant-bridge/internal/store"
	"github.com/homevirt/assistant-bridge/internal/trait"
)

// handleSync builds the discovery payload: one capability descriptor per
// device the account owns.
func (d *Dispatcher) handleSync(ctx context.Context, account *store.Account, requestID string) *Response {
	devices, err := d.store.DevicesByAccount(ctx, account.ID)
	if err != nil {
		d.log.Error("listing devices for discovery", "account", account.ID, "error", err)
		return errorResponse(requestID, ErrorCodeUnknownError)
	}

	payload := syncPayload{
		AgentUserID: strconv.FormatUint(uint64(account.ID), 10),
		Devices:     make([]syncDevice, 0, len(devices)),
	}

	for _, device := range devices {
		payload.Devices = append(payload.Devices, d.describeDevice(account, &device))
	}

	return &Response{RequestID: requestID, Payload: payload}
}

// describeDevice assembles one discovery descriptor. The trait list keeps
// first-occurrence order and drops duplicates: thermostat configurations
// assign several sub-traits sharing one protocol trait name.
func (d *Dispatcher) describeDevice(account *store.Account, device *store.Device) syncDevice {
	var traitNames []string
	seen := make(map[string]bool)
	for _, tr := range device.Traits {
		desc, ok := trait.Lookup(trait.Kind(tr.Kind))
		if !ok {
			d.log.Warn("unknown trait kind in discovery", "account", account.ID, "device", device.ID, "kind", tr.Kind)
			continue
		}
		if seen[desc.ProtocolName] {
			continue
		}
		seen[desc.ProtocolName] = true
		traitNames = append(traitNames, desc.ProtocolName)
	}
	if traitNames == nil {
		traitNames = []string{}
	}

	out := syncDevice{
		ID:     strconv.FormatUint(uint64(device.ID), 10),
		Type:   device.Type,
		Traits: traitNames,
		Name: deviceName{
			DefaultNames: []string{d.cfg.DefaultDeviceName},
			Name:         device.Name,
		},
		WillReportState: d.cfg.Hosted,
		DeviceInfo:      deviceInfo{Manufacturer: d.cfg.Manufacturer},
	}

	attrs := make(map[string]any)

	if hasKind(device, trait.Scene) {
		// Scenes are write-only and never report state.
		out.WillReportState = false
		attrs["sceneReversible"] = false
	}

	if cfg := kindConfig(d, account, device, trait.TempSetMode); cfg != nil {
		modes := cfg.ModesSupported
		if len(modes) == 0 {
			modes = []string{"on", "off"}
		}
		attrs["thermostatTemperatureUnit"] = "C"
		attrs["availableThermostatModes"] = strings.Join(modes, ",")
	}

	if cfg := kindConfig(d, account, device, trait.FanSpeed); cfg != nil {
		speeds := make([]map[string]any, 0, len(cfg.FanSpeeds))
		for _, tier := range cfg.FanSpeeds {
			values := make([]map[string]any, 0, len(trait.LocaleTags))
			for _, lang := range trait.LocaleTags {
				values = append(values, map[string]any{
					"lang":          lang,
					"speed_synonym": tier.Names,
				})
			}
			speeds = append(speeds, map[string]any{
				"speed_name":   tier.Name,
				"speed_values": values,
			})
		}
		attrs["reversible"] = false
		attrs["availableFanSpeeds"] = map[string]any{
			"ordered": true,
			"speeds":  speeds,
		}
	}

	if hasKind(device, trait.StartStop) {
		// Pausing and zones are unsupported.
		attrs["pausable"] = false
	}

	if cfg := kindConfig(d, account, device, trait.CameraStream); cfg != nil {
		out.WillReportState = false
		attrs["cameraStreamSupportedProtocols"] = []string{cfg.CameraStreamFormat}
		attrs["cameraStreamNeedAuthToken"] = false
		attrs["cameraStreamNeedDrmEncryption"] = false
	}

	if hasKind(device, trait.ColorSettingRGB) || hasKind(device, trait.ColorSettingJSON) {
		attrs["colorModel"] = "rgb"
		attrs["commandOnlyColorSetting"] = false
	}
	if hasKind(device, trait.ColorSettingTemp) {
		attrs["colorModel"] = "rgb"
		attrs["commandOnlyColorSetting"] = false
		attrs["colorTemperatureRange"] = map[string]any{
			"temperatureMinK": 1000,
			"temperatureMaxK": 12000,
		}
	}

	// No attributes means no attributes field, not an empty object.
	if len(attrs) > 0 {
		out.Attributes = attrs
	}

	return out
}

func hasKind(device *store.Device, kind trait.Kind) bool {
	for _, tr := range device.Traits {
		if trait.Kind(tr.Kind) == kind {
			return true
		}
	}
	return false
}

// kindConfig returns the decoded config of the first trait of the given
// kind, or nil when the device does not carry it. Malformed blobs degrade to
// the zero config with a warning; discovery must not fail on drifted data.
func kindConfig(d *Dispatcher, account *store.Account, device *store.Device, kind trait.Kind) *trait.Config {
	for _, tr := range device.Traits {
		if trait.Kind(tr.Kind) != kind {
			continue
		}
		cfg, err := trait.ParseConfig(tr.Config)
		if err != nil {
			d.log.Warn("malformed trait config", "account", account.ID, "device", device.ID, "kind", tr.Kind, "error", err)
			return &trait.Config{}
		}
		return cfg
	}
	return nil
}
