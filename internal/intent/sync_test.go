package intent

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/homevirt/assistant-bridge/internal/store"
)

func syncDevices(t *testing.T, resp *Response) []syncDevice {
	t.Helper()
	payload, ok := resp.Payload.(syncPayload)
	if !ok {
		t.Fatalf("payload is %T, want syncPayload", resp.Payload)
	}
	return payload.Devices
}

const syncBody = `{"requestId":"r1","inputs":[{"intent":"action.devices.SYNC"}]}`

func TestSyncBasicDescriptor(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 4, "action.devices.types.LIGHT",
		store.DeviceTrait{Kind: "OnOff"},
		store.DeviceTrait{Kind: "Brightness"},
	)

	devices := syncDevices(t, rig.handle(t, "token-1", syncBody))
	if len(devices) != 1 {
		t.Fatalf("got %d devices, want 1", len(devices))
	}

	got := devices[0]
	if got.ID != "4" {
		t.Errorf("id = %q, want 4", got.ID)
	}
	if got.Type != "action.devices.types.LIGHT" {
		t.Errorf("type = %q", got.Type)
	}
	wantTraits := []string{"action.devices.traits.OnOff", "action.devices.traits.Brightness"}
	if diff := cmp.Diff(wantTraits, got.Traits); diff != "" {
		t.Errorf("traits mismatch (-want +got):\n%s", diff)
	}
	if got.WillReportState {
		t.Error("willReportState should default to false")
	}
	if got.Attributes != nil {
		t.Errorf("attributes should be omitted, got %v", got.Attributes)
	}
	if got.Name.Name != "device-4" {
		t.Errorf("name = %q", got.Name.Name)
	}
}

func TestSyncTraitDeduplication(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)
	// Thermostat sub-traits all share one protocol trait name; OnOff listed
	// after them must keep its position relative to first occurrences.
	rig.seedDevice(1, 2, "action.devices.types.THERMOSTAT",
		store.DeviceTrait{Kind: "TempSet.Mode", Config: `{"modesSupported":["heat","cool"]}`},
		store.DeviceTrait{Kind: "TempSet.Setpoint"},
		store.DeviceTrait{Kind: "TempSet.Ambient"},
		store.DeviceTrait{Kind: "OnOff"},
	)

	devices := syncDevices(t, rig.handle(t, "token-1", syncBody))
	want := []string{"action.devices.traits.TemperatureSetting", "action.devices.traits.OnOff"}
	if diff := cmp.Diff(want, devices[0].Traits); diff != "" {
		t.Errorf("traits mismatch (-want +got):\n%s", diff)
	}

	attrs := devices[0].Attributes
	if attrs["thermostatTemperatureUnit"] != "C" {
		t.Errorf("temperature unit = %v, want C", attrs["thermostatTemperatureUnit"])
	}
	if attrs["availableThermostatModes"] != "heat,cool" {
		t.Errorf("modes = %v, want heat,cool", attrs["availableThermostatModes"])
	}
}

func TestSyncThermostatModeDefaults(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.THERMOSTAT",
		store.DeviceTrait{Kind: "TempSet.Mode"},
	)

	devices := syncDevices(t, rig.handle(t, "token-1", syncBody))
	if got := devices[0].Attributes["availableThermostatModes"]; got != "on,off" {
		t.Errorf("modes = %v, want on,off", got)
	}
}

func TestSyncSceneForcesNoReportState(t *testing.T) {
	rig := newTestRig(Config{Hosted: true})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.SCENE", store.DeviceTrait{Kind: "Scene"})
	rig.seedDevice(1, 3, "action.devices.types.LIGHT", store.DeviceTrait{Kind: "OnOff"})

	devices := syncDevices(t, rig.handle(t, "token-1", syncBody))

	scene := devices[0]
	if scene.WillReportState {
		t.Error("scene device must not report state")
	}
	if scene.Attributes["sceneReversible"] != false {
		t.Errorf("sceneReversible = %v, want false", scene.Attributes["sceneReversible"])
	}

	// Hosted installations report state for ordinary devices.
	if !devices[1].WillReportState {
		t.Error("hosted light should report state")
	}
}

func TestSyncFanSpeedAttributes(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.FAN",
		store.DeviceTrait{Kind: "FanSpeed", Config: `{"availableFanSpeeds":{"S1":{"names":["Slow"]},"S2":{"names":["Fast"]}}}`},
	)

	devices := syncDevices(t, rig.handle(t, "token-1", syncBody))
	attrs := devices[0].Attributes

	if attrs["reversible"] != false {
		t.Errorf("reversible = %v, want false", attrs["reversible"])
	}

	fanSpeeds, ok := attrs["availableFanSpeeds"].(map[string]any)
	if !ok {
		t.Fatalf("availableFanSpeeds is %T", attrs["availableFanSpeeds"])
	}
	if fanSpeeds["ordered"] != true {
		t.Error("speeds must be marked ordered")
	}

	speeds, ok := fanSpeeds["speeds"].([]map[string]any)
	if !ok {
		t.Fatalf("speeds is %T", fanSpeeds["speeds"])
	}
	if len(speeds) != 2 {
		t.Fatalf("got %d speeds, want 2", len(speeds))
	}
	if speeds[0]["speed_name"] != "S1" {
		t.Errorf("first speed = %v, want S1", speeds[0]["speed_name"])
	}

	values, ok := speeds[0]["speed_values"].([]map[string]any)
	if !ok {
		t.Fatalf("speed_values is %T", speeds[0]["speed_values"])
	}
	if len(values) != 12 {
		t.Errorf("got %d locale entries, want 12", len(values))
	}
}

func TestSyncCameraStreamAttributes(t *testing.T) {
	rig := newTestRig(Config{Hosted: true})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.CAMERA",
		store.DeviceTrait{Kind: "CameraStream", Config: `{"cameraStreamFormat":"hls"}`},
	)

	devices := syncDevices(t, rig.handle(t, "token-1", syncBody))
	got := devices[0]

	if got.WillReportState {
		t.Error("camera device must not report state")
	}
	protocols, ok := got.Attributes["cameraStreamSupportedProtocols"].([]string)
	if !ok || len(protocols) != 1 || protocols[0] != "hls" {
		t.Errorf("protocols = %v, want [hls]", got.Attributes["cameraStreamSupportedProtocols"])
	}
	if got.Attributes["cameraStreamNeedAuthToken"] != false {
		t.Error("auth token must not be required")
	}
	if got.Attributes["cameraStreamNeedDrmEncryption"] != false {
		t.Error("drm must not be required")
	}
}

func TestSyncColorSettingAttributes(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.LIGHT",
		store.DeviceTrait{Kind: "ColorSettingTemp"},
	)

	devices := syncDevices(t, rig.handle(t, "token-1", syncBody))
	attrs := devices[0].Attributes

	if attrs["colorModel"] != "rgb" {
		t.Errorf("colorModel = %v, want rgb", attrs["colorModel"])
	}
	if attrs["commandOnlyColorSetting"] != false {
		t.Error("commandOnlyColorSetting must be false")
	}

	tempRange, ok := attrs["colorTemperatureRange"].(map[string]any)
	if !ok {
		t.Fatalf("colorTemperatureRange is %T", attrs["colorTemperatureRange"])
	}
	if tempRange["temperatureMinK"] != 1000 || tempRange["temperatureMaxK"] != 12000 {
		t.Errorf("range = %v, want 1000..12000", tempRange)
	}
}

func TestSyncDeviceWithoutTraits(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.LIGHT")

	devices := syncDevices(t, rig.handle(t, "token-1", syncBody))
	if devices[0].Traits == nil || len(devices[0].Traits) != 0 {
		t.Errorf("traits = %v, want empty list", devices[0].Traits)
	}
}

func TestSyncAgentUserID(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(9, 5)

	resp := rig.handle(t, "token-9", syncBody)
	payload := resp.Payload.(syncPayload)
	if payload.AgentUserID != "9" {
		t.Errorf("agentUserId = %q, want 9", payload.AgentUserID)
	}
}
