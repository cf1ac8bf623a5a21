package intent

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/homevirt/assistant-bridge/internal/store"
)

func queryBody(ids ...string) string {
	body := `{"requestId":"r1","inputs":[{"intent":"action.devices.QUERY","payload":{"devices":[`
	for i, id := range ids {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"id":%q}`, id)
	}
	return body + `]}}]}`
}

func queryStates(t *testing.T, resp *Response, id string) map[string]any {
	t.Helper()
	payload, ok := resp.Payload.(queryResponsePayload)
	if !ok {
		t.Fatalf("payload is %T, want queryResponsePayload", resp.Payload)
	}
	states, ok := payload.Devices[id]
	if !ok {
		t.Fatalf("no states for device %s in %v", id, payload.Devices)
	}
	return states
}

func TestQueryMissingPayload(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)

	resp := rig.handle(t, "token-1", `{"requestId":"r1","inputs":[{"intent":"action.devices.QUERY","payload":{}}]}`)
	if code := errorCode(t, resp); code != ErrorCodeProtocolError {
		t.Errorf("error code = %q, want %q", code, ErrorCodeProtocolError)
	}
}

func TestQueryDefaultsOnMiss(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.LIGHT",
		store.DeviceTrait{Kind: "OnOff"},
		store.DeviceTrait{Kind: "Brightness"},
		store.DeviceTrait{Kind: "ColorSettingRGB"},
	)

	states := queryStates(t, rig.handle(t, "token-1", queryBody("2")), "2")

	want := map[string]any{
		"online":     true,
		"on":         false,
		"brightness": 0,
		"color":      map[string]any{"spectrumRgb": 0},
	}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryThermostatDefaults(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.THERMOSTAT",
		store.DeviceTrait{Kind: "TempSet.Mode"},
		store.DeviceTrait{Kind: "TempSet.Setpoint"},
		store.DeviceTrait{Kind: "TempSet.Ambient"},
	)

	states := queryStates(t, rig.handle(t, "token-1", queryBody("2")), "2")

	if states["thermostatMode"] != "off" {
		t.Errorf("thermostatMode = %v, want off", states["thermostatMode"])
	}
	if states["thermostatTemperatureSetpoint"] != 0.0 {
		t.Errorf("setpoint = %v, want 0", states["thermostatTemperatureSetpoint"])
	}
	if states["thermostatTemperatureAmbient"] != 0.0 {
		t.Errorf("ambient = %v, want 0", states["thermostatTemperatureAmbient"])
	}
}

func TestQueryHumidityGatedByConfig(t *testing.T) {
	rig := newTestRig(Config{Namespace: "bridge"})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.THERMOSTAT",
		store.DeviceTrait{Kind: "TempSet.Humidity", Config: `{"humiditySupported":true}`},
	)
	rig.seedDevice(1, 3, "action.devices.types.THERMOSTAT",
		store.DeviceTrait{Kind: "TempSet.Humidity"},
	)

	resp := rig.handle(t, "token-1", queryBody("2", "3"))

	withHumidity := queryStates(t, resp, "2")
	if withHumidity["thermostatHumidityAmbient"] != 20.1 {
		t.Errorf("humidity = %v, want default 20.1", withHumidity["thermostatHumidityAmbient"])
	}

	withoutHumidity := queryStates(t, resp, "3")
	if _, ok := withoutHumidity["thermostatHumidityAmbient"]; ok {
		t.Error("humidity must be omitted when unsupported")
	}
}

func TestQueryCachedValues(t *testing.T) {
	rig := newTestRig(Config{Namespace: "bridge"})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.LIGHT",
		store.DeviceTrait{Kind: "OnOff"},
		store.DeviceTrait{Kind: "Brightness"},
		store.DeviceTrait{Kind: "ColorSettingTemp"},
	)
	rig.cache.set("bridge:u1:d2", "onoff", "1")
	rig.cache.set("bridge:u1:d2", "brightness", "70")
	rig.cache.set("bridge:u1:d2", "colorsetting", "temp:4500")

	states := queryStates(t, rig.handle(t, "token-1", queryBody("2")), "2")

	want := map[string]any{
		"online":     true,
		"on":         true,
		"brightness": 70,
		"color":      map[string]any{"temperatureK": 4500},
	}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryFanSpeedDefaults(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)
	// First configured tier wins over the hard default.
	rig.seedDevice(1, 2, "action.devices.types.FAN",
		store.DeviceTrait{Kind: "FanSpeed", Config: `{"availableFanSpeeds":{"S1":{"names":["A"]},"S2":{"names":["B"]}}}`},
	)
	rig.seedDevice(1, 3, "action.devices.types.FAN",
		store.DeviceTrait{Kind: "FanSpeed"},
	)

	resp := rig.handle(t, "token-1", queryBody("2", "3"))

	if got := queryStates(t, resp, "2")["currentFanSpeedSetting"]; got != "S1" {
		t.Errorf("configured fan default = %v, want S1", got)
	}
	if got := queryStates(t, resp, "3")["currentFanSpeedSetting"]; got != "S1" {
		t.Errorf("unconfigured fan default = %v, want S1", got)
	}
}

func TestQueryStartStop(t *testing.T) {
	rig := newTestRig(Config{Namespace: "bridge"})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.VACUUM", store.DeviceTrait{Kind: "StartStop"})
	rig.cache.set("bridge:u1:d2", "startstop", "start")

	states := queryStates(t, rig.handle(t, "token-1", queryBody("2")), "2")
	if states["isRunning"] != true {
		t.Errorf("isRunning = %v, want true", states["isRunning"])
	}
	if states["isPaused"] != false {
		t.Errorf("isPaused = %v, want false", states["isPaused"])
	}
}

func TestQueryOnlineClassification(t *testing.T) {
	rig := newTestRig(Config{Namespace: "bridge"})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.LIGHT") // no traits
	rig.seedDevice(1, 3, "action.devices.types.LIGHT", store.DeviceTrait{Kind: "OnOff"})
	rig.cache.set("bridge:u1:d3", "power", "0")
	rig.seedDevice(1, 4, "action.devices.types.LIGHT", store.DeviceTrait{Kind: "OnOff"})
	rig.cache.set("bridge:u1:d4", "power", "1")

	resp := rig.handle(t, "token-1", queryBody("2", "3", "4", "99"))

	if queryStates(t, resp, "2")["online"] != false {
		t.Error("traitless device must be offline")
	}
	if queryStates(t, resp, "3")["online"] != false {
		t.Error("power=0 must force offline")
	}
	if queryStates(t, resp, "4")["online"] != true {
		t.Error("power=1 device must stay online")
	}
	if queryStates(t, resp, "99")["online"] != false {
		t.Error("unknown device must be offline")
	}
}

func TestQueryUnknownTraitForcesOffline(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.LIGHT",
		store.DeviceTrait{Kind: "OnOff"},
		store.DeviceTrait{Kind: "Teleport"},
	)

	states := queryStates(t, rig.handle(t, "token-1", queryBody("2")), "2")
	if states["online"] != false {
		t.Error("unknown trait kind must force the device offline")
	}
	if states["on"] != false {
		t.Errorf("on = %v, want false", states["on"])
	}
}

func TestQuerySceneOnlineOnly(t *testing.T) {
	rig := newTestRig(Config{})
	rig.seedAccount(1, 5)
	rig.seedDevice(1, 2, "action.devices.types.SCENE", store.DeviceTrait{Kind: "Scene"})

	states := queryStates(t, rig.handle(t, "token-1", queryBody("2")), "2")
	want := map[string]any{"online": true}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}
