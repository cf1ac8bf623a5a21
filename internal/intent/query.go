package intent

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/homevirt/assistant-bridge/internal/statecache"
	"github.com/homevirt/assistant-bridge/internal/store"
	"github.com/homevirt/assistant-bridge/internal/trait"
)

// handleQuery reads the last-known state of each requested device from the
// cache, applying per-trait decoding and default-on-miss policy.
func (d *Dispatcher) handleQuery(ctx context.Context, account *store.Account, requestID string, payload json.RawMessage) *Response {
	var query queryPayload
	if err := json.Unmarshal(payload, &query); err != nil || query.Devices == nil {
		return errorResponse(requestID, ErrorCodeProtocolError)
	}

	out := queryResponsePayload{Devices: make(map[string]map[string]any, len(query.Devices))}

	for _, ref := range query.Devices {
		device, err := d.deviceForAccount(ctx, account, ref.ID)
		if err != nil {
			d.log.Error("loading device for query", "account", account.ID, "device", ref.ID, "error", err)
			return errorResponse(requestID, ErrorCodeUnknownError)
		}

		states, err := d.queryDevice(ctx, account, ref.ID, device)
		if err != nil {
			d.log.Error("querying device state", "account", account.ID, "device", ref.ID, "error", err)
			return errorResponse(requestID, ErrorCodeUnknownError)
		}
		out.Devices[ref.ID] = states
	}

	return &Response{RequestID: requestID, Payload: out}
}

// queryDevice assembles the state map for one device. device may be nil for
// ids the account does not own; those report online=false and nothing else.
func (d *Dispatcher) queryDevice(ctx context.Context, account *store.Account, id string, device *store.Device) (map[string]any, error) {
	states := make(map[string]any)

	var traits []store.DeviceTrait
	if device != nil {
		traits = device.Traits
	}

	// A device with no traits is never online; an explicit power=0 in the
	// cache also forces it offline.
	states["online"] = len(traits) > 0
	if device == nil {
		return states, nil
	}

	key := statecache.Key(d.cfg.Namespace, account.ID, device.ID)

	power, powerSet, err := d.cache.GetField(ctx, key, statecache.FieldPower)
	if err != nil {
		return nil, err
	}
	if poweredOff(power, powerSet) {
		states["online"] = false
	}

	for i := range traits {
		tr := &traits[i]
		desc, ok := trait.Lookup(trait.Kind(tr.Kind))
		// Camera streams have no queryable state; like genuinely unknown
		// kinds they report the device offline.
		if !ok || desc.Kind == trait.CameraStream {
			d.log.Warn("unqueryable trait kind", "account", account.ID, "device", id, "kind", tr.Kind)
			states["online"] = false
			continue
		}

		value, present, err := d.cache.GetField(ctx, key, desc.CacheField)
		if err != nil {
			return nil, err
		}

		d.decodeTraitState(account, tr, desc, value, present, states)
	}

	return states, nil
}

// decodeTraitState applies the per-trait decode and default-on-miss policy,
// writing the emitted fields into states.
func (d *Dispatcher) decodeTraitState(account *store.Account, tr *store.DeviceTrait, desc trait.Descriptor, value string, present bool, states map[string]any) {
	switch desc.CacheField {
	case "onoff":
		states["on"] = present && truthy(value)

	case "brightness":
		states["brightness"] = atoiDefault(value, 0)

	case "tempset.mode":
		if !present {
			value = "off"
		}
		states["thermostatMode"] = value

	case "tempset.setpoint":
		states["thermostatTemperatureSetpoint"] = atofDefault(value, 0.0)

	case "tempset.ambient":
		states["thermostatTemperatureAmbient"] = atofDefault(value, 0.0)

	case "tempset.humidity":
		cfg, err := trait.ParseConfig(tr.Config)
		if err != nil {
			d.log.Warn("malformed trait config", "account", account.ID, "kind", tr.Kind, "error", err)
			return
		}
		if cfg.HumiditySupported {
			states["thermostatHumidityAmbient"] = atofDefault(value, 20.1)
		}

	case "fanspeed":
		if !present {
			value = "S1"
			if cfg, err := trait.ParseConfig(tr.Config); err == nil && len(cfg.FanSpeeds) > 0 {
				value = cfg.FanSpeeds[0].Name
			}
		}
		states["currentFanSpeedSetting"] = value

	case "startstop":
		states["isRunning"] = present && truthy(value)
		states["isPaused"] = false

	case "openclose":
		states["openPercent"] = atoiDefault(value, 0)

	case "colorsetting":
		if !present {
			value = "rgb:0"
		}
		parts := strings.SplitN(value, ":", 3)
		color := make(map[string]any)
		if len(parts) >= 2 {
			colorValue := atoiDefault(parts[1], 0)
			switch parts[0] {
			case "rgb":
				color["spectrumRgb"] = colorValue
			case "temp":
				color["temperatureK"] = colorValue
			}
		}
		states["color"] = color

	case "scene":
		// Scenes carry no state beyond online.
	}
}

// truthy mirrors the downstream encoding: empty and "0" mean false,
// everything else true.
func truthy(value string) bool {
	return value != "" && value != "0"
}

func atoiDefault(value string, def int) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

func atofDefault(value string, def float64) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return f
}
