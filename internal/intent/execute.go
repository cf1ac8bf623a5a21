package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/homevirt/assistant-bridge/internal/commandbus"
	"github.com/homevirt/assistant-bridge/internal/statecache"
	"github.com/homevirt/assistant-bridge/internal/store"
	"github.com/homevirt/assistant-bridge/internal/trait"
)

// Execute command names.
const (
	cmdOnOff          = "action.devices.commands.OnOff"
	cmdBrightness     = "action.devices.commands.BrightnessAbsolute"
	cmdActivateScene  = "action.devices.commands.ActivateScene"
	cmdThermostatTemp = "action.devices.commands.ThermostatTemperatureSetpoint"
	cmdThermostatMode = "action.devices.commands.ThermostatSetMode"
	cmdSetFanSpeed    = "action.devices.commands.SetFanSpeed"
	cmdStartStop      = "action.devices.commands.StartStop"
	cmdOpenClose      = "action.devices.commands.OpenClose"
	cmdCameraStream   = "action.devices.commands.GetCameraStream"
	cmdColorAbsolute  = "action.devices.commands.ColorAbsolute"
)

// errUnknownCommand skips an execution without failing the batch.
var errUnknownCommand = errors.New("unknown execute command")

// Execution result buckets, in response order.
type bucket int

const (
	bucketSuccess bucket = iota
	bucketOffline
	bucketAckNeeded
	bucketPinNeeded
	bucketWrongPin
	bucketCount
)

// executeState aggregates per-device outcomes across a batch. Each device id
// lands in at most one non-camera bucket; the first classification wins.
type executeState struct {
	assigned map[string]bucket
	order    [bucketCount][]string

	cameraSeen  map[string]bool
	cameraOrder []string
}

func newExecuteState() *executeState {
	return &executeState{
		assigned:   make(map[string]bucket),
		cameraSeen: make(map[string]bool),
	}
}

func (s *executeState) assign(id string, b bucket) {
	if _, done := s.assigned[id]; done {
		return
	}
	s.assigned[id] = b
	s.order[b] = append(s.order[b], id)
}

func (s *executeState) addCamera(id string) {
	if s.cameraSeen[id] {
		return
	}
	s.cameraSeen[id] = true
	s.cameraOrder = append(s.cameraOrder, id)
}

// handleExecute walks every (execution, target device) pair: encodes the
// command, gates it on the device's two-factor policy, publishes satisfied
// commands to the bus and classifies the outcome.
func (d *Dispatcher) handleExecute(ctx context.Context, account *store.Account, requestID string, payload json.RawMessage) *Response {
	var exec executePayload
	if err := json.Unmarshal(payload, &exec); err != nil || exec.Commands == nil {
		return errorResponse(requestID, ErrorCodeProtocolError)
	}

	state := newExecuteState()

	for _, command := range exec.Commands {
		for _, e := range command.Execution {
			field, value, err := encodeExecution(&e)
			if err != nil {
				d.log.Error("unknown execute command", "account", account.ID, "command", e.Command)
				continue
			}

			for _, ref := range command.Devices {
				if err := d.executeOnDevice(ctx, account, &e, ref.ID, field, value, state); err != nil {
					d.log.Error("executing command", "account", account.ID, "device", ref.ID, "error", err)
					return errorResponse(requestID, ErrorCodeUnknownError)
				}
			}
		}
	}

	out := executeResponsePayload{Commands: d.assembleResults(ctx, account, state)}
	return &Response{RequestID: requestID, Payload: out}
}

// executeOnDevice handles one (execution, device) pair.
func (d *Dispatcher) executeOnDevice(ctx context.Context, account *store.Account, e *execution, id, field, value string, state *executeState) error {
	device, err := d.deviceForAccount(ctx, account, id)
	if err != nil {
		return err
	}
	if device == nil {
		d.log.Error("execute for unknown device", "account", account.ID, "device", id)
		return nil
	}

	switch EvaluateChallenge(device, e.Challenge) {
	case ChallengeAckNeeded:
		state.assign(id, bucketAckNeeded)
		return nil
	case ChallengePinNeeded:
		state.assign(id, bucketPinNeeded)
		return nil
	case ChallengeWrongPin:
		state.assign(id, bucketWrongPin)
		return nil
	}

	channel := commandbus.CommandChannel(d.cfg.Namespace, account.ID, device.ID, field)
	if err := d.bus.Publish(ctx, channel, value); err != nil {
		return fmt.Errorf("publishing command: %w", err)
	}

	// Streaming is requested regardless of cached power state, and the
	// camerastream cache field belongs to the device-reported URL, so it is
	// never overwritten here.
	if field == "camerastream" {
		state.addCamera(id)
		return nil
	}

	key := statecache.Key(d.cfg.Namespace, account.ID, device.ID)
	if err := d.cache.SetField(ctx, key, field, value); err != nil {
		return fmt.Errorf("caching command state: %w", err)
	}

	power, powerSet, err := d.cache.GetField(ctx, key, statecache.FieldPower)
	if err != nil {
		return err
	}
	if poweredOff(power, powerSet) {
		state.assign(id, bucketOffline)
	} else {
		state.assign(id, bucketSuccess)
	}
	return nil
}

// assembleResults emits one status block per non-empty bucket in fixed
// order, then one SUCCESS block per camera-stream device carrying the
// resolved access URL.
func (d *Dispatcher) assembleResults(ctx context.Context, account *store.Account, state *executeState) []commandResult {
	results := make([]commandResult, 0, int(bucketCount)+len(state.cameraOrder))

	if ids := state.order[bucketSuccess]; len(ids) > 0 {
		results = append(results, commandResult{IDs: ids, Status: "SUCCESS"})
	}
	if ids := state.order[bucketOffline]; len(ids) > 0 {
		results = append(results, commandResult{IDs: ids, Status: "OFFLINE"})
	}

	challengeBuckets := []struct {
		b    bucket
		kind string
	}{
		{bucketAckNeeded, "ackNeeded"},
		{bucketPinNeeded, "pinNeeded"},
		{bucketWrongPin, "challengeFailedPinNeeded"},
	}
	for _, cb := range challengeBuckets {
		if ids := state.order[cb.b]; len(ids) > 0 {
			results = append(results, commandResult{
				IDs:             ids,
				Status:          "ERROR",
				ErrorCode:       "challengeNeeded",
				ChallengeNeeded: &challengeNeeded{Type: cb.kind},
			})
		}
	}

	for _, id := range state.cameraOrder {
		results = append(results, commandResult{
			IDs:    []string{id},
			Status: "SUCCESS",
			States: map[string]any{"cameraStreamAccessUrl": d.cameraStreamURL(ctx, account, id)},
		})
	}

	return results
}

// cameraStreamURL resolves the access URL for a camera device: the cached
// value when the device reported one, else the configured default, else "".
func (d *Dispatcher) cameraStreamURL(ctx context.Context, account *store.Account, id string) string {
	device, err := d.deviceForAccount(ctx, account, id)
	if err != nil || device == nil {
		return ""
	}

	key := statecache.Key(d.cfg.Namespace, account.ID, device.ID)
	url, present, err := d.cache.GetField(ctx, key, "camerastream")
	if err == nil && present {
		return url
	}

	cfg := kindConfig(d, account, device, trait.CameraStream)
	if cfg == nil {
		return ""
	}
	return cfg.CameraStreamDefaultURL
}

// encodeExecution maps a command to its trait cache field and encoded value.
func encodeExecution(e *execution) (field, value string, err error) {
	switch e.Command {
	case cmdOnOff:
		var p struct {
			On bool `json:"on"`
		}
		decodeParams(e.Params, &p)
		return "onoff", boolValue(p.On, "1", "0"), nil

	case cmdBrightness:
		var p struct {
			Brightness int `json:"brightness"`
		}
		decodeParams(e.Params, &p)
		return "brightness", strconv.Itoa(p.Brightness), nil

	case cmdActivateScene:
		return "scene", "1", nil

	case cmdThermostatTemp:
		var p struct {
			Setpoint float64 `json:"thermostatTemperatureSetpoint"`
		}
		decodeParams(e.Params, &p)
		return "tempset.setpoint", strconv.FormatFloat(p.Setpoint, 'f', -1, 64), nil

	case cmdThermostatMode:
		var p struct {
			Mode string `json:"thermostatMode"`
		}
		decodeParams(e.Params, &p)
		return "tempset.mode", p.Mode, nil

	case cmdSetFanSpeed:
		var p struct {
			FanSpeed string `json:"fanSpeed"`
		}
		decodeParams(e.Params, &p)
		return "fanspeed", p.FanSpeed, nil

	case cmdStartStop:
		var p struct {
			Start bool `json:"start"`
		}
		decodeParams(e.Params, &p)
		return "startstop", boolValue(p.Start, "start", "stop"), nil

	case cmdOpenClose:
		var p struct {
			OpenPercent int `json:"openPercent"`
		}
		decodeParams(e.Params, &p)
		return "openclose", strconv.Itoa(p.OpenPercent), nil

	case cmdCameraStream:
		var p struct {
			StreamToChromecast bool `json:"StreamToChromecast"`
		}
		decodeParams(e.Params, &p)
		return "camerastream", boolValue(p.StreamToChromecast, "chromecast", "generic"), nil

	case cmdColorAbsolute:
		var p struct {
			Color struct {
				SpectrumRGB *int    `json:"spectrumRGB"`
				Temperature *int    `json:"temperature"`
				Name        *string `json:"name"`
			} `json:"color"`
		}
		decodeParams(e.Params, &p)
		parts := []string{"", "", ""}
		if p.Color.SpectrumRGB != nil {
			parts[0] = "rgb"
			parts[1] = strconv.Itoa(*p.Color.SpectrumRGB)
		} else if p.Color.Temperature != nil {
			parts[0] = "temp"
			parts[1] = strconv.Itoa(*p.Color.Temperature)
		}
		if p.Color.Name != nil {
			parts[2] = *p.Color.Name
		}
		return "colorsetting", strings.Join(parts, ":"), nil
	}

	return "", "", errUnknownCommand
}

// decodeParams tolerates absent or malformed params: missing fields keep
// their zero values, matching the lenient decoding downstream expects.
func decodeParams(raw json.RawMessage, v any) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, v)
}

func boolValue(b bool, ifTrue, ifFalse string) string {
	if b {
		return ifTrue
	}
	return ifFalse
}
