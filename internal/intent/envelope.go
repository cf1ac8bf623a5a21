// Package intent implements the smart-home protocol state machine: bearer
// authentication, the four intents (discovery, state query, command
// execution, disconnect) and envelope assembly.
package intent

import "encoding/json"

// Intent names as sent by the assistant platform.
const (
	IntentSync       = "action.devices.SYNC"
	IntentQuery      = "action.devices.QUERY"
	IntentExecute    = "action.devices.EXECUTE"
	IntentDisconnect = "action.devices.DISCONNECT"
)

// Protocol error codes. They are the only failure detail ever surfaced;
// internal errors stay in the logs.
const (
	ErrorCodeAuthExpired     = "authExpired"
	ErrorCodeAuthFailure     = "authFailure"
	ErrorCodeDeviceOffline   = "deviceOffline"
	ErrorCodeTimeout         = "timeout"
	ErrorCodeDeviceTurnedOff = "deviceTurnedOff"
	ErrorCodeDeviceNotFound  = "deviceNotFound"
	ErrorCodeValueOutOfRange = "valueOutOfRange"
	ErrorCodeNotSupported    = "notSupported"
	ErrorCodeProtocolError   = "protocolError"
	ErrorCodeUnknownError    = "unknownError"
)

// Request is the inbound intent envelope.
type Request struct {
	RequestID string  `json:"requestId"`
	Inputs    []Input `json:"inputs"`
}

// Input is one intent of a request. The platform sends exactly one; only
// the first is processed.
type Input struct {
	Intent  string          `json:"intent"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the outbound envelope. Payload is one of the per-intent
// payload types or ErrorPayload.
type Response struct {
	RequestID string `json:"requestId"`
	Payload   any    `json:"payload"`
}

// ErrorPayload carries a protocol error code.
type ErrorPayload struct {
	ErrorCode string `json:"errorCode"`
}

func errorResponse(requestID, code string) *Response {
	return &Response{RequestID: requestID, Payload: ErrorPayload{ErrorCode: code}}
}

// queryPayload is the QUERY request payload.
type queryPayload struct {
	Devices []deviceRef `json:"devices"`
}

// deviceRef names one target device. Protocol device ids are strings.
type deviceRef struct {
	ID string `json:"id"`
}

// executePayload is the EXECUTE request payload.
type executePayload struct {
	Commands []executeCommand `json:"commands"`
}

type executeCommand struct {
	Devices   []deviceRef `json:"devices"`
	Execution []execution `json:"execution"`
}

type execution struct {
	Command   string          `json:"command"`
	Params    json.RawMessage `json:"params"`
	Challenge *Challenge      `json:"challenge"`
}

// Challenge is the two-factor confirmation attached to an execution.
type Challenge struct {
	Ack bool   `json:"ack"`
	PIN string `json:"pin"`
}

// syncPayload is the SYNC response payload.
type syncPayload struct {
	AgentUserID string       `json:"agentUserId"`
	Devices     []syncDevice `json:"devices"`
}

type syncDevice struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Traits          []string       `json:"traits"`
	Name            deviceName     `json:"name"`
	WillReportState bool           `json:"willReportState"`
	DeviceInfo      deviceInfo     `json:"deviceInfo"`
	Attributes      map[string]any `json:"attributes,omitempty"`
}

type deviceName struct {
	DefaultNames []string `json:"defaultNames"`
	Name         string   `json:"name"`
}

type deviceInfo struct {
	Manufacturer string `json:"manufacturer"`
}

// queryResponsePayload is the QUERY response payload: device id → states.
type queryResponsePayload struct {
	Devices map[string]map[string]any `json:"devices"`
}

// executeResponsePayload is the EXECUTE response payload.
type executeResponsePayload struct {
	Commands []commandResult `json:"commands"`
}

type commandResult struct {
	IDs             []string         `json:"ids"`
	Status          string           `json:"status"`
	ErrorCode       string           `json:"errorCode,omitempty"`
	ChallengeNeeded *challengeNeeded `json:"challengeNeeded,omitempty"`
	States          map[string]any   `json:"states,omitempty"`
}

type challengeNeeded struct {
	Type string `json:"type"`
}
