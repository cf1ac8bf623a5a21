package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/homevirt/assistant-bridge/internal/commandbus"
	"github.com/homevirt/assistant-bridge/internal/logging"
	"github.com/homevirt/assistant-bridge/internal/oauth"
	"github.com/homevirt/assistant-bridge/internal/statecache"
	"github.com/homevirt/assistant-bridge/internal/store"
)

// Authenticator resolves bearer tokens and tears down credentials.
// *oauth.Service satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*store.Account, error)
	Disconnect(ctx context.Context, accountID uint) error
}

// Config carries the deployment-level knobs of the dispatcher.
type Config struct {
	// Namespace prefixes every cache key and bus channel.
	Namespace string

	// Hosted marks a report-state-capable installation; discovery then
	// advertises willReportState for ordinary devices.
	Hosted bool

	// Manufacturer is emitted in every discovery descriptor.
	Manufacturer string

	// DefaultDeviceName is the default display name sent during discovery.
	DefaultDeviceName string
}

// Dispatcher is the top-level intent entry point. It owns no request state;
// every call is independent.
type Dispatcher struct {
	store store.Store
	auth  Authenticator
	cache statecache.Cache
	bus   commandbus.Bus
	log   *logging.Logger
	cfg   Config
}

// NewDispatcher wires the intent state machine to its collaborators.
func NewDispatcher(st store.Store, auth Authenticator, cache statecache.Cache, bus commandbus.Bus, log *logging.Logger, cfg Config) *Dispatcher {
	if cfg.Manufacturer == "" {
		cfg.Manufacturer = "homevirt"
	}
	if cfg.DefaultDeviceName == "" {
		cfg.DefaultDeviceName = "Virtual Device"
	}
	return &Dispatcher{store: st, auth: auth, cache: cache, bus: bus, log: log, cfg: cfg}
}

// Handle authenticates the bearer token, routes the envelope to the matching
// intent handler and returns the response envelope. Failures are expressed
// as protocol error codes, never as transport errors.
func (d *Dispatcher) Handle(ctx context.Context, bearer string, body []byte) *Response {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResponse("", ErrorCodeProtocolError)
	}
	if req.RequestID == "" {
		return errorResponse("", ErrorCodeProtocolError)
	}

	account, err := d.auth.Authenticate(ctx, bearer)
	if err != nil {
		if !errors.Is(err, oauth.ErrAuthFailure) {
			d.log.Error("resolving bearer token", "error", err)
			return errorResponse(req.RequestID, ErrorCodeUnknownError)
		}
		return errorResponse(req.RequestID, ErrorCodeAuthFailure)
	}

	if len(req.Inputs) == 0 {
		return errorResponse(req.RequestID, ErrorCodeProtocolError)
	}
	input := req.Inputs[0]
	if input.Intent == "" {
		d.log.Warn("intent missing from request", "account", account.ID)
		return errorResponse(req.RequestID, ErrorCodeProtocolError)
	}

	d.recordRequest(ctx, account.ID, req.RequestID, input.Intent)

	switch input.Intent {
	case IntentSync:
		return d.handleSync(ctx, account, req.RequestID)
	case IntentQuery:
		if resp := d.checkDeviceLimit(ctx, account, req.RequestID); resp != nil {
			return resp
		}
		return d.handleQuery(ctx, account, req.RequestID, input.Payload)
	case IntentExecute:
		if resp := d.checkDeviceLimit(ctx, account, req.RequestID); resp != nil {
			return resp
		}
		return d.handleExecute(ctx, account, req.RequestID, input.Payload)
	case IntentDisconnect:
		if err := d.auth.Disconnect(ctx, account.ID); err != nil {
			d.log.Error("deleting credential on disconnect", "account", account.ID, "error", err)
			return errorResponse(req.RequestID, ErrorCodeUnknownError)
		}
		return &Response{RequestID: req.RequestID, Payload: struct{}{}}
	default:
		d.log.Warn("unknown intent", "intent", input.Intent, "account", account.ID)
		return errorResponse(req.RequestID, ErrorCodeProtocolError)
	}
}

// recordRequest stores request bookkeeping and notifies the bus of the raw
// intent name. Both are observability for the downstream layer; failures are
// logged but never fail the request.
func (d *Dispatcher) recordRequest(ctx context.Context, accountID uint, requestID, intentName string) {
	key := statecache.AccountKey(d.cfg.Namespace, accountID)
	if err := d.cache.SetField(ctx, key, statecache.FieldRequestID, requestID); err != nil {
		d.log.Warn("recording request id", "account", accountID, "error", err)
	}

	short := shortIntentName(intentName)
	if short == "" {
		return
	}
	if err := d.cache.SetField(ctx, key, statecache.FieldRequestType, short); err != nil {
		d.log.Warn("recording request type", "account", accountID, "error", err)
	}
	if err := d.bus.Publish(ctx, commandbus.IntentChannel(d.cfg.Namespace, accountID), short); err != nil {
		d.log.Warn("publishing intent notification", "account", accountID, "error", err)
	}
}

// checkDeviceLimit enforces the account's device capacity. Discovery and
// disconnect are exempt so an over-limit account can still re-sync or unlink.
func (d *Dispatcher) checkDeviceLimit(ctx context.Context, account *store.Account, requestID string) *Response {
	count, err := d.store.DeviceCount(ctx, account.ID)
	if err != nil {
		d.log.Error("counting devices", "account", account.ID, "error", err)
		return errorResponse(requestID, ErrorCodeUnknownError)
	}
	if count > account.DeviceLimit {
		return errorResponse(requestID, ErrorCodeDeviceTurnedOff)
	}
	return nil
}

// deviceForAccount resolves a protocol device id to one of the account's
// devices. Unknown, malformed or foreign ids all come back nil.
func (d *Dispatcher) deviceForAccount(ctx context.Context, account *store.Account, id string) (*store.Device, error) {
	numeric, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, nil
	}
	device, err := d.store.DeviceByID(ctx, uint(numeric))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading device %s: %w", id, err)
	}
	if device.AccountID != account.ID {
		return nil, nil
	}
	return device, nil
}

// poweredOff reports whether a cached power value marks the device off.
// Only the exact string "0" counts; absent or any other value is on. The
// same rule applies to query classification and execute success reporting.
func poweredOff(value string, present bool) bool {
	return present && value == "0"
}

func shortIntentName(intentName string) string {
	switch intentName {
	case IntentSync:
		return "SYNC"
	case IntentQuery:
		return "QUERY"
	case IntentExecute:
		return "EXECUTE"
	case IntentDisconnect:
		return "DISCONNECT"
	}
	return ""
}
