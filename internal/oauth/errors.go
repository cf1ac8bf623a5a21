package oauth

import "errors"

// Errors surfaced by the credential lifecycle. Grant failures collapse to a
// single error: callers never learn whether a code was wrong, replayed or
// expired.
var (
	// ErrInvalidClient indicates a client_id that does not match the platform
	ErrInvalidClient = errors.New("invalid client id")

	// ErrInvalidResponseType indicates a response_type other than "code"
	ErrInvalidResponseType = errors.New("unsupported response type")

	// ErrInvalidRedirect indicates a redirect_uri outside the configured callback
	ErrInvalidRedirect = errors.New("invalid redirect uri")

	// ErrMissingState indicates an authorization request without a state value
	ErrMissingState = errors.New("missing state")

	// ErrInvalidGrant covers every code/token validation failure at the
	// token endpoint
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrAuthFailure indicates a bearer token that resolves to no account
	ErrAuthFailure = errors.New("authentication failure")
)
