package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login guard errors
	ErrAccessDenied             = errors.New("access denied")
	ErrInvalidCredential        = errors.New("invalid credential")
	ErrCredentialNotProvisioned = errors.New("credential not provisioned")
	ErrRateLimited              = errors.New("too many failed attempts")

	// Step-up authorization error
	ErrInvalidMasterSecret = errors.New("invalid master secret")

	// External session errors
	ErrBotNotRunning      = errors.New("bot session not running")
	ErrConnect            = errors.New("gateway connection failed")
	ErrInvalidDestination = errors.New("destination cannot accept messages")
	ErrDeliveryFailed     = errors.New("direct delivery failed")
)
