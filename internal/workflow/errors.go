package workflow

import "errors"

// Sentinel errors for the orchestrator boundary. Handlers map these onto
// HTTP status codes with errors.Is; external collaborator failures are
// caught and logged inside the orchestrator and never surface through here.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation error")
)
