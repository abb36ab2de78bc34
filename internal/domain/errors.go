package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores and
// services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Activity errors
var (
	ErrActivityNotFound = errors.New("activity not found")
)

// Session errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotReady  = errors.New("session is not ready")
	ErrSessionCompleted = errors.New("session already completed")
)

// Progress errors
var (
	ErrProgressNotFound = errors.New("progress record not found")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)
