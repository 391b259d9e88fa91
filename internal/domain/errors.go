package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork = errors.New("network error")
	ErrServer  = errors.New("server error")
	ErrClient  = errors.New("client error")

	ErrUnauthorized = fmt.Errorf("%w: unauthorized", ErrClient)
	ErrForbidden    = fmt.Errorf("%w: forbidden", ErrClient)
	ErrNotFound     = fmt.Errorf("%w: not found", ErrClient)
	ErrConflict     = fmt.Errorf("%w: conflict", ErrClient)
	ErrValidation   = fmt.Errorf("%w: validation failed", ErrClient)

	// A response status the client has no handling for (1xx, 3xx)
	ErrUnexpectedStatus = fmt.Errorf("%w: unexpected status", ErrClient)

	ErrSessionExpired = fmt.Errorf("session expired: %w", ErrUnauthorized)

	ErrCacheMiss = errors.New("cache miss")
)

// Transient errors may succeed if the same request is issued again
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer)
}
