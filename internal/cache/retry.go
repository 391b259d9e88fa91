package cache

import (
	"time"

	"github.com/Amund211/notesync/internal/domain"
	"github.com/cenkalti/backoff/v5"
)

const DefaultMaxAttempts = 3

// Retry only when the server could not be reached or failed on its end.
// Client errors (4xx) will fail the same way again.
func DefaultShouldRetry(err error) bool {
	return domain.IsTransient(err)
}

func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}
