package ratelimiting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Amund211/notesync/internal/logging"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

type RateLimiter interface {
	// Wait blocks until a token for the key is available or the context is done
	Wait(ctx context.Context, key string) error
	Consume(key string) bool
}

type tokenBucketRateLimiter struct {
	limiterByKey    *ttlcache.Cache[string, *rate.Limiter]
	refillPerSecond int
	burstSize       int
}

func (rateLimiter *tokenBucketRateLimiter) limiterFor(key string) *rate.Limiter {
	limiter, _ := rateLimiter.limiterByKey.GetOrSet(key, rate.NewLimiter(rate.Limit(rateLimiter.refillPerSecond), rateLimiter.burstSize))
	return limiter.Value()
}

func (rateLimiter *tokenBucketRateLimiter) Wait(ctx context.Context, key string) error {
	err := rateLimiter.limiterFor(key).Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for rate limit on %s: %w", key, err)
	}
	return nil
}

func (rateLimiter *tokenBucketRateLimiter) Consume(key string) bool {
	return rateLimiter.limiterFor(key).Allow()
}

type RefillPerSecond int
type BurstSize int

func NewTokenBucketRateLimiter(refillPerSecond RefillPerSecond, burstSize BurstSize) (RateLimiter, func()) {
	limiterTTLCache := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](30 * time.Minute),
	)
	go limiterTTLCache.Start()

	return &tokenBucketRateLimiter{
		limiterByKey:    limiterTTLCache,
		refillPerSecond: int(refillPerSecond),
		burstSize:       int(burstSize),
	}, limiterTTLCache.Stop
}

// NewRateLimitedTransport delays outgoing requests until the limiter allows them
func NewRateLimitedTransport(limiter RateLimiter, keyFunc func(r *http.Request) string, next http.RoundTripper) http.RoundTripper {
	return logging.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		err := limiter.Wait(r.Context(), keyFunc(r))
		if err != nil {
			return nil, err
		}
		return next.RoundTrip(r)
	})
}

// Reads and writes are throttled separately so a burst of refetches can't starve a mutation
func MethodKeyFunc(r *http.Request) string {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return fmt.Sprintf("read: %s", r.URL.Host)
	default:
		return fmt.Sprintf("write: %s", r.URL.Host)
	}
}
