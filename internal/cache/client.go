package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Amund211/notesync/internal/logging"
	"github.com/cenkalti/backoff/v5"
	"github.com/jellydator/ttlcache/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultGracePeriod = 5 * time.Minute
	DefaultStaleTime   = 0
)

type options struct {
	staleTime   time.Duration
	gracePeriod time.Duration
	maxAttempts uint
	newBackOff  func() backoff.BackOff
	shouldRetry func(err error) bool
	nowFunc     func() time.Time
	logger      *slog.Logger
}

type Option func(*options)

// How long a successfully fetched value counts as fresh.
// New subscribers to stale entries trigger a refetch.
func WithStaleTime(staleTime time.Duration) Option {
	return func(o *options) {
		o.staleTime = staleTime
	}
}

// How long entries without subscribers are kept
func WithGracePeriod(gracePeriod time.Duration) Option {
	return func(o *options) {
		o.gracePeriod = gracePeriod
	}
}

// Total attempts per fetch, including the first one
func WithMaxAttempts(maxAttempts uint) Option {
	return func(o *options) {
		o.maxAttempts = maxAttempts
	}
}

func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(o *options) {
		o.newBackOff = newBackOff
	}
}

func WithRetryPredicate(shouldRetry func(err error) bool) Option {
	return func(o *options) {
		o.shouldRetry = shouldRetry
	}
}

func WithNowFunc(nowFunc func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = nowFunc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Client coordinates queries and mutations on top of a Store
type Client struct {
	store   *Store
	flights singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	staleTime   time.Duration
	maxAttempts uint
	newBackOff  func() backoff.BackOff
	shouldRetry func(err error) bool
	nowFunc     func() time.Time

	metrics            cacheMetricsCollection
	tracer             trace.Tracer
	stopEvictionMetric func()
}

// Create a new client. Fetches run on a context derived from ctx, detached
// from its cancellation; they are canceled by Close.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	const name = "notesync/cache"

	o := options{
		staleTime:   DefaultStaleTime,
		gracePeriod: DefaultGracePeriod,
		maxAttempts: DefaultMaxAttempts,
		newBackOff:  DefaultBackOff,
		shouldRetry: DefaultShouldRetry,
		nowFunc:     time.Now,
		logger:      nil,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAttempts == 0 {
		return nil, fmt.Errorf("max attempts must be at least 1")
	}

	metrics, err := setupCacheMetrics(otel.Meter(name))
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	fetchCtx = logging.AddToContext(fetchCtx, logger.With(slog.String("component", "cache")))

	store := NewStore(o.gracePeriod, o.nowFunc)

	stopEvictionMetric := store.entries.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, _ *ttlcache.Item[string, *entry]) {
		metrics.evictionCount.Add(fetchCtx, 1, metric.WithAttributes(attribute.String("reason", evictionReasonString(reason))))
	})

	return &Client{
		store:   store,
		flights: singleflight.Group{},

		ctx:    fetchCtx,
		cancel: cancel,

		staleTime:   o.staleTime,
		maxAttempts: o.maxAttempts,
		newBackOff:  o.newBackOff,
		shouldRetry: o.shouldRetry,
		nowFunc:     o.nowFunc,

		metrics:            metrics,
		tracer:             otel.Tracer(name),
		stopEvictionMetric: stopEvictionMetric,
	}, nil
}

func evictionReasonString(reason ttlcache.EvictionReason) string {
	switch reason {
	case ttlcache.EvictionReasonDeleted:
		return "deleted"
	case ttlcache.EvictionReasonExpired:
		return "expired"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	default:
		return "other"
	}
}

func (c *Client) Store() *Store {
	return c.store
}

// Cancel fetches in flight and stop expiring entries
func (c *Client) Close() {
	c.cancel()
	c.stopEvictionMetric()
	c.store.Close()
}

func (c *Client) isFresh(snapshot Snapshot) bool {
	if !snapshot.HasValue || snapshot.Stale || snapshot.Status == StatusError {
		return false
	}
	return c.nowFunc().Sub(snapshot.UpdatedAt) < c.staleTime
}

// Start a fetch for the key, or join the one in flight.
// With force set, a new fetch is started and the one in flight is superseded.
func (c *Client) startFetch(key Key, fetcher fetchFunc, force bool) <-chan singleflight.Result {
	id := key.String()
	if force {
		c.flights.Forget(id)
	}
	return c.flights.DoChan(id, func() (any, error) {
		return c.runFetch(key, fetcher)
	})
}

func (c *Client) runFetch(key Key, fetcher fetchFunc) (any, error) {
	e, seq := c.store.beginFetch(key, fetcher)

	ctx := logging.AddMetaToContext(c.ctx, slog.String("key", key.String()))
	ctx, span := c.tracer.Start(ctx, "Cache.fetch", trace.WithAttributes(attribute.String("key", key.String())))
	defer span.End()
	logger := logging.FromContext(ctx)

	start := time.Now()
	attempts := 0
	value, err := backoff.Retry(ctx, func() (any, error) {
		attempts++
		value, err := fetcher(ctx)
		if err == nil {
			return value, nil
		}

		c.store.recordFailure(e, seq, attempts, err)

		if !c.shouldRetry(err) {
			return nil, backoff.Permanent(err)
		}

		logger.InfoContext(ctx, "Fetch attempt failed", "attempt", attempts, "error", err.Error())
		return nil, err
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxAttempts),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}

	applied := c.store.settleFetch(e, seq, value, err)

	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "Fetch failed", "attempts", attempts, "error", err.Error())
	}
	if !applied {
		outcome = "discarded"
		logger.InfoContext(ctx, "Discarding result of superseded fetch")
	}

	attributes := metric.WithAttributes(attribute.String("outcome", outcome))
	c.metrics.fetchCount.Add(ctx, 1, attributes)
	c.metrics.fetchAttempts.Record(ctx, int64(attempts), attributes)
	c.metrics.fetchDuration.Record(ctx, time.Since(start).Seconds(), attributes)

	return value, err
}

// Invalidate every matching key. Keys with active subscribers are refetched
// in the background, superseding any fetch in flight.
func (c *Client) Invalidate(matcher Matcher) {
	targets, outdated := c.store.invalidate(matcher)
	// Later reads start a new fetch instead of joining the outdated one
	for _, key := range outdated {
		c.flights.Forget(key.String())
	}
	for _, target := range targets {
		c.startFetch(target.key, target.fetcher, true)
	}
}

// Drop every matching entry, e.g. all user data on logout
func (c *Client) Remove(matcher Matcher) {
	for _, key := range c.store.Remove(matcher) {
		c.flights.Forget(key.String())
	}
}
