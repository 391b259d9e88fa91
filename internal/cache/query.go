package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Amund211/notesync/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Query describes how to fetch the resource identified by Key
type Query[T any] struct {
	Key   Key
	Fetch func(ctx context.Context) (T, error)
}

func (q Query[T]) fetcher() fetchFunc {
	return func(ctx context.Context) (any, error) {
		data, err := q.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

// State is the typed view of a cache entry
type State[T any] struct {
	Data         T
	HasData      bool
	Status       Status
	Err          error
	Stale        bool
	FailureCount int
	UpdatedAt    time.Time
}

// Loading for the first time, nothing to show yet
func (s State[T]) IsLoading() bool {
	return s.Status == StatusLoading && !s.HasData
}

// Loading in the background while the last known data is shown
func (s State[T]) IsRefreshing() bool {
	return s.Status == StatusLoading && s.HasData
}

func stateFromSnapshot[T any](snapshot Snapshot) State[T] {
	state := State[T]{
		HasData:      snapshot.HasValue,
		Status:       snapshot.Status,
		Err:          snapshot.Err,
		Stale:        snapshot.Stale,
		FailureCount: snapshot.FailureCount,
		UpdatedAt:    snapshot.UpdatedAt,
	}
	if data, ok := snapshot.Value.(T); ok {
		state.Data = data
	}
	return state
}

type Subscription[T any] struct {
	client      *Client
	query       Query[T]
	unsubscribe func()
}

func (s *Subscription[T]) State() State[T] {
	snapshot, _ := s.client.store.Get(s.query.Key)
	return stateFromSnapshot[T](snapshot)
}

// Idempotent. A fetch in flight keeps running and may still populate the entry.
func (s *Subscription[T]) Unsubscribe() {
	s.unsubscribe()
}

// Fetch the query again, superseding any fetch in flight
func (s *Subscription[T]) Refetch() {
	s.client.startFetch(s.query.Key, s.query.fetcher(), true)
}

func (c *Client) recordQuery(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.metrics.queryCount.Add(c.ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// Subscribe to the query. The callback receives the state of the entry after
// every change. If the cached value is missing or not fresh a fetch is started,
// keeping any cached value visible while it runs.
func Subscribe[T any](c *Client, q Query[T], callback func(State[T])) *Subscription[T] {
	fetcher := q.fetcher()
	c.store.setFetcher(q.Key, fetcher)

	unsubscribe := c.store.Subscribe(q.Key, func(snapshot Snapshot) {
		if callback != nil {
			callback(stateFromSnapshot[T](snapshot))
		}
	})

	snapshot, _ := c.store.Get(q.Key)
	fresh := c.isFresh(snapshot)
	c.recordQuery(fresh)
	if !fresh {
		c.startFetch(q.Key, fetcher, false)
	}

	return &Subscription[T]{
		client:      c,
		query:       q,
		unsubscribe: unsubscribe,
	}
}

// Fetch returns the cached data if it is fresh, otherwise it waits for a
// (shared) fetch of the query. Canceling ctx stops the wait, not the fetch.
func Fetch[T any](ctx context.Context, c *Client, q Query[T]) (T, error) {
	var zero T

	snapshot, _ := c.store.Get(q.Key)
	if c.isFresh(snapshot) {
		if data, ok := snapshot.Value.(T); ok {
			c.recordQuery(true)
			return data, nil
		}
	}
	c.recordQuery(false)

	select {
	case result := <-c.startFetch(q.Key, q.fetcher(), false):
		if result.Err != nil {
			return zero, fmt.Errorf("failed to fetch %s: %w", q.Key, result.Err)
		}
		if result.Val == nil {
			return zero, nil
		}
		data, ok := result.Val.(T)
		if !ok {
			return zero, fmt.Errorf("unexpected value of type %T for %s", result.Val, q.Key)
		}
		return data, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Peek returns the cached state of the key without fetching, and whether the
// cached data would be served by Fetch as is
func Peek[T any](c *Client, key Key) (State[T], bool) {
	snapshot, _ := c.store.Get(key)
	return stateFromSnapshot[T](snapshot), c.isFresh(snapshot)
}

// Start fetching the query in the background unless the cached value is fresh
func Prefetch[T any](c *Client, q Query[T]) {
	snapshot, _ := c.store.Get(q.Key)
	if c.isFresh(snapshot) {
		return
	}
	c.startFetch(q.Key, q.fetcher(), false)
}

// Read the cached data for the key without fetching.
// Returns domain.ErrCacheMiss if the key has never been populated.
func GetQueryData[T any](c *Client, key Key) (T, error) {
	var zero T

	snapshot, ok := c.store.Get(key)
	if !ok || !snapshot.HasValue {
		return zero, fmt.Errorf("%w: %s", domain.ErrCacheMiss, key)
	}
	if snapshot.Value == nil {
		return zero, nil
	}

	data, ok := snapshot.Value.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected value of type %T for %s", snapshot.Value, key)
	}
	return data, nil
}

// Write data to the key as if it was fetched. A fetch in flight is superseded.
func SetQueryData[T any](c *Client, key Key, data T) {
	c.store.Set(key, data)
	c.flights.Forget(key.String())
}

// Replace the cached data for the key with fn(data).
// Returns false if the key has no data of type T.
func UpdateQueryData[T any](c *Client, key Key, fn func(data T) T) bool {
	ok := true
	patched := c.store.Patch(key, func(value any) any {
		data, isT := value.(T)
		if !isT {
			ok = false
			return value
		}
		return fn(data)
	})
	return patched && ok
}
