package cache

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Store owns every cache entry. Readers only ever see snapshots.
//
// Entries are kept in a ttlcache: entries with subscribers never expire, and
// entries without subscribers expire after the grace period.
//
// NOTE: Subscriber callbacks run synchronously after the update that caused
// them. A callback that writes to the key it is observing sees the resulting
// notification after it returns.
type Store struct {
	mu                 sync.Mutex
	entries            *ttlcache.Cache[string, *entry]
	nextSubscriptionID uint64
	nowFunc            func() time.Time

	closeOnce sync.Once
}

func NewStore(gracePeriod time.Duration, nowFunc func() time.Time) *Store {
	entries := ttlcache.New[string, *entry](
		ttlcache.WithTTL[string, *entry](gracePeriod),
		ttlcache.WithDisableTouchOnHit[string, *entry](),
	)
	go entries.Start()

	return &Store{
		entries: entries,
		nowFunc: nowFunc,
	}
}

// Stop the eviction loop. The store stays usable, but entries no longer expire.
func (s *Store) Close() {
	s.closeOnce.Do(s.entries.Stop)
}

// Must be called with s.mu held
func (s *Store) lookup(key Key) *entry {
	item := s.entries.Get(key.String())
	if item == nil {
		return nil
	}
	return item.Value()
}

// Must be called with s.mu held
func (s *Store) getOrCreate(key Key) (*entry, bool) {
	if e := s.lookup(key); e != nil {
		return e, true
	}

	e := newEntry(key)
	s.persist(e)
	return e, false
}

// Write the entry back, refreshing its expiration.
// Must be called with s.mu held
func (s *Store) persist(e *entry) {
	ttl := ttlcache.DefaultTTL
	if len(e.subscriptions) > 0 {
		ttl = ttlcache.NoTTL
	}
	s.entries.Set(e.key.String(), e, ttl)
}

// Whether e is still the live entry for its key (it may have been evicted).
// Must be called with s.mu held
func (s *Store) isCurrent(e *entry) bool {
	return s.lookup(e.key) == e
}

// Must be called with s.mu held
func (s *Store) prepareNotification(e *entry) notification {
	e.version++

	callbacks := make([]func(Snapshot), len(e.subscriptions))
	for i, sub := range e.subscriptions {
		callbacks[i] = sub.callback
	}

	return notification{
		entry:     e,
		snapshot:  e.snapshot(),
		callbacks: callbacks,
	}
}

// Must be called with s.mu held
func (s *Store) matching(matcher Matcher) []*entry {
	var matched []*entry
	for _, item := range s.entries.Items() {
		e := item.Value()
		if !matcher.Matches(e.key) {
			continue
		}
		matched = append(matched, e)
	}
	return matched
}

func (s *Store) Get(key Key) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return Snapshot{Key: key, Status: StatusIdle}, false
	}
	return e.snapshot(), true
}

// Set the value of the key, marking it as fresh.
// A fetch in flight for the key is superseded and its result dropped.
func (s *Store) Set(key Key, value any) {
	s.mu.Lock()
	e, _ := s.getOrCreate(key)
	e.supersedeFetch()
	e.applyValue(value, s.nowFunc())
	s.persist(e)
	n := s.prepareNotification(e)
	s.mu.Unlock()

	n.deliver()
}

// Replace the value of the key with fn(value).
// Returns false without calling fn if the key has no value.
func (s *Store) Patch(key Key, fn func(value any) any) bool {
	s.mu.Lock()
	e := s.lookup(key)
	if e == nil || !e.hasValue {
		s.mu.Unlock()
		return false
	}
	e.applyValue(fn(e.value), s.nowFunc())
	s.persist(e)
	n := s.prepareNotification(e)
	s.mu.Unlock()

	n.deliver()
	return true
}

type refetchTarget struct {
	key     Key
	fetcher fetchFunc
}

// Returns the entries to refetch, and the keys whose fetch in flight was issued
// before the invalidation
func (s *Store) invalidate(matcher Matcher) ([]refetchTarget, []Key) {
	s.mu.Lock()
	var targets []refetchTarget
	var outdated []Key
	var notifications []notification
	for _, e := range s.matching(matcher) {
		e.stale = true
		if e.fetching {
			e.invalidatedSeq = e.fetchSeq
			outdated = append(outdated, e.key)
		}
		if len(e.subscriptions) > 0 && e.fetcher != nil {
			targets = append(targets, refetchTarget{key: e.key, fetcher: e.fetcher})
		}
		notifications = append(notifications, s.prepareNotification(e))
	}
	s.mu.Unlock()

	deliverAll(notifications)
	return targets, outdated
}

// Mark every matching entry as stale. The last known values are still served,
// including the results of fetches in flight.
// Returns the keys with active subscribers, which should be refetched.
func (s *Store) Invalidate(matcher Matcher) []Key {
	targets, _ := s.invalidate(matcher)
	keys := make([]Key, len(targets))
	for i, target := range targets {
		keys[i] = target.key
	}
	return keys
}

// Drop the values of every matching entry, returning the matched keys.
// Entries without subscribers are deleted, subscribed entries are reset to idle.
func (s *Store) Remove(matcher Matcher) []Key {
	s.mu.Lock()
	var keys []Key
	var notifications []notification
	for _, e := range s.matching(matcher) {
		keys = append(keys, e.key)
		e.supersedeFetch()
		e.restore(savedEntry{key: e.key, existed: false})
		if len(e.subscriptions) == 0 {
			s.entries.Delete(e.key.String())
			continue
		}
		notifications = append(notifications, s.prepareNotification(e))
	}
	s.mu.Unlock()

	deliverAll(notifications)
	return keys
}

// Register interest in the key. The callback receives a snapshot after every
// change to the entry. The returned function unsubscribes and is idempotent.
func (s *Store) Subscribe(key Key, callback func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _ := s.getOrCreate(key)
	s.nextSubscriptionID++
	id := s.nextSubscriptionID
	e.subscriptions = append(e.subscriptions, subscription{id: id, callback: callback})
	s.persist(e)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.unsubscribe(e, id)
		})
	}
}

func (s *Store) unsubscribe(e *entry, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range e.subscriptions {
		if sub.id == id {
			e.subscriptions = append(e.subscriptions[:i:i], e.subscriptions[i+1:]...)
			break
		}
	}

	if s.isCurrent(e) {
		// Starts the grace period if this was the last subscriber
		s.persist(e)
	}
}

func (s *Store) setFetcher(key Key, fetcher fetchFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _ := s.getOrCreate(key)
	e.fetcher = fetcher
}

// Claim a new fetch for the key. Any fetch already in flight is superseded.
func (s *Store) beginFetch(key Key, fetcher fetchFunc) (*entry, uint64) {
	s.mu.Lock()
	e, _ := s.getOrCreate(key)
	e.fetchSeq++
	e.fetching = true
	e.fetcher = fetcher
	e.status = StatusLoading
	e.failureCount = 0
	seq := e.fetchSeq
	s.persist(e)
	n := s.prepareNotification(e)
	s.mu.Unlock()

	n.deliver()
	return e, seq
}

// Record a failed attempt of the fetch. Returns false if the fetch was superseded.
func (s *Store) recordFailure(e *entry, seq uint64, failureCount int, err error) bool {
	s.mu.Lock()
	if !s.isCurrent(e) || e.fetchSeq != seq {
		s.mu.Unlock()
		return false
	}
	e.failureCount = failureCount
	e.err = err
	n := s.prepareNotification(e)
	s.mu.Unlock()

	n.deliver()
	return true
}

// Apply the result of the fetch to the entry.
// Returns false, dropping the result, if the fetch was superseded or the entry evicted.
func (s *Store) settleFetch(e *entry, seq uint64, value any, err error) bool {
	s.mu.Lock()
	if !s.isCurrent(e) || e.fetchSeq != seq {
		s.mu.Unlock()
		return false
	}

	e.fetching = false
	if err != nil {
		// Keep the last known value around
		e.status = StatusError
		e.err = err
	} else {
		e.applyValue(value, s.nowFunc())
		// Issued before the data changed on the server
		e.stale = seq <= e.invalidatedSeq
	}
	s.persist(e)
	n := s.prepareNotification(e)
	s.mu.Unlock()

	n.deliver()
	return true
}

// Apply a write on behalf of a mutation, returning the state of the entry
// before the write. In-flight fetches for the key are superseded so they
// can't overwrite the written value.
func (s *Store) writeForMutation(key Key, fn func(current Snapshot) (any, bool)) (savedEntry, bool) {
	s.mu.Lock()
	e, existed := s.getOrCreate(key)
	saved := e.save(existed)

	value, ok := fn(e.snapshot())
	if !ok {
		s.mu.Unlock()
		return saved, false
	}

	e.supersedeFetch()
	e.applyValue(value, s.nowFunc())
	s.persist(e)
	n := s.prepareNotification(e)
	s.mu.Unlock()

	n.deliver()
	return saved, true
}

func (s *Store) restore(saved []savedEntry) {
	s.mu.Lock()
	notifications := make([]notification, 0, len(saved))
	for _, state := range saved {
		e, _ := s.getOrCreate(state.key)
		e.supersedeFetch()
		e.restore(state)
		s.persist(e)
		notifications = append(notifications, s.prepareNotification(e))
	}
	s.mu.Unlock()

	deliverAll(notifications)
}
