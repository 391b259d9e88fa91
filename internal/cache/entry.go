package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("<invalid status>(%d)", int(s))
	}
}

// Snapshot is an immutable view of a cache entry handed to readers and subscribers
type Snapshot struct {
	Key      Key
	Value    any
	HasValue bool
	Status   Status
	Err      error
	// Stale entries still serve their value, but will be refetched
	Stale bool
	// Failed attempts of the current (or last) fetch
	FailureCount int
	UpdatedAt    time.Time
	Subscribers  int

	version uint64
}

type fetchFunc func(ctx context.Context) (any, error)

type subscription struct {
	id       uint64
	callback func(Snapshot)
}

type entry struct {
	key Key

	value        any
	hasValue     bool
	status       Status
	err          error
	stale        bool
	failureCount int
	updatedAt    time.Time

	subscriptions []subscription
	fetcher       fetchFunc

	// Incremented for every fetch that is started, and when a write supersedes
	// the fetch in flight. Only the fetch holding the current sequence number
	// may settle into the entry.
	fetchSeq uint64
	fetching bool
	// The fetch sequence number in flight at the latest invalidation. Fetches up
	// to and including it settle as stale.
	invalidatedSeq uint64

	version uint64

	notifyMu        sync.Mutex
	notifying       bool
	pending         []notification
	notifiedVersion uint64
}

func newEntry(key Key) *entry {
	return &entry{
		key:    key,
		status: StatusIdle,
	}
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Key:          e.key,
		Value:        e.value,
		HasValue:     e.hasValue,
		Status:       e.status,
		Err:          e.err,
		Stale:        e.stale,
		FailureCount: e.failureCount,
		UpdatedAt:    e.updatedAt,
		Subscribers:  len(e.subscriptions),
		version:      e.version,
	}
}

func (e *entry) applyValue(value any, now time.Time) {
	e.value = value
	e.hasValue = true
	e.status = StatusSuccess
	e.err = nil
	e.stale = false
	e.failureCount = 0
	e.updatedAt = now
}

// Make any fetch in flight unable to settle into the entry
func (e *entry) supersedeFetch() {
	if !e.fetching {
		return
	}
	e.fetchSeq++
	e.fetching = false
}

type savedEntry struct {
	key          Key
	existed      bool
	value        any
	hasValue     bool
	status       Status
	err          error
	stale        bool
	failureCount int
	updatedAt    time.Time
}

func (e *entry) save(existed bool) savedEntry {
	return savedEntry{
		key:          e.key,
		existed:      existed,
		value:        e.value,
		hasValue:     e.hasValue,
		status:       e.status,
		err:          e.err,
		stale:        e.stale,
		failureCount: e.failureCount,
		updatedAt:    e.updatedAt,
	}
}

func (e *entry) restore(saved savedEntry) {
	if !saved.existed {
		e.value = nil
		e.hasValue = false
		e.status = StatusIdle
		e.err = nil
		e.stale = false
		e.failureCount = 0
		e.updatedAt = time.Time{}
		return
	}

	e.value = saved.value
	e.hasValue = saved.hasValue
	e.status = saved.status
	e.err = saved.err
	e.stale = saved.stale
	e.failureCount = saved.failureCount
	e.updatedAt = saved.updatedAt

	if saved.status == StatusLoading {
		// The fetch that was in flight got superseded by the write we are undoing.
		// Mark the entry as stale so the next reader fetches it again.
		e.stale = true
		e.status = StatusIdle
		if e.hasValue {
			e.status = StatusSuccess
		}
	}
}

type notification struct {
	entry     *entry
	snapshot  Snapshot
	callbacks []func(Snapshot)
}

// Deliver the notification to the subscribers captured when it was prepared.
// Deliveries for one entry are serialized, and older snapshots are dropped if
// a newer one has already been delivered. A notification raised while the
// entry is already notifying (from a callback, or another goroutine) is queued
// and delivered by the notifying goroutine once the current callbacks return.
func (n notification) deliver() {
	if n.entry == nil || len(n.callbacks) == 0 {
		return
	}
	e := n.entry

	e.notifyMu.Lock()
	e.pending = append(e.pending, n)
	if e.notifying {
		e.notifyMu.Unlock()
		return
	}
	e.notifying = true
	e.notifyMu.Unlock()

	finished := false
	defer func() {
		if finished {
			return
		}
		// A callback panicked, let the next notification start over
		e.notifyMu.Lock()
		e.notifying = false
		e.pending = nil
		e.notifyMu.Unlock()
	}()

	for {
		e.notifyMu.Lock()
		if len(e.pending) == 0 {
			e.notifying = false
			e.notifyMu.Unlock()
			finished = true
			return
		}
		next := e.pending[0]
		e.pending = e.pending[1:]
		if next.snapshot.version <= e.notifiedVersion {
			e.notifyMu.Unlock()
			continue
		}
		e.notifiedVersion = next.snapshot.version
		e.notifyMu.Unlock()

		for _, callback := range next.callbacks {
			callback(next.snapshot)
		}
	}
}

func deliverAll(notifications []notification) {
	for _, n := range notifications {
		n.deliver()
	}
}
