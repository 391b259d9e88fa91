package cache

import (
	"context"
	"log/slog"

	"github.com/Amund211/notesync/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Mutation describes a remote write and how it affects the cache.
// Only Do is required.
type Mutation[V, R any] struct {
	Name string

	Do func(ctx context.Context, vars V) (R, error)

	// Patch the cache before Do is called. Every key written through the
	// transaction is restored if Do fails.
	Optimistic func(tx *Tx, vars V)

	// Write the value confirmed by the server after Do succeeds
	Confirm func(tx *Tx, vars V, result R)

	// Keys to invalidate after Do succeeds
	Invalidates func(vars V) []Matcher

	OnSuccess func(ctx context.Context, vars V, result R)
	OnError   func(ctx context.Context, vars V, err error)
}

type Outcome[R any] struct {
	ID     uuid.UUID
	Result R
	Err    error
	// Optimistic writes were undone
	RolledBack bool
}

func (o Outcome[R]) Succeeded() bool {
	return o.Err == nil
}

// Tx records the state of every key a mutation writes so it can be rolled back
type Tx struct {
	client  *Client
	saved   []savedEntry
	touched map[string]struct{}
}

func newTx(client *Client) *Tx {
	return &Tx{
		client:  client,
		saved:   nil,
		touched: make(map[string]struct{}),
	}
}

func (tx *Tx) write(key Key, fn func(current Snapshot) (any, bool)) bool {
	saved, written := tx.client.store.writeForMutation(key, fn)
	if !written {
		return false
	}

	id := key.String()
	// Fetches for the key started from now on must not join the superseded one
	tx.client.flights.Forget(id)

	if _, ok := tx.touched[id]; !ok {
		tx.touched[id] = struct{}{}
		tx.saved = append(tx.saved, saved)
	}
	return true
}

func (tx *Tx) rollback() bool {
	if len(tx.saved) == 0 {
		return false
	}

	tx.client.store.restore(tx.saved)

	// Entries that were loading had their fetch superseded by our write
	var interrupted []Matcher
	for _, saved := range tx.saved {
		if saved.existed && saved.status == StatusLoading {
			interrupted = append(interrupted, Exact(saved.key))
		}
	}
	if len(interrupted) > 0 {
		tx.client.Invalidate(AnyOf(interrupted...))
	}

	tx.saved = nil
	return true
}

func (tx *Tx) commit() {
	tx.saved = nil
}

// Set the data of the key within the transaction
func SetData[T any](tx *Tx, key Key, data T) {
	tx.write(key, func(Snapshot) (any, bool) {
		return data, true
	})
}

// Replace the data of the key with fn(data) within the transaction.
// Returns false, leaving the key untouched, if it has no data of type T.
func UpdateData[T any](tx *Tx, key Key, fn func(data T) T) bool {
	return tx.write(key, func(current Snapshot) (any, bool) {
		if !current.HasValue {
			return nil, false
		}
		data, ok := current.Value.(T)
		if !ok {
			return nil, false
		}
		return fn(data), true
	})
}

// Run the mutation. The outcome is settled exactly once: on failure every
// optimistic write is rolled back before OnError runs, on success the
// confirmed value is written and the declared keys invalidated before
// OnSuccess runs.
func Mutate[V, R any](ctx context.Context, c *Client, m Mutation[V, R], vars V) Outcome[R] {
	outcome := Outcome[R]{
		ID: uuid.New(),
	}

	ctx = logging.AddMetaToContext(ctx,
		slog.String("mutation", m.Name),
		slog.String("mutationID", outcome.ID.String()),
	)
	ctx, span := c.tracer.Start(ctx, "Cache.mutate", trace.WithAttributes(
		attribute.String("mutation", m.Name),
		attribute.String("mutationID", outcome.ID.String()),
	))
	defer span.End()
	logger := logging.FromContext(ctx)

	recordOutcome := func(result string) {
		c.metrics.mutationCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("mutation", m.Name),
			attribute.String("outcome", result),
		))
	}

	tx := newTx(c)
	settled := false
	defer func() {
		if settled {
			return
		}
		// Panicking before settlement, don't leave optimistic state behind
		tx.rollback()
		recordOutcome("panic")
	}()

	if m.Optimistic != nil {
		m.Optimistic(tx, vars)
	}

	result, err := m.Do(ctx, vars)
	if err != nil {
		outcome.RolledBack = tx.rollback()
		outcome.Err = err
		settled = true

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.InfoContext(ctx, "Mutation failed", "error", err.Error(), "rolledBack", outcome.RolledBack)
		recordOutcome("error")

		if m.OnError != nil {
			m.OnError(ctx, vars, err)
		}
		return outcome
	}

	tx.commit()
	settled = true
	outcome.Result = result

	if m.Confirm != nil {
		m.Confirm(tx, vars, result)
		tx.commit()
	}

	if m.Invalidates != nil {
		if matchers := m.Invalidates(vars); len(matchers) > 0 {
			c.Invalidate(AnyOf(matchers...))
		}
	}

	recordOutcome("success")

	if m.OnSuccess != nil {
		m.OnSuccess(ctx, vars, result)
	}
	return outcome
}
