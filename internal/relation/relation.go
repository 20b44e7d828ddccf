// Package relation implements ordered membership sets ("likes", "favorites")
// on top of storage that offers atomic add-if-absent and remove-if-present.
package relation

import (
	"context"
	"errors"

	"arcade/internal/models"
	"arcade/internal/observability"
)

// DefaultMaxAttempts bounds Toggle retries under contention.
const DefaultMaxAttempts = 3

// ErrContention is returned when Toggle keeps losing races with concurrent
// writers on the same member.
var ErrContention = models.NewConflictError("Concurrent update, please retry")

// Collection is the storage primitive behind an Engine. Implementations must
// make AddFront and Remove atomic with respect to each other for the same
// parent and member key.
type Collection[T any] interface {
	// List returns the members of parent, most recently added first.
	List(ctx context.Context, parent models.ID) ([]T, error)
	// AddFront inserts member at the front unless a member with the same key
	// already exists. It reports whether the insert happened.
	AddFront(ctx context.Context, parent models.ID, member T) (bool, error)
	// Remove deletes the member with key. It reports whether one existed.
	Remove(ctx context.Context, parent models.ID, key string) (bool, error)
}

// Result is the outcome of a membership change.
type Result[T any] struct {
	// Present reports whether the member is in the collection afterwards.
	Present bool
	Members []T
}

// Engine applies toggle, add and remove semantics to a Collection.
type Engine[T any] struct {
	name        string
	coll        Collection[T]
	key         func(T) string
	maxAttempts int
}

// NewEngine returns an Engine named name (used in metrics) over coll, with key
// identifying members.
func NewEngine[T any](name string, coll Collection[T], key func(T) string) *Engine[T] {
	return &Engine[T]{name: name, coll: coll, key: key, maxAttempts: DefaultMaxAttempts}
}

// WithMaxAttempts overrides the Toggle retry bound.
func (e *Engine[T]) WithMaxAttempts(n int) *Engine[T] {
	if n > 0 {
		e.maxAttempts = n
	}
	return e
}

// Toggle removes member if present, otherwise adds it at the front. If the add
// loses a race to a concurrent insert of the same member the whole step is
// retried, so the caller's request always flips the state it observed.
func (e *Engine[T]) Toggle(ctx context.Context, parent models.ID, member T) (Result[T], error) {
	key := e.key(member)

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			observability.RelationRetries.WithLabelValues(e.name).Inc()
		}

		removed, err := e.coll.Remove(ctx, parent, key)
		if err != nil {
			return Result[T]{}, err
		}
		if removed {
			observability.RelationToggles.WithLabelValues(e.name, "removed").Inc()
			return e.result(ctx, parent, false)
		}

		added, err := e.coll.AddFront(ctx, parent, member)
		if err != nil {
			return Result[T]{}, err
		}
		if added {
			observability.RelationToggles.WithLabelValues(e.name, "added").Inc()
			return e.result(ctx, parent, true)
		}
	}

	return Result[T]{}, ErrContention
}

// Add inserts member at the front, failing with a Conflict error carrying
// duplicateMsg when it is already present.
func (e *Engine[T]) Add(ctx context.Context, parent models.ID, member T, duplicateMsg string) (Result[T], error) {
	added, err := e.coll.AddFront(ctx, parent, member)
	if err != nil {
		return Result[T]{}, err
	}
	if !added {
		observability.RelationToggles.WithLabelValues(e.name, "rejected").Inc()
		return Result[T]{}, models.NewConflictError(duplicateMsg)
	}
	observability.RelationToggles.WithLabelValues(e.name, "added").Inc()
	return e.result(ctx, parent, true)
}

// Remove deletes the member with key if present. Removing an absent member is
// not an error.
func (e *Engine[T]) Remove(ctx context.Context, parent models.ID, key string) (Result[T], error) {
	removed, err := e.coll.Remove(ctx, parent, key)
	if err != nil {
		return Result[T]{}, err
	}
	if removed {
		observability.RelationToggles.WithLabelValues(e.name, "removed").Inc()
	}
	return e.result(ctx, parent, false)
}

// List returns the current members of parent.
func (e *Engine[T]) List(ctx context.Context, parent models.ID) ([]T, error) {
	return e.coll.List(ctx, parent)
}

func (e *Engine[T]) result(ctx context.Context, parent models.ID, present bool) (Result[T], error) {
	members, err := e.coll.List(ctx, parent)
	if err != nil {
		return Result[T]{}, err
	}
	return Result[T]{Present: present, Members: members}, nil
}

// IsContention reports whether err is the Toggle retry exhaustion error.
func IsContention(err error) bool {
	return errors.Is(err, ErrContention)
}
